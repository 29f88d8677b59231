package message

// MethodGET is the only method the handler currently serves; supported
// methods are left open-ended for future additions.
const MethodGET = "GET"

// supportedMethods lists the methods the request line parser accepts.
// Extending the server to another method is a matter of adding it here
// and to the handler dispatch in package handler.
var supportedMethods = map[string]bool{
	MethodGET: true,
}

// IsSupportedMethod reports whether method is a recognized HTTP method.
func IsSupportedMethod(method string) bool {
	return supportedMethods[method]
}

// RequestLine is the parsed first line of an HTTP request.
type RequestLine struct {
	Method  string
	Target  string // request-target, as received (not yet decoded)
	Version string // the part after "HTTP/"
}

// ResponseLine is the first line of an HTTP response: a version and a
// reference to one of the recognized status records.
type ResponseLine struct {
	Version string
	Status  Status
}
