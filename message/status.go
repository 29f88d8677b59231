package message

import "fmt"

// Status is a (code, reason phrase) status record.
type Status struct {
	Code   int
	Reason string
}

// Recognized status records.
var (
	StatusOK         = Status{200, "OK"}
	StatusForbidden  = Status{403, "Forbidden"}
	StatusNotFound   = Status{404, "Not Found"}
)

var statusByCode = map[int]Status{
	StatusOK.Code:        StatusOK,
	StatusForbidden.Code: StatusForbidden,
	StatusNotFound.Code:  StatusNotFound,
}

// LookupStatus returns the status record for code, or an error if code is
// not one of the recognized statuses.
func LookupStatus(code int) (Status, error) {
	s, ok := statusByCode[code]
	if !ok {
		return Status{}, fmt.Errorf("message: invalid status code %d", code)
	}
	return s, nil
}
