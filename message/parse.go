package message

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nmosier/webserv/buffer"
	"github.com/nmosier/webserv/internal/svcerr"
	"golang.org/x/net/http/httpguts"
)

const crlf = "\r\n"

// Parse parses a completed request text buffer (one already terminated by
// "\r\n\r\n") into req.Line and req.Headers. On any syntax deviation it
// returns an error wrapping svcerr.ErrMalformed and leaves req unmodified
// beyond whatever partial state existed.
//
// Strings stored in req.Line/req.Headers are copies (via Go string
// conversion of a byte slice), not pointers into req.Text, so req.Text
// may be destroyed any time after Parse returns.
func Parse(req *Request) error {
	data := req.Text.Filled()
	lines := bytes.Split(data, []byte(crlf))
	// A well-formed request ends "...\r\n\r\n", so splitting on CRLF
	// yields a trailing empty element after the blank line.
	if len(lines) < 2 {
		return fmt.Errorf("message: empty request: %w", svcerr.ErrMalformed)
	}

	rl, err := parseRequestLine(lines[0])
	if err != nil {
		return err
	}

	headers := buffer.NewHeaders()
	i := 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if len(line) == 0 {
			break // blank line ends the headers
		}
		key, value, err := parseHeaderLine(line)
		if err != nil {
			return err
		}
		if err := headers.Insert(key, value); err != nil {
			return fmt.Errorf("message: %v: %w", err, svcerr.ErrMalformed)
		}
	}
	// The blank line that ends the headers must be followed by the
	// trailing empty element; an empty element that is itself the last
	// one only marks the CRLF closing the final header line.
	if i >= len(lines)-1 {
		return fmt.Errorf("message: headers not terminated by blank line: %w", svcerr.ErrMalformed)
	}

	req.Line = rl
	req.Headers = headers
	req.Parsed = true
	return nil
}

func parseRequestLine(line []byte) (RequestLine, error) {
	parts := strings.Split(string(line), " ")
	if len(parts) != 3 {
		return RequestLine{}, fmt.Errorf("message: request line %q: expected 3 tokens: %w", line, svcerr.ErrMalformed)
	}
	method, target, proto := parts[0], parts[1], parts[2]

	if !IsSupportedMethod(method) {
		return RequestLine{}, fmt.Errorf("message: unsupported method %q: %w", method, svcerr.ErrMalformed)
	}
	if !strings.HasPrefix(target, "/") {
		return RequestLine{}, fmt.Errorf("message: request-target %q must start with '/': %w", target, svcerr.ErrMalformed)
	}
	const httpPrefix = "HTTP/"
	if !strings.HasPrefix(proto, httpPrefix) {
		return RequestLine{}, fmt.Errorf("message: malformed protocol %q: %w", proto, svcerr.ErrMalformed)
	}
	version := strings.TrimPrefix(proto, httpPrefix)

	return RequestLine{Method: method, Target: target, Version: version}, nil
}

func parseHeaderLine(line []byte) (key, value string, err error) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("message: header line %q has no ':': %w", line, svcerr.ErrMalformed)
	}
	keyBytes := line[:idx]
	if bytes.IndexAny(keyBytes, " \t") >= 0 {
		return "", "", fmt.Errorf("message: whitespace before ':' in header %q: %w", line, svcerr.ErrMalformed)
	}
	key = string(keyBytes)
	value = strings.TrimLeft(string(line[idx+1:]), " \t")

	if !httpguts.ValidHeaderFieldName(key) {
		return "", "", fmt.Errorf("message: invalid header field name %q: %w", key, svcerr.ErrMalformed)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", fmt.Errorf("message: invalid header field value for %q: %w", key, svcerr.ErrMalformed)
	}
	return key, value, nil
}
