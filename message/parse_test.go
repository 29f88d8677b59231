package message

import (
	"errors"
	"testing"

	"github.com/nmosier/webserv/internal/svcerr"
	"github.com/stretchr/testify/require"
)

func newFilledRequest(t *testing.T, raw string) *Request {
	t.Helper()
	req := NewRequest()
	req.Text.Append([]byte(raw))
	return req
}

func TestParseWellFormedRequest(t *testing.T) {
	req := newFilledRequest(t, "GET /index.html HTTP/1.1\r\nHost: h\r\nAccept: */*\r\n\r\n")
	require.NoError(t, Parse(req))
	require.True(t, req.Parsed)
	require.Equal(t, "GET", req.Line.Method)
	require.Equal(t, "/index.html", req.Line.Target)
	require.Equal(t, "1.1", req.Line.Version)

	v, ok := req.Headers.Get("Host")
	require.True(t, ok)
	require.Equal(t, "h", v)

	v, ok = req.Headers.Get("accept")
	require.True(t, ok)
	require.Equal(t, "*/*", v)
}

func TestParseHeaderOrderPreserved(t *testing.T) {
	req := newFilledRequest(t, "GET / HTTP/1.1\r\nB: 2\r\nA: 1\r\n\r\n")
	require.NoError(t, Parse(req))
	list := req.Headers.List()
	require.Equal(t, "B", list[0].Key)
	require.Equal(t, "A", list[1].Key)
}

func TestParseUnknownMethodMalformed(t *testing.T) {
	req := newFilledRequest(t, "FOO / HTTP/1.1\r\n\r\n")
	err := Parse(req)
	require.Error(t, err)
	require.True(t, errors.Is(err, svcerr.ErrMalformed))
}

func TestParseTargetMustStartWithSlash(t *testing.T) {
	req := newFilledRequest(t, "GET index.html HTTP/1.1\r\n\r\n")
	err := Parse(req)
	require.True(t, errors.Is(err, svcerr.ErrMalformed))
}

func TestParseHeaderWithWhitespaceBeforeColonMalformed(t *testing.T) {
	req := newFilledRequest(t, "GET / HTTP/1.1\r\nHost : h\r\n\r\n")
	err := Parse(req)
	require.True(t, errors.Is(err, svcerr.ErrMalformed))
}

func TestParseMissingBlankLineMalformed(t *testing.T) {
	req := newFilledRequest(t, "GET / HTTP/1.1\r\nHost: h\r\n")
	err := Parse(req)
	require.True(t, errors.Is(err, svcerr.ErrMalformed))
}

func TestParseTrimsLeadingWhitespaceFromValue(t *testing.T) {
	req := newFilledRequest(t, "GET / HTTP/1.1\r\nHost:    h  \r\n\r\n")
	require.NoError(t, Parse(req))
	v, _ := req.Headers.Get("Host")
	require.Equal(t, "h  ", v) // only leading whitespace is stripped from header values
}
