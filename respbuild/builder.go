// Package respbuild assembles a message.Response in memory: status line,
// headers, and body. Nothing here touches the wire — that is package
// respwrite's job.
package respbuild

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/nmosier/webserv/message"
	"github.com/nmosier/webserv/mimetype"
	"golang.org/x/exp/mmap"
	"golang.org/x/sys/unix"
)

// InsertStatusLine records the response's HTTP version and looks up the
// status record for code, failing if code is not recognized.
func InsertStatusLine(resp *message.Response, code int, version string) error {
	status, err := message.LookupStatus(code)
	if err != nil {
		return fmt.Errorf("respbuild: %w", err)
	}
	resp.Line = message.ResponseLine{Version: version, Status: status}
	return nil
}

// InsertHeader appends a single (key, value) header, growing the header
// table if needed.
func InsertHeader(resp *message.Response, key, value string) error {
	return resp.Headers.Insert(key, value)
}

// InsertBody copies body into the response (replacing any prior body)
// and appends Content-Type and Content-Length headers. Content-Length is
// the count of body bytes only — it never includes a trailing null byte,
// resolving the §9 open question explicitly in the spec's favor.
func InsertBody(resp *message.Response, body []byte, mediaType string) error {
	resp.Body = append([]byte(nil), body...)
	if err := InsertHeader(resp, "Content-Type", mediaType); err != nil {
		return err
	}
	return InsertHeader(resp, "Content-Length", strconv.Itoa(len(resp.Body)))
}

// InsertFile opens path, memory-maps it read-only, and inserts its
// contents as the response body with the media type looked up from
// types, then appends a Last-Modified header from the file's mtime.
// The mapping is released before InsertFile returns — InsertBody has
// already copied the bytes into resp.Body by then.
func InsertFile(resp *message.Response, path string, types *mimetype.Table) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fmt.Errorf("respbuild: stat %s: %w", path, err)
	}

	r, err := mmap.Open(path)
	if err != nil {
		return fmt.Errorf("respbuild: mmap %s: %w", path, err)
	}
	defer r.Close()

	buf := make([]byte, r.Len())
	if _, err := r.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("respbuild: read mapped %s: %w", path, err)
	}

	mediaType := types.Lookup(path)
	if err := InsertBody(resp, buf, mediaType); err != nil {
		return err
	}

	mtime := time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
	return InsertHeader(resp, "Last-Modified", httpDate(mtime))
}

// InsertGeneralHeaders appends the Date header.
func InsertGeneralHeaders(resp *message.Response) error {
	return InsertHeader(resp, "Date", httpDate(time.Now()))
}

// serverInfo is resolved once via uname(2) so every response's Server
// header reflects the host the process is actually running on.
var serverInfo = func() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unknown/unknown"
	}
	return fmt.Sprintf("%s/%s", cstr(uts.Sysname[:]), cstr(uts.Release[:]))
}()

func cstr(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		i = len(b)
	}
	return string(b[:i])
}

// InsertServerHeaders appends "Server: <os>/<release> <servname>" and
// "Connection: close" (unconditional — connections are never kept alive).
func InsertServerHeaders(resp *message.Response, servname string) error {
	if err := InsertHeader(resp, "Server", fmt.Sprintf("%s %s", serverInfo, servname)); err != nil {
		return err
	}
	return InsertHeader(resp, "Connection", "close")
}

// httpDate formats t as "Wkd, DD Mon YYYY HH:MM:SS GMT". time.Format
// already produces fixed English weekday/month abbreviations, so no
// third-party date-formatting library is needed here.
func httpDate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}
