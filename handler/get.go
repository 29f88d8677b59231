// Package handler implements the GET request handler: resolve a
// request-target to a file under the document root, and build either a
// 200 response carrying the file or an error response.
package handler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nmosier/webserv/internal/svcerr"
	"github.com/nmosier/webserv/message"
	"github.com/nmosier/webserv/mimetype"
	"github.com/nmosier/webserv/respbuild"
	"golang.org/x/sys/unix"
)

// ServeGET resolves req (which must have method GET) against docroot and
// returns the assembled response: the status line is set first, then
// any body, then the general and server headers.
func ServeGET(docroot, servname string, req *message.Request, types *mimetype.Table) (*message.Response, error) {
	resp := message.NewResponse()

	path, ok := resolvePath(docroot, req.Line.Target)
	if !ok {
		if err := buildError(resp, message.StatusForbidden, "Forbidden"); err != nil {
			return nil, err
		}
		return finish(resp, servname)
	}

	var st unix.Stat_t
	err := unix.Stat(path, &st)
	switch {
	case err == unix.ENOENT, err == unix.ENOTDIR:
		if err := buildError(resp, message.StatusNotFound, "Not Found"); err != nil {
			return nil, err
		}
		return finish(resp, servname)
	case err == unix.EACCES:
		if err := buildError(resp, message.StatusForbidden, "Forbidden"); err != nil {
			return nil, err
		}
		return finish(resp, servname)
	case err != nil:
		return nil, fmt.Errorf("handler: stat %s: %w: %v", path, svcerr.ErrServ, err)
	}

	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		if err := buildError(resp, message.StatusForbidden, "Forbidden"); err != nil {
			return nil, err
		}
		return finish(resp, servname)
	}

	if err := unix.Access(path, unix.R_OK); err != nil {
		if err := buildError(resp, message.StatusForbidden, "Forbidden"); err != nil {
			return nil, err
		}
		return finish(resp, servname)
	}

	if err := respbuild.InsertStatusLine(resp, message.StatusOK.Code, "1.1"); err != nil {
		return nil, err
	}
	if err := respbuild.InsertFile(resp, path, types); err != nil {
		return nil, fmt.Errorf("handler: %w", err)
	}

	return finish(resp, servname)
}

func buildError(resp *message.Response, status message.Status, body string) error {
	if err := respbuild.InsertStatusLine(resp, status.Code, "1.1"); err != nil {
		return err
	}
	return respbuild.InsertBody(resp, []byte(body), "text/plain")
}

func finish(resp *message.Response, servname string) (*message.Response, error) {
	if err := respbuild.InsertGeneralHeaders(resp); err != nil {
		return nil, err
	}
	if err := respbuild.InsertServerHeaders(resp, servname); err != nil {
		return nil, err
	}
	return resp, nil
}

// resolvePath percent-decodes target, rejects any ".." path segment, and
// joins it onto docroot by byte concatenation.
func resolvePath(docroot, target string) (string, bool) {
	decoded, err := url.PathUnescape(target)
	if err != nil {
		return "", false
	}
	for _, seg := range strings.Split(decoded, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return docroot + decoded, true
}
