// File: protocol/response.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Response construction and serialization. The head is built into a pooled
// slice and written in one call; file bodies are streamed after it.

package protocol

import (
	"fmt"
	"io"
	"strconv"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/pool"
)

// statusText covers every status the server produces.
var statusText = map[int]string{
	101: "Switching Protocols",
	200: "OK",
	400: "Bad Request",
	404: "Not Found",
	500: "Internal Server Error",
}

var headPool = pool.NewBytePool(256)

// NewFile builds the 200 response for an opened file. HEAD requests get an
// OkEmpty response and the file is closed right away.
func NewFile(req *api.Request, server, contentType string, f api.File) *api.Response {
	res := &api.Response{
		Kind:          api.KindOkFile,
		Status:        200,
		Major:         req.Major,
		Minor:         req.Minor,
		Server:        server,
		ContentType:   contentType,
		ContentLength: f.Size(),
		KeepAlive:     req.KeepAlive,
	}
	if req.Method == "HEAD" {
		f.Close()
		res.Kind = api.KindOkEmpty
		res.OmitBody = true
		return res
	}
	res.Body = f
	return res
}

// NewError builds a 400, 404 or 500 response carrying a short html text.
func NewError(req *api.Request, kind api.ResponseKind, server, text string) *api.Response {
	status := 500
	switch kind {
	case api.KindBadRequest:
		status = 400
	case api.KindNotFound:
		status = 404
	}
	return &api.Response{
		Kind:          kind,
		Status:        status,
		Major:         req.Major,
		Minor:         req.Minor,
		Server:        server,
		ContentType:   "text/html",
		ContentLength: int64(len(text)),
		KeepAlive:     req.KeepAlive,
		Text:          []byte(text),
		OmitBody:      req.Method == "HEAD",
	}
}

// WriteResponse serializes res onto w. It does not close the body.
func WriteResponse(w io.Writer, res *api.Response) error {
	buf := headPool.GetBuffer()
	defer func() { headPool.PutBuffer(buf) }()

	buf = AppendHead(buf, res)
	if !res.OmitBody && res.Body == nil {
		buf = append(buf, res.Text...)
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if res.OmitBody || res.Body == nil || res.ContentLength == 0 {
		return nil
	}
	n, err := io.CopyN(w, res.Body, res.ContentLength)
	if err == io.EOF {
		return fmt.Errorf("body truncated after %d of %d bytes: %w", n, res.ContentLength, io.ErrUnexpectedEOF)
	}
	return err
}

// AppendHead appends the status line and headers of res to dst.
func AppendHead(dst []byte, res *api.Response) []byte {
	dst = append(dst, "HTTP/"...)
	dst = strconv.AppendInt(dst, int64(res.Major), 10)
	dst = append(dst, '.')
	dst = strconv.AppendInt(dst, int64(res.Minor), 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(res.Status), 10)
	dst = append(dst, ' ')
	dst = append(dst, statusText[res.Status]...)
	dst = append(dst, "\r\n"...)

	if res.Server != "" {
		dst = appendField(dst, "Server", res.Server)
	}
	dst = appendField(dst, "Content-Type", res.ContentType)
	dst = append(dst, "Content-Length: "...)
	dst = strconv.AppendInt(dst, res.ContentLength, 10)
	dst = append(dst, "\r\n"...)

	http11 := res.Major > 1 || (res.Major == 1 && res.Minor >= 1)
	switch {
	case http11 && !res.KeepAlive:
		dst = appendField(dst, "Connection", "close")
	case !http11 && res.KeepAlive:
		dst = appendField(dst, "Connection", "keep-alive")
	}
	return append(dst, "\r\n"...)
}

func appendField(dst []byte, name, value string) []byte {
	dst = append(dst, name...)
	dst = append(dst, ": "...)
	dst = append(dst, value...)
	return append(dst, "\r\n"...)
}
