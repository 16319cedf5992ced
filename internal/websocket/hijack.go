// File: internal/websocket/hijack.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package websocket

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/momentics/hioload-http/api"
)

var errHijacked = errors.New("websocket: connection already hijacked")

// hijackWriter is the http.ResponseWriter handed to the upgrader. It owns
// no buffering: a successful upgrade hijacks conn, a failed one writes a
// plain HTTP error that closes the connection.
type hijackWriter struct {
	conn     net.Conn
	header   http.Header
	wrote    bool
	hijacked bool
}

func newHijackWriter(conn net.Conn) *hijackWriter {
	return &hijackWriter{conn: conn, header: make(http.Header)}
}

func (w *hijackWriter) Header() http.Header { return w.header }

func (w *hijackWriter) WriteHeader(code int) {
	if w.wrote || w.hijacked {
		return
	}
	w.wrote = true
	bw := bufio.NewWriter(w.conn)
	fmt.Fprintf(bw, "HTTP/1.1 %03d %s\r\n", code, http.StatusText(code))
	w.header.Del("Connection")
	w.header.Write(bw)
	bw.WriteString("Connection: close\r\n\r\n")
	bw.Flush()
}

func (w *hijackWriter) Write(p []byte) (int, error) {
	if w.hijacked {
		return 0, errHijacked
	}
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.conn.Write(p)
}

// Hijack returns conn with fresh buffers; bytes the session had already
// read are replayed by conn itself.
func (w *hijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if w.hijacked {
		return nil, nil, errHijacked
	}
	w.hijacked = true
	return w.conn, bufio.NewReadWriter(bufio.NewReader(w.conn), bufio.NewWriter(w.conn)), nil
}

// toHTTPRequest rebuilds the net/http view of an already parsed upgrade request.
func toHTTPRequest(req *api.Request, remote net.Addr) (*http.Request, error) {
	u, err := url.ParseRequestURI(req.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrMalformedRequest, err)
	}
	header := make(http.Header, len(req.Header))
	for _, f := range req.Header {
		header.Add(f.Name, f.Value)
	}
	r := &http.Request{
		Method:     req.Method,
		URL:        u,
		Proto:      "HTTP/" + req.Version(),
		ProtoMajor: req.Major,
		ProtoMinor: req.Minor,
		Header:     header,
		Host:       req.Get("Host"),
		RequestURI: req.Target,
		Body:       http.NoBody,
	}
	if remote != nil {
		r.RemoteAddr = remote.String()
	}
	return r, nil
}
