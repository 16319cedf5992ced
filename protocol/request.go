// File: protocol/request.go
// Package protocol implements the HTTP/1.x wire codec used by sessions.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ReadRequest parses one request head from a buffered stream, preserving
// header order and duplicates, and consumes any Content-Length body so that
// the next pipelined request starts at the buffer head.

package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/momentics/hioload-http/api"
)

const (
	// DefaultMaxHeaderBytes bounds the request line plus all header lines.
	DefaultMaxHeaderBytes = 8192
	// DefaultMaxBodyBytes bounds a request body the server discards.
	DefaultMaxBodyBytes = 1 << 20
)

// Limits bound what ReadRequest is willing to consume.
type Limits struct {
	MaxHeaderBytes int
	MaxBodyBytes   int64
}

func (l Limits) withDefaults() Limits {
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if l.MaxBodyBytes <= 0 {
		l.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return l
}

// ReadRequest reads the next request from br. A stream that ends cleanly
// before the first byte of a request yields api.ErrEndOfStream.
func ReadRequest(br *bufio.Reader, limits Limits) (*api.Request, error) {
	limits = limits.withDefaults()
	if _, err := br.Peek(1); err != nil {
		if err == io.EOF {
			return nil, api.ErrEndOfStream
		}
		return nil, err
	}

	budget := limits.MaxHeaderBytes
	line, err := readLine(br, &budget)
	// Tolerate empty lines ahead of the request line.
	for err == nil && len(line) == 0 {
		line, err = readLine(br, &budget)
	}
	if err != nil {
		return nil, err
	}

	req, err := parseRequestLine(string(line))
	if err != nil {
		return nil, err
	}

	for {
		line, err = readLine(br, &budget)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			break
		}
		field, err := parseHeaderLine(line)
		if err != nil {
			return nil, err
		}
		req.Header = append(req.Header, field)
	}

	conn := req.Values("Connection")
	if req.AtLeast(1, 1) {
		req.KeepAlive = !httpguts.HeaderValuesContainsToken(conn, "close")
	} else {
		req.KeepAlive = httpguts.HeaderValuesContainsToken(conn, "keep-alive")
	}

	if err := discardBody(br, req, limits.MaxBodyBytes); err != nil {
		return nil, err
	}
	return req, nil
}

// readLine returns one line without its CRLF, charging it against budget.
func readLine(br *bufio.Reader, budget *int) ([]byte, error) {
	line, err := br.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return nil, api.ErrHeaderTooLarge
	}
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	*budget -= len(line)
	if *budget < 0 {
		return nil, api.ErrHeaderTooLarge
	}
	line = bytes.TrimSuffix(line[:len(line)-1], []byte{'\r'})
	return line, nil
}

func parseRequestLine(line string) (*api.Request, error) {
	method, rest, ok1 := strings.Cut(line, " ")
	target, proto, ok2 := strings.Cut(rest, " ")
	if !ok1 || !ok2 || method == "" || target == "" {
		return nil, fmt.Errorf("%w: bad request line %q", api.ErrMalformedRequest, line)
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, fmt.Errorf("%w: bad method %q", api.ErrMalformedRequest, method)
	}
	major, minor, ok := parseHTTPVersion(proto)
	if !ok || major != 1 {
		return nil, fmt.Errorf("%w: bad version %q", api.ErrMalformedRequest, proto)
	}
	return &api.Request{
		Method: method,
		Target: target,
		Major:  major,
		Minor:  minor,
	}, nil
}

func parseHTTPVersion(v string) (int, int, bool) {
	if len(v) != len("HTTP/1.1") || !strings.HasPrefix(v, "HTTP/") || v[6] != '.' {
		return 0, 0, false
	}
	major, minor := v[5], v[7]
	if major < '0' || major > '9' || minor < '0' || minor > '9' {
		return 0, 0, false
	}
	return int(major - '0'), int(minor - '0'), true
}

func parseHeaderLine(line []byte) (api.HeaderField, error) {
	if line[0] == ' ' || line[0] == '\t' {
		return api.HeaderField{}, fmt.Errorf("%w: obsolete line folding", api.ErrMalformedRequest)
	}
	name, value, ok := bytes.Cut(line, []byte{':'})
	if !ok || !httpguts.ValidHeaderFieldName(string(name)) {
		return api.HeaderField{}, fmt.Errorf("%w: bad header line %q", api.ErrMalformedRequest, line)
	}
	v := string(bytes.Trim(value, " \t"))
	if !httpguts.ValidHeaderFieldValue(v) {
		return api.HeaderField{}, fmt.Errorf("%w: bad value for %q", api.ErrMalformedRequest, name)
	}
	return api.HeaderField{Name: string(name), Value: v}, nil
}

// discardBody skips a Content-Length body. Chunked bodies are not accepted:
// the file policy never reads request payloads.
func discardBody(br *bufio.Reader, req *api.Request, max int64) error {
	if te := req.Values("Transfer-Encoding"); len(te) > 0 {
		return fmt.Errorf("%w: transfer-encoding %q", api.ErrNotSupported, strings.Join(te, ", "))
	}
	lengths := req.Values("Content-Length")
	if len(lengths) == 0 {
		return nil
	}
	for _, l := range lengths[1:] {
		if l != lengths[0] {
			return fmt.Errorf("%w: conflicting content-length", api.ErrMalformedRequest)
		}
	}
	n, err := strconv.ParseInt(lengths[0], 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("%w: bad content-length %q", api.ErrMalformedRequest, lengths[0])
	}
	if n > max {
		return api.ErrBodyTooLarge
	}
	if _, err := io.CopyN(io.Discard, br, n); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}
