// File: api/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"strconv"
	"strings"
)

// HeaderField is a single header line as received on the wire.
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Request is a parsed HTTP/1.x request head. It is immutable once parsed.
type Request struct {
	Method string
	// Target is the raw request-target: path plus query, undecoded.
	Target    string
	Major     int
	Minor     int
	Header    []HeaderField // wire order, duplicates preserved
	KeepAlive bool
}

// Get returns the first value of the named header, matched case-insensitively.
func (r *Request) Get(name string) string {
	for _, f := range r.Header {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value of the named header in wire order.
func (r *Request) Values(name string) []string {
	var out []string
	for _, f := range r.Header {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Version renders the protocol version as "major.minor".
func (r *Request) Version() string {
	return strconv.Itoa(r.Major) + "." + strconv.Itoa(r.Minor)
}

// AtLeast reports whether the request version is at least major.minor.
func (r *Request) AtLeast(major, minor int) bool {
	return r.Major > major || (r.Major == major && r.Minor >= minor)
}
