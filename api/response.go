// File: api/response.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "io"

// ResponseKind tags the variant of a Response.
type ResponseKind int

const (
	KindOkFile ResponseKind = iota
	KindOkEmpty
	KindBadRequest
	KindNotFound
	KindInternalError
)

func (k ResponseKind) String() string {
	switch k {
	case KindOkFile:
		return "ok-file"
	case KindOkEmpty:
		return "ok-empty"
	case KindBadRequest:
		return "bad-request"
	case KindNotFound:
		return "not-found"
	case KindInternalError:
		return "internal-error"
	default:
		return "unknown"
	}
}

// Response is a fully decided reply to one request.
type Response struct {
	Kind          ResponseKind
	Status        int
	Major, Minor  int
	Server        string
	ContentType   string
	ContentLength int64
	KeepAlive     bool

	// Body streams the file of an OkFile response.
	Body io.ReadCloser
	// Text is the short payload of an error response.
	Text []byte
	// OmitBody suppresses payload bytes, as required for HEAD.
	OmitBody bool
}

// Close releases the body stream, if any. Safe to call more than once.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	err := r.Body.Close()
	r.Body = nil
	return err
}
