// File: internal/dispatch/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatch

import (
	"errors"
	"io/fs"
	"net"
	"strconv"
	"strings"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/protocol"
)

// DefaultDocument is appended to targets ending in "/".
const DefaultDocument = "index.html"

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithServerName sets the Server header value.
func WithServerName(name string) Option {
	return func(d *Dispatcher) { d.server = name }
}

// WithAuditor sets the audit sink.
func WithAuditor(a api.Auditor) Option {
	return func(d *Dispatcher) { d.auditor = a }
}

// Dispatcher serves files under root through fs.
type Dispatcher struct {
	root    string
	fs      api.FileSystem
	auditor api.Auditor
	server  string
}

var _ api.Handler = (*Dispatcher)(nil)

// New creates a dispatcher for root. A nil fs selects the OS filesystem.
func New(root string, fs api.FileSystem, opts ...Option) *Dispatcher {
	if fs == nil {
		fs = OSFileSystem{}
	}
	d := &Dispatcher{root: root, fs: fs}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the document root.
func (d *Dispatcher) Root() string { return d.root }

// Dispatch implements api.Handler. The audit record is emitted before any
// decision is taken.
func (d *Dispatcher) Dispatch(req *api.Request, remote net.Addr) *api.Response {
	if d.auditor != nil {
		d.auditor.Record(auditEntry(req, remote))
	}

	if req.Method != "GET" && req.Method != "HEAD" {
		return protocol.NewError(req, api.KindBadRequest, d.server, "Unknown HTTP-method")
	}
	if req.Target == "" || req.Target[0] != '/' || strings.Contains(req.Target, "..") {
		return protocol.NewError(req, api.KindBadRequest, d.server, "Illegal request-target")
	}

	path := PathCat(d.root, req.Target)
	if strings.HasSuffix(req.Target, "/") {
		path += DefaultDocument
	}

	f, err := d.fs.Open(path)
	if errors.Is(err, api.ErrNotFound) {
		return protocol.NewError(req, api.KindNotFound, d.server,
			"The resource '"+req.Target+"' was not found.")
	}
	if err != nil {
		return protocol.NewError(req, api.KindInternalError, d.server,
			"An error occurred: '"+reason(err)+"'")
	}
	return protocol.NewFile(req, d.server, protocol.MimeType(path), f)
}

// reason strips the path from filesystem errors so clients never see the
// layout under root.
func reason(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return "internal error"
}

// PathCat joins root and target, dropping one trailing "/" from root.
func PathCat(root, target string) string {
	if root == "" {
		return target
	}
	return strings.TrimSuffix(root, "/") + target
}

func auditEntry(req *api.Request, remote net.Addr) api.AuditEntry {
	fields := make([]api.HeaderField, len(req.Header))
	copy(fields, req.Header)
	return api.AuditEntry{
		Remote:  splitRemote(remote),
		Method:  req.Method,
		Target:  req.Target,
		Version: req.Version(),
		Fields:  fields,
	}
}

func splitRemote(addr net.Addr) api.AuditRemote {
	switch a := addr.(type) {
	case nil:
		return api.AuditRemote{}
	case *net.TCPAddr:
		return api.AuditRemote{Addr: a.IP.String(), Port: a.Port}
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return api.AuditRemote{Addr: addr.String()}
	}
	p, _ := strconv.Atoi(port)
	return api.AuditRemote{Addr: host, Port: p}
}
