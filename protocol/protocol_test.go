package protocol_test

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/protocol"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadRequestPreservesHeaderOrder(t *testing.T) {
	br := reader("GET /a?b=c HTTP/1.1\r\nHost: x\r\nX-Dup: 1\r\nAccept: */*\r\nX-Dup:  2 \r\n\r\n")
	req, err := protocol.ReadRequest(br, protocol.Limits{})
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if req.Method != "GET" || req.Target != "/a?b=c" || req.Version() != "1.1" {
		t.Fatalf("unexpected request line: %+v", req)
	}
	want := []api.HeaderField{
		{Name: "Host", Value: "x"},
		{Name: "X-Dup", Value: "1"},
		{Name: "Accept", Value: "*/*"},
		{Name: "X-Dup", Value: "2"},
	}
	if len(req.Header) != len(want) {
		t.Fatalf("got %d headers, want %d", len(req.Header), len(want))
	}
	for i := range want {
		if req.Header[i] != want[i] {
			t.Errorf("header %d = %+v, want %+v", i, req.Header[i], want[i])
		}
	}
}

func TestReadRequestKeepAlive(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"GET / HTTP/1.1\r\n\r\n", true},
		{"GET / HTTP/1.1\r\nConnection: close\r\n\r\n", false},
		{"GET / HTTP/1.1\r\nConnection: Upgrade, Close\r\n\r\n", false},
		{"GET / HTTP/1.0\r\n\r\n", false},
		{"GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n", true},
	}
	for _, tc := range cases {
		req, err := protocol.ReadRequest(reader(tc.raw), protocol.Limits{})
		if err != nil {
			t.Fatalf("%q: %v", tc.raw, err)
		}
		if req.KeepAlive != tc.want {
			t.Errorf("%q: keep-alive = %v, want %v", tc.raw, req.KeepAlive, tc.want)
		}
	}
}

func TestReadRequestPipelined(t *testing.T) {
	br := reader("GET /1 HTTP/1.1\r\nContent-Length: 3\r\n\r\nabcHEAD /2 HTTP/1.1\r\n\r\n")
	first, err := protocol.ReadRequest(br, protocol.Limits{})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := protocol.ReadRequest(br, protocol.Limits{})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.Target != "/1" || second.Target != "/2" || second.Method != "HEAD" {
		t.Fatalf("unexpected pipeline parse: %+v %+v", first, second)
	}
	if _, err := protocol.ReadRequest(br, protocol.Limits{}); !errors.Is(err, api.ErrEndOfStream) {
		t.Fatalf("expected end of stream, got %v", err)
	}
}

func TestReadRequestErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"truncated", "GET / HTTP/1.1\r\nHost: x", io.ErrUnexpectedEOF},
		{"bad line", "GARBAGE\r\n\r\n", api.ErrMalformedRequest},
		{"bad version", "GET / HTTP/2.0\r\n\r\n", api.ErrMalformedRequest},
		{"bad header", "GET / HTTP/1.1\r\nNo Colon Here\r\n\r\n", api.ErrMalformedRequest},
		{"folding", "GET / HTTP/1.1\r\nA: b\r\n c\r\n\r\n", api.ErrMalformedRequest},
		{"chunked", "GET / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n", api.ErrNotSupported},
		{"conflicting length", "GET / HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\n", api.ErrMalformedRequest},
		{"short body", "GET / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc", io.ErrUnexpectedEOF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := protocol.ReadRequest(reader(tc.raw), protocol.Limits{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReadRequestHeaderLimit(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 200) + "\r\n\r\n"
	_, err := protocol.ReadRequest(reader(raw), protocol.Limits{MaxHeaderBytes: 64})
	if !errors.Is(err, api.ErrHeaderTooLarge) {
		t.Fatalf("expected ErrHeaderTooLarge, got %v", err)
	}
	raw = "GET / HTTP/1.1\r\nContent-Length: 100\r\n\r\n"
	_, err = protocol.ReadRequest(reader(raw), protocol.Limits{MaxBodyBytes: 10})
	if !errors.Is(err, api.ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}

type memFile struct {
	*bytes.Reader
	closed bool
}

func (f *memFile) Close() error { f.closed = true; return nil }

func TestWriteResponseFile(t *testing.T) {
	req := &api.Request{Method: "GET", Target: "/x.js", Major: 1, Minor: 1, KeepAlive: true}
	f := &memFile{Reader: bytes.NewReader([]byte("console.log(1)"))}
	res := protocol.NewFile(req, "hioload", protocol.MimeType("/x.js"), f)
	if res.Kind != api.KindOkFile || res.ContentLength != 14 {
		t.Fatalf("unexpected response: %+v", res)
	}

	var out bytes.Buffer
	if err := protocol.WriteResponse(&out, res); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	want := "HTTP/1.1 200 OK\r\nServer: hioload\r\nContent-Type: application/javascript\r\nContent-Length: 14\r\n\r\nconsole.log(1)"
	if out.String() != want {
		t.Fatalf("wire mismatch:\n%q\n%q", out.String(), want)
	}
}

func TestWriteResponseHeadOmitsBody(t *testing.T) {
	req := &api.Request{Method: "HEAD", Target: "/x.js", Major: 1, Minor: 1}
	f := &memFile{Reader: bytes.NewReader(make([]byte, 40))}
	res := protocol.NewFile(req, "hioload", "application/javascript", f)
	if res.Kind != api.KindOkEmpty || !f.closed {
		t.Fatalf("HEAD should yield OkEmpty and close the file: %+v closed=%v", res, f.closed)
	}
	var out bytes.Buffer
	if err := protocol.WriteResponse(&out, res); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out.String(), "Content-Length: 40\r\nConnection: close\r\n\r\n") {
		t.Fatalf("unexpected HEAD wire: %q", out.String())
	}
}

func TestWriteResponseError(t *testing.T) {
	req := &api.Request{Method: "GET", Target: "/nope", Major: 1, Minor: 0, KeepAlive: true}
	res := protocol.NewError(req, api.KindNotFound, "", "missing")
	var out bytes.Buffer
	if err := protocol.WriteResponse(&out, res); err != nil {
		t.Fatal(err)
	}
	want := "HTTP/1.0 404 Not Found\r\nContent-Type: text/html\r\nContent-Length: 7\r\nConnection: keep-alive\r\n\r\nmissing"
	if out.String() != want {
		t.Fatalf("wire mismatch:\n%q\n%q", out.String(), want)
	}
}

func TestIsUpgrade(t *testing.T) {
	up := &api.Request{Method: "GET", Major: 1, Minor: 1, Header: []api.HeaderField{
		{Name: "Connection", Value: "keep-alive, Upgrade"},
		{Name: "Upgrade", Value: "WebSocket"},
	}}
	if !protocol.IsUpgrade(up) {
		t.Fatal("expected upgrade")
	}
	old := *up
	old.Minor = 0
	if protocol.IsUpgrade(&old) {
		t.Fatal("HTTP/1.0 cannot upgrade")
	}
	post := *up
	post.Method = "POST"
	if protocol.IsUpgrade(&post) {
		t.Fatal("POST cannot upgrade")
	}
	plain := &api.Request{Method: "GET", Major: 1, Minor: 1}
	if protocol.IsUpgrade(plain) {
		t.Fatal("plain GET is not an upgrade")
	}
}

func TestMimeType(t *testing.T) {
	cases := map[string]string{
		"/index.html":     "text/html",
		"/INDEX.HTM":      "text/html",
		"/a.php":          "text/html",
		"/s.CSS":          "text/css",
		"/r.txt":          "text/plain",
		"/app.js":         "application/javascript",
		"/d.json":         "application/json",
		"/d.xml":          "application/xml",
		"/m.swf":          "application/x-shockwave-flash",
		"/v.flv":          "video/x-flv",
		"/p.png":          "image/png",
		"/p.jpe":          "image/jpeg",
		"/p.JPEG":         "image/jpeg",
		"/p.jpg":          "image/jpeg",
		"/p.gif":          "image/gif",
		"/p.bmp":          "image/bmp",
		"/favicon.ico":    "image/vnd.microsoft.icon",
		"/p.tiff":         "image/tiff",
		"/p.tif":          "image/tiff",
		"/p.svg":          "image/svg+xml",
		"/p.svgz":         "image/svg+xml",
		"/README":         "application/text",
		"/archive.tar.gz": "application/text",
		"/dir.d/file":     "application/text",
	}
	for path, want := range cases {
		if got := protocol.MimeType(path); got != want {
			t.Errorf("MimeType(%q) = %q, want %q", path, got, want)
		}
	}
}
