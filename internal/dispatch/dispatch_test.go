package dispatch_test

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/fake"
	"github.com/momentics/hioload-http/internal/dispatch"
)

var remote = &net.TCPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 51234}

func site() *fake.FileSystem {
	fsys := fake.NewFileSystem()
	fsys.AddFile("/site/index.html", bytes.Repeat([]byte("i"), 120))
	fsys.AddFile("/site/app.js", bytes.Repeat([]byte("j"), 40))
	fsys.AddError("/site/secret.txt", &fs.PathError{Op: "open", Path: "/site/secret.txt", Err: fs.ErrPermission})
	fsys.AddError("/site/broken", errors.New("disk on fire at /site/broken"))
	return fsys
}

func request(method, target string) *api.Request {
	return &api.Request{
		Method:    method,
		Target:    target,
		Major:     1,
		Minor:     1,
		KeepAlive: true,
		Header:    []api.HeaderField{{Name: "Host", Value: "example"}, {Name: "Accept", Value: "*/*"}},
	}
}

func TestDispatchScenarios(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		kind     api.ResponseKind
		status   int
		ctype    string
		length   int64
		withBody bool
	}{
		{"root serves index", "GET", "/", api.KindOkFile, 200, "text/html", 120, true},
		{"head omits body", "HEAD", "/app.js", api.KindOkEmpty, 200, "application/javascript", 40, false},
		{"dotdot rejected", "GET", "/../etc/passwd", api.KindBadRequest, 400, "text/html", -1, true},
		{"post rejected", "POST", "/", api.KindBadRequest, 400, "text/html", -1, true},
		{"missing file", "GET", "/missing.png", api.KindNotFound, 404, "text/html", -1, true},
		{"relative target", "GET", "index.html", api.KindBadRequest, 400, "text/html", -1, true},
		{"empty target", "GET", "", api.KindBadRequest, 400, "text/html", -1, true},
		{"open failure", "GET", "/secret.txt", api.KindInternalError, 500, "text/html", -1, true},
		{"head error has no body", "HEAD", "/missing", api.KindNotFound, 404, "text/html", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := dispatch.New("/site", site(), dispatch.WithServerName("hioload-http"))
			res := d.Dispatch(request(tt.method, tt.target), remote)
			defer res.Close()

			if res.Kind != tt.kind || res.Status != tt.status {
				t.Fatalf("got %v/%d, want %v/%d", res.Kind, res.Status, tt.kind, tt.status)
			}
			if res.ContentType != tt.ctype {
				t.Errorf("Content-Type = %q, want %q", res.ContentType, tt.ctype)
			}
			if tt.length >= 0 && res.ContentLength != tt.length {
				t.Errorf("Content-Length = %d, want %d", res.ContentLength, tt.length)
			}
			if res.OmitBody == tt.withBody {
				t.Errorf("OmitBody = %v", res.OmitBody)
			}
			if res.Server != "hioload-http" || !res.KeepAlive {
				t.Errorf("server %q keep-alive %v", res.Server, res.KeepAlive)
			}
		})
	}
}

func TestDispatchErrorTexts(t *testing.T) {
	d := dispatch.New("/site", site())
	cases := map[string]string{
		"/missing":    "The resource '/missing' was not found.",
		"/secret.txt": "An error occurred: 'permission denied'",
		"/broken":     "An error occurred: 'internal error'",
		"/a/../b":     "Illegal request-target",
	}
	for target, want := range cases {
		if got := string(d.Dispatch(request("GET", target), remote).Text); got != want {
			t.Errorf("%s: text = %q, want %q", target, got, want)
		}
	}
	if got := string(d.Dispatch(request("PUT", "/"), remote).Text); got != "Unknown HTTP-method" {
		t.Errorf("PUT text = %q", got)
	}
}

func TestDispatchResolvesPaths(t *testing.T) {
	fs := site()
	d := dispatch.New("/site/", fs)
	d.Dispatch(request("GET", "/"), remote).Close()
	d.Dispatch(request("GET", "/app.js"), remote).Close()
	d.Dispatch(request("GET", "/POST"), remote).Close()

	want := []string{"/site/index.html", "/site/app.js", "/site/POST"}
	got := fs.Opened()
	if len(got) != len(want) {
		t.Fatalf("opened %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("opened[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatchRejectsBeforeOpening(t *testing.T) {
	fs := site()
	d := dispatch.New("/site", fs)
	d.Dispatch(request("DELETE", "/app.js"), remote)
	d.Dispatch(request("GET", "/x/../app.js"), remote)
	if len(fs.Opened()) != 0 {
		t.Errorf("filesystem touched: %v", fs.Opened())
	}
}

func TestHeadClosesFile(t *testing.T) {
	d := dispatch.New("/site", site())
	res := d.Dispatch(request("HEAD", "/app.js"), remote)
	if res.Body != nil {
		t.Fatal("HEAD response kept a body stream")
	}
}

func TestGetStreamsFile(t *testing.T) {
	d := dispatch.New("/site", site())
	res := d.Dispatch(request("GET", "/app.js"), remote)
	f, ok := res.Body.(*fake.File)
	if !ok {
		t.Fatalf("body is %T", res.Body)
	}
	b, _ := io.ReadAll(f)
	if len(b) != 40 {
		t.Errorf("body length %d", len(b))
	}
	res.Close()
	if !f.Closed() {
		t.Error("Close did not release the file")
	}
}

func TestAuditAlwaysRecorded(t *testing.T) {
	auditor := &fake.Auditor{}
	d := dispatch.New("/site", site(), dispatch.WithAuditor(auditor))
	req := request("POST", "/../x")
	req.Major, req.Minor = 1, 0
	d.Dispatch(req, remote)
	d.Dispatch(request("GET", "/"), remote).Close()

	entries := auditor.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	e := entries[0]
	if e.Remote.Addr != "10.0.0.7" || e.Remote.Port != 51234 {
		t.Errorf("remote = %+v", e.Remote)
	}
	if e.Method != "POST" || e.Target != "/../x" || e.Version != "1.0" {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Fields) != 2 || e.Fields[0].Name != "Host" || e.Fields[1].Name != "Accept" {
		t.Errorf("fields = %+v", e.Fields)
	}
}

func TestOSFileSystem(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	var fs dispatch.OSFileSystem

	f, err := fs.Open(filepath.Join(root, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if f.Size() != 5 {
		t.Errorf("size = %d, want 5", f.Size())
	}
	f.Close()

	if _, err := fs.Open(filepath.Join(root, "nope")); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("missing file error = %v", err)
	}
	if _, err := fs.Open(filepath.Join(root, "dir")); err == nil || errors.Is(err, api.ErrNotFound) {
		t.Errorf("directory error = %v", err)
	}
}

func TestDispatchOverDisk(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "style.CSS"), []byte("body{}"), 0o644)
	d := dispatch.New(root, nil)

	res := d.Dispatch(request("GET", "/style.CSS"), remote)
	defer res.Close()
	if res.Status != 200 || res.ContentType != "text/css" || res.ContentLength != 6 {
		t.Errorf("got %d %q %d", res.Status, res.ContentType, res.ContentLength)
	}
	if res := d.Dispatch(request("GET", "/"), remote); res.Status != 404 {
		t.Errorf("missing index status = %d", res.Status)
	}

	os.Mkdir(filepath.Join(root, "sub"), 0o755)
	dir := d.Dispatch(request("GET", "/sub"), remote)
	if dir.Status != 500 || string(dir.Text) != "An error occurred: 'is a directory'" {
		t.Errorf("directory: %d %q", dir.Status, dir.Text)
	}
	if strings.Contains(string(dir.Text), root) {
		t.Errorf("error text exposes the document root: %q", dir.Text)
	}
}

func TestPathCat(t *testing.T) {
	cases := []struct{ root, target, want string }{
		{"/site", "/a", "/site/a"},
		{"/site/", "/a", "/site/a"},
		{"", "/a", "/a"},
	}
	for _, c := range cases {
		if got := dispatch.PathCat(c.root, c.target); got != c.want {
			t.Errorf("PathCat(%q, %q) = %q, want %q", c.root, c.target, got, c.want)
		}
	}
}
