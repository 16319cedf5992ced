package api_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/momentics/hioload-http/api"
)

func TestModeString(t *testing.T) {
	if api.ModePlain.String() != "plain" || api.ModeTLS.String() != "tls" {
		t.Fatalf("unexpected mode names: %s %s", api.ModePlain, api.ModeTLS)
	}
	if api.Mode(7).String() != "unknown" {
		t.Fatal("out-of-range mode should be unknown")
	}
}

func TestTransportInterfaceCompliance(t *testing.T) {
	var _ api.Transport = (*mockTransport)(nil)
}

func TestSessionStateTerminal(t *testing.T) {
	for _, s := range []api.SessionState{api.StateClosed, api.StateHandedOff} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []api.SessionState{api.StateHandshaking, api.StateReading, api.StateWriting, api.StateEofShutdown} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestRequestHelpers(t *testing.T) {
	req := &api.Request{
		Method: "GET",
		Target: "/",
		Major:  1,
		Minor:  1,
		Header: []api.HeaderField{
			{Name: "Host", Value: "a"},
			{Name: "X-Dup", Value: "1"},
			{Name: "x-dup", Value: "2"},
		},
	}
	if got := req.Get("host"); got != "a" {
		t.Errorf("Get(host) = %q", got)
	}
	if got := req.Values("X-DUP"); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("Values(X-DUP) = %v", got)
	}
	if req.Version() != "1.1" {
		t.Errorf("Version() = %q", req.Version())
	}
	if !req.AtLeast(1, 0) || req.AtLeast(2, 0) {
		t.Error("AtLeast comparison wrong")
	}
}

func TestStructuredErrorUnwrap(t *testing.T) {
	err := api.NewError(api.ErrCodeInvalidArgument, "bad root").WithContext("root", "")
	if !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatal("structured error should unwrap to ErrInvalidArgument")
	}
}

// mockTransport satisfies api.Transport for the compile-time check.
type mockTransport struct{}

func (*mockTransport) Mode() api.Mode                    { return api.ModePlain }
func (*mockTransport) Handshake(context.Context) error   { return nil }
func (*mockTransport) Read(p []byte) (int, error)        { return 0, nil }
func (*mockTransport) Write(p []byte) (int, error)       { return len(p), nil }
func (*mockTransport) HalfClose() error                  { return nil }
func (*mockTransport) Abort() error                      { return nil }
func (*mockTransport) Conn() net.Conn                    { return nil }
func (*mockTransport) RemoteAddr() net.Addr              { return nil }
