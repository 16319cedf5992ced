package websocket_test

import (
	"bufio"
	"bytes"
	"log"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/internal/transport"
	"github.com/momentics/hioload-http/protocol"
	ws "github.com/momentics/hioload-http/internal/websocket"
)

// serveHandoffs accepts connections, parses one request each and hands the
// transport to h, the way a session does after reading an upgrade request.
func serveHandoffs(t *testing.T, h api.Handoff) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				tr, err := transport.New(conn, api.ModePlain, nil, nil)
				if err != nil {
					conn.Close()
					return
				}
				br := bufio.NewReader(tr)
				req, err := protocol.ReadRequest(br, protocol.Limits{})
				if err != nil {
					tr.Abort()
					return
				}
				buffered, _ := br.Peek(br.Buffered())
				h.Handoff(tr, append([]byte(nil), buffered...), req)
			}()
		}
	}()
	return ln.Addr().String()
}

func TestEchoOverHandoff(t *testing.T) {
	metrics := control.NewMetricsRegistry()
	h := ws.NewEchoHandler(ws.WithMetrics(metrics), ws.WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	addr := serveHandoffs(t, h)

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	for _, msg := range []string{"hioload-http", "second message"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		mt, got, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if mt != websocket.TextMessage || string(got) != msg {
			t.Errorf("echo = %d %q, want %q", mt, got, msg)
		}
	}
	if h.Active() != 1 {
		t.Errorf("active = %d, want 1", h.Active())
	}
	if metrics.Counter(ws.MetricUpgrades) != 1 {
		t.Error("upgrade not counted")
	}

	done := make(chan struct{})
	go func() {
		h.Close()
		close(done)
	}()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not wait for connections to end")
	}
}

func TestFailedUpgradeAnswersWithError(t *testing.T) {
	var logs bytes.Buffer
	metrics := control.NewMetricsRegistry()
	h := ws.NewEchoHandler(ws.WithMetrics(metrics), ws.WithLogger(log.New(&logs, "", 0)))
	addr := serveHandoffs(t, h)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	// No Sec-WebSocket-Key.
	conn.Write([]byte("GET /ws HTTP/1.1\r\nHost: x\r\nConnection: Upgrade\r\nUpgrade: websocket\r\nSec-WebSocket-Version: 13\r\n\r\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if !resp.Close {
		t.Error("error response should close the connection")
	}
}

func TestCheckOriginOption(t *testing.T) {
	h := ws.NewEchoHandler(
		ws.WithLogger(log.New(&bytes.Buffer{}, "", 0)),
		ws.WithCheckOrigin(func(origin, host string) bool { return strings.HasSuffix(origin, ".trusted") }),
	)
	addr := serveHandoffs(t, h)

	hdr := http.Header{"Origin": {"http://evil.example"}}
	if _, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", hdr); err == nil {
		t.Fatal("untrusted origin accepted")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp = %v, err = %v", resp, err)
	}

	hdr = http.Header{"Origin": {"http://app.trusted"}}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", hdr)
	if err != nil {
		t.Fatalf("trusted origin rejected: %v", err)
	}
	conn.Close()
}
