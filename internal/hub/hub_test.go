package hub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fleetwatch/internal/logging"
)

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.TextMessage {
		t.Fatalf("message type=%d", mt)
	}
	return string(data)
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients=%d want %d", h.Len(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	h := New(logging.Discard())
	ts := httptest.NewServer(h)
	defer ts.Close()

	a, b := dial(t, ts), dial(t, ts)
	defer a.Close()
	defer b.Close()
	waitClients(t, h, 2)

	// inbound frames are ignored
	if err := a.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	h.Broadcast("Alpha", []byte(`{"ID":"Alpha"}`))
	if got := readText(t, a); got != `{"ID":"Alpha"}` {
		t.Fatalf("a got %q", got)
	}
	if got := readText(t, b); got != `{"ID":"Alpha"}` {
		t.Fatalf("b got %q", got)
	}
}

func TestHub_ReplaysLastFramePerVessel(t *testing.T) {
	h := New(logging.Discard())
	ts := httptest.NewServer(h)
	defer ts.Close()

	h.Broadcast("Bravo", []byte(`{"ID":"Bravo","lat":1}`))
	h.Broadcast("Alpha", []byte(`{"ID":"Alpha","lat":1}`))
	h.Broadcast("Alpha", []byte(`{"ID":"Alpha","lat":2}`))

	c := dial(t, ts)
	defer c.Close()
	if got := readText(t, c); got != `{"ID":"Alpha","lat":2}` {
		t.Fatalf("first replay %q", got)
	}
	if got := readText(t, c); got != `{"ID":"Bravo","lat":1}` {
		t.Fatalf("second replay %q", got)
	}
}

func TestHub_ClientLeavesAndClose(t *testing.T) {
	h := New(logging.Discard())
	ts := httptest.NewServer(h)
	defer ts.Close()

	a := dial(t, ts)
	b := dial(t, ts)
	waitClients(t, h, 2)

	_ = a.Close()
	waitClients(t, h, 1)

	h.Close()
	waitClients(t, h, 0)
	_ = b.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Fatalf("expected closed connection")
	}
}
