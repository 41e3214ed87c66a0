package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/logging"
	"fleetwatch/internal/render"
)

func get(t *testing.T, ts *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHandler_Routes(t *testing.T) {
	v := NewFleetView(render.DefaultIcon(), logging.Discard())
	v.HandleFrame([]byte(`{"id":"A","lat":1.5,"lon":2.5}`))
	ts := httptest.NewServer(Handler(v, logging.Discard()))
	defer ts.Close()

	code, body := get(t, ts, "/")
	if code != http.StatusOK || !strings.Contains(body, "Fleet Command") || !strings.Contains(body, "new WebSocket") {
		t.Fatalf("page code=%d body=%.200s", code, body)
	}

	_, body = get(t, ts, "/api/hud")
	var hud render.HUD
	if err := json.Unmarshal([]byte(body), &hud); err != nil {
		t.Fatalf("hud json: %v", err)
	}
	if hud.Title != "FLEET COMMAND" || len(hud.Rows) != 1 || hud.Rows[0].Fields[0].Value != "1.5000" {
		t.Fatalf("hud=%+v", hud)
	}

	_, body = get(t, ts, "/api/map")
	var m render.MapModel
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("map json: %v", err)
	}
	if len(m.Markers) != 1 || m.Markers[0].ID != "A" {
		t.Fatalf("map=%+v", m)
	}

	_, body = get(t, ts, "/api/state")
	var snap Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		t.Fatalf("state json: %v", err)
	}
	if snap.Variant != "fleet" || len(snap.Entities) != 1 || snap.Status != domain.StatusDisconnected {
		t.Fatalf("snapshot=%+v", snap)
	}

	if code, body := get(t, ts, "/healthz"); code != http.StatusOK || body != "ok" {
		t.Fatalf("healthz code=%d body=%q", code, body)
	}
	if _, body := get(t, ts, "/metrics"); !strings.Contains(body, "fleetwatch_frames_malformed_total") {
		t.Fatalf("metrics missing counters:\n%s", body)
	}
	if code, _ := get(t, ts, "/nope"); code != http.StatusNotFound {
		t.Fatalf("unknown path code=%d", code)
	}
}

func TestHandler_TrackPageTitle(t *testing.T) {
	v := NewTrackView(munich, render.DefaultIcon(), logging.Discard())
	ts := httptest.NewServer(Handler(v, logging.Discard()))
	defer ts.Close()

	_, body := get(t, ts, "/")
	if !strings.Contains(body, "GPS Tracker") {
		t.Fatalf("track title missing")
	}
}

func TestRelay_PushesOnChange(t *testing.T) {
	v := NewFleetView(render.DefaultIcon(), logging.Discard())
	ts := httptest.NewServer(Handler(v, logging.Discard()))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + RelayPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial relay: %v", err)
	}
	defer conn.Close()

	read := func() render.View {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var out render.View
		if err := conn.ReadJSON(&out); err != nil {
			t.Fatalf("read relay: %v", err)
		}
		return out
	}

	if first := read(); first.HUD.Empty != render.WaitingText {
		t.Fatalf("initial view=%+v", first.HUD)
	}

	v.HandleFrame([]byte(`{"id":"Bravo","lat":3,"lon":4}`))
	next := read()
	if len(next.Map.Markers) != 1 || next.Map.Markers[0].ID != "Bravo" {
		t.Fatalf("pushed view=%+v", next.Map)
	}
}

func TestRunTerminal_RedrawsUntilCancelled(t *testing.T) {
	v := NewFleetView(render.DefaultIcon(), logging.Discard())
	out := &lockedBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunTerminal(ctx, v, out) }()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), render.WaitingText) {
		if time.Now().After(deadline) {
			t.Fatalf("initial draw missing: %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	v.HandleFrame([]byte(`{"id":"Charlie","lat":3,"lon":4}`))
	for !strings.Contains(out.String(), "Charlie") {
		if time.Now().After(deadline) {
			t.Fatalf("redraw missing: %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("terminal returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("terminal did not stop")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
