package source

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"fleetwatch/internal/config"
	"fleetwatch/internal/metrics"
)

func TestScanLines_SplitsDatagram(t *testing.T) {
	var got []Line
	err := scanLines(strings.NewReader("$GPGGA,1*00\r\n\r\n$GPRMC,2*00\r\n"), "Alpha", func(l Line) {
		got = append(got, l)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || got[0].Text != "$GPGGA,1*00" || got[1].Text != "$GPRMC,2*00" {
		t.Fatalf("lines=%+v", got)
	}
	if got[0].VesselID != "Alpha" || got[0].At.IsZero() {
		t.Fatalf("line=%+v", got[0])
	}
}

func TestUDP_ReceivesAndStops(t *testing.T) {
	u, err := ListenUDP("Bravo", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var (
		mu  sync.Mutex
		got []Line
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- u.Run(ctx, func(l Line) {
			mu.Lock()
			got = append(got, l)
			mu.Unlock()
		})
	}()

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: u.Addr().Port})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("$A*00\r\n$B*00\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("received %d lines", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("udp source did not stop")
	}
	if got[0].VesselID != "Bravo" {
		t.Fatalf("line=%+v", got[0])
	}
}

func TestFromConfig_UDP(t *testing.T) {
	srcs, err := FromConfig([]config.SourceConfig{
		{ID: "Alpha", Kind: config.SourceUDP, Port: 0},
		{ID: "Bravo", Kind: config.SourceUDP, Port: 0},
	})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	defer func() {
		for _, s := range srcs {
			_ = s.Close()
		}
	}()
	if len(srcs) != 2 || srcs[0].ID() != "Alpha" || srcs[1].ID() != "Bravo" {
		t.Fatalf("sources=%v", srcs)
	}
}

func TestFromConfig_ClosesOnFailure(t *testing.T) {
	_, err := FromConfig([]config.SourceConfig{
		{ID: "Alpha", Kind: config.SourceUDP, Port: 0},
		{ID: "Broken", Kind: config.SourceSerial, Device: "/nonexistent/tty", Baud: 4800},
	})
	if err == nil || !strings.Contains(err.Error(), "Broken") {
		t.Fatalf("err=%v", err)
	}
}

func TestQueue_DropsWhenFullAndDrains(t *testing.T) {
	q := NewQueue(2)
	drops := metrics.QueueDrops.Load()

	for i := 0; i < 3; i++ {
		q.Push(Line{Text: string(rune('a' + i))})
	}
	if d := metrics.QueueDrops.Load() - drops; d != 1 {
		t.Fatalf("drops=%d want 1", d)
	}

	q.Shutdown()
	q.Shutdown()
	if q.Push(Line{Text: "late"}) {
		t.Fatalf("push accepted after shutdown")
	}

	var texts []string
	for l := range q.Lines() {
		texts = append(texts, l.Text)
	}
	if strings.Join(texts, "") != "ab" {
		t.Fatalf("drained %v", texts)
	}
}
