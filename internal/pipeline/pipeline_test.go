package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/logging"
	"fleetwatch/internal/metrics"
)

func fix(id string, valid bool) domain.Fix {
	return domain.Fix{VesselID: id, Type: "GPRMC", Latitude: 48.1, Longitude: 11.5, Valid: valid}
}

func TestDispatcher_RoutesAndDrops(t *testing.T) {
	d := NewDispatcher(Sizes{Broadcast: 1, State: 4, Track: 4, Alert: 4})
	if d.PublishChan != nil {
		t.Fatalf("publish stage should be disabled")
	}
	drops := metrics.BroadcastChannelDrops.Load()

	d.Dispatch(fix("Alpha", true))
	d.Dispatch(fix("Alpha", true))
	d.Dispatch(fix("Alpha", false))

	if got := len(d.AlertChan); got != 3 {
		t.Fatalf("alert chan=%d want 3", got)
	}
	if got := len(d.StateChan); got != 2 {
		t.Fatalf("state chan=%d want 2", got)
	}
	if got := len(d.TrackChan); got != 2 {
		t.Fatalf("track chan=%d want 2", got)
	}
	if dd := metrics.BroadcastChannelDrops.Load() - drops; dd != 1 {
		t.Fatalf("broadcast drops=%d want 1", dd)
	}

	d.Close()
	for range d.StateChan {
	}
}

func TestDispatcher_DispatchAfterClose(t *testing.T) {
	d := NewDispatcher(Sizes{Broadcast: 4, Track: 4, Alert: 4})
	late := metrics.DispatchAfterClose.Load()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Dispatch(fix("Alpha", true))
			}
		}()
	}
	d.Close()
	d.Close()
	wg.Wait()

	d.Dispatch(fix("Alpha", true))
	if dd := metrics.DispatchAfterClose.Load() - late; dd < 1 {
		t.Fatalf("late dispatches=%d want at least 1", dd)
	}
	for range d.TrackChan {
	}
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]*domain.Fix
	fails   int
}

func (s *fakeSink) BatchInsert(_ context.Context, fixes []*domain.Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return errors.New("db down")
	}
	s.batches = append(s.batches, append([]*domain.Fix(nil), fixes...))
	return nil
}

func (s *fakeSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestTrackWriter_BatchesAndFlushesOnClose(t *testing.T) {
	ch := make(chan *domain.Fix, 10)
	sink := &fakeSink{}
	w := NewTrackWriter(ch, sink, 2, 10_000, logging.Discard())

	done := make(chan struct{})
	go func() { w.Run(context.Background()); close(done) }()

	for i := 0; i < 3; i++ {
		f := fix("Alpha", true)
		ch <- &f
	}
	close(ch)
	<-done

	if sink.total() != 3 {
		t.Fatalf("written=%d want 3", sink.total())
	}
	if len(sink.batches) != 2 || len(sink.batches[0]) != 2 {
		t.Fatalf("batches=%v", sink.batches)
	}
}

func TestTrackWriter_RetriesOnce(t *testing.T) {
	ok := metrics.TrackWriteSuccess.Load()
	failed := metrics.TrackWriteFailures.Load()

	sink := &fakeSink{fails: 1}
	w := NewTrackWriter(nil, sink, 10, 10, logging.Discard())
	w.retryWait = time.Millisecond
	f := fix("Alpha", true)
	w.flush(context.Background(), []*domain.Fix{&f})
	if metrics.TrackWriteSuccess.Load()-ok != 1 {
		t.Fatalf("retry did not succeed")
	}

	sink.fails = 2
	w.flush(context.Background(), []*domain.Fix{&f})
	if metrics.TrackWriteFailures.Load()-failed != 1 {
		t.Fatalf("failure not counted")
	}
}

type fakeState struct {
	mu        sync.Mutex
	updates   []*domain.Fix
	deduped   map[string]bool
	published map[string][][]byte
}

func newFakeState() *fakeState {
	return &fakeState{deduped: map[string]bool{}, published: map[string][][]byte{}}
}

func (s *fakeState) PipelineStateUpdate(_ context.Context, f *domain.Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, f)
	return nil
}

func (s *fakeState) CheckAlertDedup(_ context.Context, id string, t domain.AlertType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deduped[id+":"+string(t)], nil
}

func (s *fakeState) SetAlertDedup(_ context.Context, id string, t domain.AlertType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deduped[id+":"+string(t)] = true
	return nil
}

func (s *fakeState) PublishAlert(_ context.Context, id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[id] = append(s.published[id], payload)
	return nil
}

func TestStateWriter_WritesLatestPerVessel(t *testing.T) {
	st := newFakeState()
	w := NewStateWriter(nil, st, logging.Discard())
	a1, a2, b := fix("Alpha", true), fix("Alpha", true), fix("Bravo", true)
	a2.Latitude = 50
	w.flushBatch(context.Background(), []*domain.Fix{&a1, &b, &a2})

	if len(st.updates) != 2 {
		t.Fatalf("updates=%d want 2", len(st.updates))
	}
	if st.updates[0].VesselID != "Alpha" || st.updates[0].Latitude != 50 || st.updates[1].VesselID != "Bravo" {
		t.Fatalf("updates=%+v %+v", st.updates[0], st.updates[1])
	}
}

type fakeRecorder struct {
	alerts []domain.AlertType
}

func (r *fakeRecorder) InsertAlert(_ context.Context, _ string, t domain.AlertType, _ domain.AlertSeverity, _ float64) error {
	r.alerts = append(r.alerts, t)
	return nil
}

func TestAlertEvaluator_FiresOnceAndPublishes(t *testing.T) {
	st := newFakeState()
	rec := &fakeRecorder{}
	e := NewAlertEvaluator(nil, rec, st, domain.AlertRules(30), logging.Discard())
	e.now = func() time.Time { return time.Unix(1700000000, 0) }

	fast := fix("Alpha", true)
	fast.SpeedKts = 42
	e.evaluate(context.Background(), &fast)
	e.evaluate(context.Background(), &fast)

	if len(rec.alerts) != 1 || rec.alerts[0] != domain.AlertOverspeed {
		t.Fatalf("alerts=%v", rec.alerts)
	}
	if len(st.published["Alpha"]) != 1 {
		t.Fatalf("published=%d", len(st.published["Alpha"]))
	}
	var msg map[string]any
	if err := json.Unmarshal(st.published["Alpha"][0], &msg); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if msg["alert_type"] != "OVERSPEED" || msg["value"] != 42.0 || msg["triggered_at"] != 1700000000.0 {
		t.Fatalf("payload=%v", msg)
	}
}

func TestAlertEvaluator_NoFixWithoutDatabase(t *testing.T) {
	st := newFakeState()
	e := NewAlertEvaluator(nil, nil, st, domain.AlertRules(30), logging.Discard())

	lost := domain.Fix{VesselID: "Bravo", Type: "GPGGA", Valid: false}
	e.evaluate(context.Background(), &lost)
	if len(st.published["Bravo"]) != 1 {
		t.Fatalf("NO_FIX not published")
	}
}

type fakeHub struct {
	mu     sync.Mutex
	frames map[string][]byte
}

func (h *fakeHub) Broadcast(id string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames[id] = frame
}

func TestBroadcastWriter_EncodesFrames(t *testing.T) {
	ch := make(chan *domain.Fix, 1)
	h := &fakeHub{frames: map[string][]byte{}}
	w := NewBroadcastWriter(ch, h, logging.Discard())
	f := fix("Alpha", true)
	ch <- &f
	close(ch)
	w.Run(context.Background())

	var m map[string]any
	if err := json.Unmarshal(h.frames["Alpha"], &m); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if m["ID"] != "Alpha" || m["lat"] != 48.1 {
		t.Fatalf("frame=%v", m)
	}
}

type fakeNATS struct {
	subjects []string
}

func (n *fakeNATS) Publish(subject string, _ []byte) error {
	n.subjects = append(n.subjects, subject)
	return nil
}

func TestNATSPublisher_SubjectPerVessel(t *testing.T) {
	ch := make(chan *domain.Fix, 2)
	nc := &fakeNATS{}
	p := NewNATSPublisher(ch, nc, "fleet.fixes", logging.Discard())
	a, b := fix("Alpha", true), fix("Bravo", true)
	ch <- &a
	ch <- &b
	close(ch)
	p.Run(context.Background())

	if len(nc.subjects) != 2 || nc.subjects[0] != "fleet.fixes.Alpha" || nc.subjects[1] != "fleet.fixes.Bravo" {
		t.Fatalf("subjects=%v", nc.subjects)
	}
}
