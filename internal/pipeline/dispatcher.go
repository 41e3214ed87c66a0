package pipeline

import (
	"sync"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/metrics"
)

// Dispatcher fans fixes out to the pipeline stages. Sends never block; a
// full stage drops the fix and counts it. A nil channel means the stage is
// disabled.
type Dispatcher struct {
	BroadcastChan chan *domain.Fix
	StateChan     chan *domain.Fix
	TrackChan     chan *domain.Fix
	AlertChan     chan *domain.Fix
	PublishChan   chan *domain.Fix

	mu     sync.RWMutex
	closed bool
}

type Sizes struct {
	Broadcast int
	State     int
	Track     int
	Alert     int
	Publish   int
}

// NewDispatcher allocates a channel for every stage with a positive size.
func NewDispatcher(s Sizes) *Dispatcher {
	mk := func(n int) chan *domain.Fix {
		if n <= 0 {
			return nil
		}
		return make(chan *domain.Fix, n)
	}
	return &Dispatcher{
		BroadcastChan: mk(s.Broadcast),
		StateChan:     mk(s.State),
		TrackChan:     mk(s.Track),
		AlertChan:     mk(s.Alert),
		PublishChan:   mk(s.Publish),
	}
}

// Dispatch routes valid fixes to every stage. Invalid fixes only reach the
// alert stage. Fixes arriving after Close are dropped.
func (d *Dispatcher) Dispatch(fix domain.Fix) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.DispatchAfterClose.Add(1)
		return
	}

	f := &fix
	send(d.AlertChan, f, &metrics.AlertChannelDrops)
	if !f.Valid {
		return
	}
	send(d.BroadcastChan, f, &metrics.BroadcastChannelDrops)
	send(d.StateChan, f, &metrics.StateChannelDrops)
	send(d.TrackChan, f, &metrics.TrackChannelDrops)
	send(d.PublishChan, f, &metrics.PublishChannelDrops)
}

type counter interface{ Add(int64) int64 }

func send(ch chan *domain.Fix, f *domain.Fix, drops counter) {
	if ch == nil {
		return
	}
	select {
	case ch <- f:
	default:
		drops.Add(1)
	}
}

// Close closes every stage channel so the writers flush and return. It is
// safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range []chan *domain.Fix{d.BroadcastChan, d.StateChan, d.TrackChan, d.AlertChan, d.PublishChan} {
		if ch != nil {
			close(ch)
		}
	}
}
