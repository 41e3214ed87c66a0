package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"fleetwatch/internal/domain"
)

type StateStore interface {
	PipelineStateUpdate(ctx context.Context, f *domain.Fix) error
}

const (
	stateBatchSize     = 100
	stateFlushInterval = 50 * time.Millisecond
)

// StateWriter keeps the live vessel state in Redis current.
type StateWriter struct {
	ch    <-chan *domain.Fix
	store StateStore
	log   logrus.FieldLogger
}

func NewStateWriter(ch <-chan *domain.Fix, store StateStore, log logrus.FieldLogger) *StateWriter {
	return &StateWriter{ch: ch, store: store, log: log.WithField("component", "state_writer")}
}

func (w *StateWriter) Run(ctx context.Context) {
	batch := make([]*domain.Fix, 0, stateBatchSize)
	ticker := time.NewTicker(stateFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case f, ok := <-w.ch:
			if !ok {
				w.flushBatch(context.Background(), batch)
				return
			}
			batch = append(batch, f)
			if len(batch) >= stateBatchSize {
				w.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			w.flushBatch(context.Background(), batch)
			return
		}
	}
}

// flushBatch only writes the newest fix per vessel; older ones are stale.
func (w *StateWriter) flushBatch(ctx context.Context, batch []*domain.Fix) {
	latest := make(map[string]*domain.Fix, len(batch))
	order := make([]string, 0, len(batch))
	for _, f := range batch {
		if _, seen := latest[f.VesselID]; !seen {
			order = append(order, f.VesselID)
		}
		latest[f.VesselID] = f
	}
	for _, id := range order {
		if err := w.store.PipelineStateUpdate(ctx, latest[id]); err != nil {
			w.log.WithError(err).WithField("vessel_id", id).Error("redis state update failed")
		}
	}
}
