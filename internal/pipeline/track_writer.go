package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/metrics"
)

// TrackSink persists batches of fixes. Timescale and SQLite both satisfy it.
type TrackSink interface {
	BatchInsert(ctx context.Context, fixes []*domain.Fix) error
}

type TrackWriter struct {
	ch         <-chan *domain.Fix
	sink       TrackSink
	batchSize  int
	flushEvery time.Duration
	retryWait  time.Duration
	log        logrus.FieldLogger
}

func NewTrackWriter(
	ch <-chan *domain.Fix,
	sink TrackSink,
	batchSize int,
	flushMS int,
	log logrus.FieldLogger,
) *TrackWriter {
	if batchSize <= 0 {
		batchSize = 200
	}
	if flushMS <= 0 {
		flushMS = 250
	}
	return &TrackWriter{
		ch:         ch,
		sink:       sink,
		batchSize:  batchSize,
		flushEvery: time.Duration(flushMS) * time.Millisecond,
		retryWait:  500 * time.Millisecond,
		log:        log.WithField("component", "track_writer"),
	}
}

func (w *TrackWriter) Run(ctx context.Context) {
	batch := make([]*domain.Fix, 0, w.batchSize)
	ticker := time.NewTicker(w.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case f, ok := <-w.ch:
			if !ok {
				if len(batch) > 0 {
					w.flush(context.Background(), batch)
				}
				return
			}
			batch = append(batch, f)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			if len(batch) > 0 {
				w.flush(context.Background(), batch)
			}
			return
		}
	}
}

// flush retries once before giving the batch up.
func (w *TrackWriter) flush(ctx context.Context, batch []*domain.Fix) {
	err := w.sink.BatchInsert(ctx, batch)
	if err != nil {
		w.log.WithError(err).WithField("batch", len(batch)).Warn("track write failed, retrying")
		time.Sleep(w.retryWait)
		err = w.sink.BatchInsert(ctx, batch)
		if err != nil {
			w.log.WithError(err).WithField("batch", len(batch)).Error("track write permanently failed")
			metrics.TrackWriteFailures.Add(int64(len(batch)))
			return
		}
	}
	metrics.TrackWriteSuccess.Add(int64(len(batch)))
}
