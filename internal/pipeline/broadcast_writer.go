package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"fleetwatch/internal/domain"
)

type Broadcaster interface {
	Broadcast(vesselID string, frame []byte)
}

// BroadcastWriter encodes fixes as feed frames and hands them to the hub.
type BroadcastWriter struct {
	ch  <-chan *domain.Fix
	out Broadcaster
	log logrus.FieldLogger
}

func NewBroadcastWriter(ch <-chan *domain.Fix, out Broadcaster, log logrus.FieldLogger) *BroadcastWriter {
	return &BroadcastWriter{ch: ch, out: out, log: log.WithField("component", "broadcast_writer")}
}

func (w *BroadcastWriter) Run(ctx context.Context) {
	for {
		select {
		case f, ok := <-w.ch:
			if !ok {
				return
			}
			frame, err := f.JSON()
			if err != nil {
				w.log.WithError(err).WithField("vessel_id", f.VesselID).Error("encode frame")
				continue
			}
			w.out.Broadcast(f.VesselID, frame)

		case <-ctx.Done():
			return
		}
	}
}
