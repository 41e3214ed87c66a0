package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"fleetwatch/internal/domain"
)

// MessagePublisher is the slice of *nats.Conn the publisher needs.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher forwards every valid fix to <subject>.<vessel id>.
type NATSPublisher struct {
	ch      <-chan *domain.Fix
	conn    MessagePublisher
	subject string
	log     logrus.FieldLogger
}

// ConnectNATS dials url with unlimited reconnects.
func ConnectNATS(url string, log logrus.FieldLogger) (*nats.Conn, error) {
	log = log.WithField("component", "nats")
	nc, err := nats.Connect(url,
		nats.Name("fleetengine"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

func NewNATSPublisher(ch <-chan *domain.Fix, conn MessagePublisher, subject string, log logrus.FieldLogger) *NATSPublisher {
	return &NATSPublisher{
		ch:      ch,
		conn:    conn,
		subject: subject,
		log:     log.WithField("component", "nats_publisher"),
	}
}

func (p *NATSPublisher) Subject(vesselID string) string {
	return p.subject + "." + vesselID
}

func (p *NATSPublisher) Run(ctx context.Context) {
	for {
		select {
		case f, ok := <-p.ch:
			if !ok {
				return
			}
			data, err := f.JSON()
			if err != nil {
				p.log.WithError(err).Error("encode fix")
				continue
			}
			if err := p.conn.Publish(p.Subject(f.VesselID), data); err != nil {
				p.log.WithError(err).WithField("vessel_id", f.VesselID).Warn("nats publish failed")
			}

		case <-ctx.Done():
			return
		}
	}
}
