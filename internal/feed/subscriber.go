package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/metrics"
)

// Handler receives feed events. Calls are made from a single goroutine, one
// at a time, in arrival order.
type Handler interface {
	HandleFrame(payload []byte)
	SetStatus(status domain.ConnectionStatus)
}

type Config struct {
	URL string

	// MaxRetries bounds consecutive failed reconnects. Zero disables reconnecting.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	HandshakeTimeout time.Duration
}

type Subscriber struct {
	cfg     Config
	dialer  *websocket.Dialer
	handler Handler
	log     logrus.FieldLogger
}

func NewSubscriber(cfg Config, h Handler, log logrus.FieldLogger) (*Subscriber, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("feed url is required")
	}
	if h == nil {
		return nil, fmt.Errorf("feed handler is nil")
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}

	return &Subscriber{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		handler: h,
		log:     log.WithField("endpoint", cfg.URL),
	}, nil
}

// Run connects and reads frames until ctx is cancelled or the reconnect
// budget is spent. Cancelling ctx closes the socket and returns nil.
func (s *Subscriber) Run(ctx context.Context) error {
	b := s.newBackOff()

	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			b.Reset()
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			if s.cfg.MaxRetries == 0 {
				s.log.WithError(err).Warn("feed closed, reconnect disabled")
			} else {
				s.log.WithError(err).Errorf("feed closed, giving up after %d retries", s.cfg.MaxRetries)
			}
			return fmt.Errorf("feed %s: %w", s.cfg.URL, err)
		}

		metrics.FeedReconnects.Add(1)
		s.log.WithError(err).WithField("retry_in", wait.String()).Warn("feed closed, reconnecting")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (s *Subscriber) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.cfg.InitialBackoff
	exp.MaxInterval = s.cfg.MaxBackoff
	exp.MaxElapsedTime = 0

	b := backoff.WithMaxRetries(exp, uint64(s.cfg.MaxRetries))
	b.Reset()
	return b
}

// session runs one connection and reports whether the dial succeeded.
func (s *Subscriber) session(ctx context.Context) (bool, error) {
	s.handler.SetStatus(domain.StatusConnecting)

	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		s.handler.SetStatus(domain.StatusDisconnected)
		return false, fmt.Errorf("dial: %w", err)
	}
	s.handler.SetStatus(domain.StatusConnected)
	s.log.Info("feed connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		mt, payload, err := conn.ReadMessage()
		if err != nil {
			s.handler.SetStatus(domain.StatusDisconnected)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, errors.New("closed by server")
			}
			return true, fmt.Errorf("read: %w", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		metrics.FramesReceived.Add(1)
		s.handler.HandleFrame(payload)
	}
}
