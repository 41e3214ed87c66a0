package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Serial reads NMEA from a tty such as /dev/ttyUSB0.
type Serial struct {
	id   string
	dev  string
	r    io.ReadCloser
	once sync.Once
}

func OpenSerial(id, device string, baud int) (*Serial, error) {
	f, err := openSerial(device, baud)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return &Serial{id: id, dev: device, r: f}, nil
}

func (s *Serial) ID() string { return s.id }

func (s *Serial) Run(ctx context.Context, emit func(Line)) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	err := scanLines(s.r, s.id, emit)
	if ctx.Err() != nil || err == nil || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return fmt.Errorf("serial %s read: %w", s.dev, err)
}

func (s *Serial) Close() error {
	var err error
	s.once.Do(func() { err = s.r.Close() })
	return err
}
