package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"fleetwatch/internal/config"
)

// Line is one raw NMEA line tagged with the vessel it came from.
type Line struct {
	VesselID string
	Text     string
	At       time.Time
}

// Source produces raw lines for one vessel until ctx is cancelled or the
// underlying device fails.
type Source interface {
	ID() string
	Run(ctx context.Context, emit func(Line)) error
	Close() error
}

// FromConfig opens every configured source. On failure the ones already
// opened are closed.
func FromConfig(cfgs []config.SourceConfig) ([]Source, error) {
	out := make([]Source, 0, len(cfgs))
	for _, c := range cfgs {
		var (
			s   Source
			err error
		)
		switch c.Kind {
		case config.SourceSerial:
			s, err = OpenSerial(c.ID, c.Device, c.Baud)
		default:
			s, err = ListenUDP(c.ID, c.Port)
		}
		if err != nil {
			for _, o := range out {
				_ = o.Close()
			}
			return nil, fmt.Errorf("source %s: %w", c.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// scanLines emits each non-empty line of r. A datagram or serial read may
// carry several CRLF-separated sentences.
func scanLines(r io.Reader, id string, emit func(Line)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		emit(Line{VesselID: id, Text: text, At: time.Now()})
	}
	return sc.Err()
}
