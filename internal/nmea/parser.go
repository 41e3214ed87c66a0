package nmea

import (
	"errors"
	"sync"
	"time"

	"fleetwatch/internal/domain"
	"fleetwatch/internal/metrics"
)

// Parser turns raw lines into fixes and notifies registered listeners.
type Parser struct {
	mu        sync.RWMutex
	listeners []func(domain.Fix)
	now       func() time.Time
}

func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// OnFix registers fn for every parsed fix, valid or not.
func (p *Parser) OnFix(fn func(domain.Fix)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// HandleLine parses one line from vesselID and notifies listeners. Lines that
// fail to parse are returned as errors and never reach listeners.
func (p *Parser) HandleLine(vesselID, line string) (domain.Fix, error) {
	metrics.LinesReceived.Add(1)

	fix, err := Parse(line)
	if err != nil {
		if errors.Is(err, ErrChecksum) {
			metrics.ChecksumFailures.Add(1)
		}
		return domain.Fix{}, err
	}
	fix.VesselID = vesselID
	fix.ReceivedAt = p.now()
	metrics.FixesParsed.Add(1)

	p.mu.RLock()
	ls := p.listeners
	p.mu.RUnlock()
	for _, fn := range ls {
		fn(fix)
	}
	return fix, nil
}
