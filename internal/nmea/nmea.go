package nmea

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	gonmea "github.com/adrianmo/go-nmea"

	"fleetwatch/internal/domain"
)

var (
	ErrMalformed   = errors.New("nmea: malformed sentence")
	ErrChecksum    = errors.New("nmea: checksum mismatch")
	ErrUnsupported = errors.New("nmea: unsupported sentence")
)

// Parse decodes a single GGA or RMC sentence. Talker prefixes are ignored, so
// GPGGA and GNGGA parse the same way. A sentence that decodes but carries no
// usable position is returned with Valid=false and a nil error.
func Parse(line string) (domain.Fix, error) {
	line = strings.TrimSpace(line)
	dollar := strings.IndexByte(line, '$')
	if dollar == -1 {
		return domain.Fix{}, fmt.Errorf("%w: missing '$'", ErrMalformed)
	}
	line = line[dollar:]

	star := strings.LastIndexByte(line, '*')
	if star == -1 {
		return domain.Fix{}, fmt.Errorf("%w: missing checksum", ErrMalformed)
	}
	payload := line[1:star]
	if want, got := strings.ToUpper(line[star+1:]), gonmea.Checksum(payload); want != got {
		return domain.Fix{}, fmt.Errorf("%w: got %s want %q", ErrChecksum, got, want)
	}

	fields := strings.Split(payload, ",")
	prefix := fields[0]
	if len(prefix) < 3 {
		return domain.Fix{}, fmt.Errorf("%w: short type %q", ErrMalformed, prefix)
	}
	switch prefix[len(prefix)-3:] {
	case gonmea.TypeGGA, gonmea.TypeRMC:
	default:
		return domain.Fix{}, fmt.Errorf("%w: %s", ErrUnsupported, prefix)
	}

	s, err := gonmea.Parse(line)
	if err != nil {
		if fix, ok := noFix(prefix, line, fields[1:]); ok {
			return fix, nil
		}
		return domain.Fix{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch m := s.(type) {
	case gonmea.GGA:
		return fromGGA(m), nil
	case gonmea.RMC:
		return fromRMC(m), nil
	}
	return domain.Fix{}, fmt.Errorf("%w: %s", ErrUnsupported, s.Prefix())
}

// GGA fields: 0 time, 1-4 position, 5 fix quality.
func fromGGA(m gonmea.GGA) domain.Fix {
	fix := domain.Fix{
		Type:       m.Prefix(),
		UTCTime:    field(m.Fields, 0),
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		AltitudeM:  m.Altitude,
		FixQuality: atoi(m.FixQuality),
		Satellites: int(m.NumSatellites),
		HDOP:       m.HDOP,
		Raw:        m.Raw,
	}
	fix.Valid = fix.FixQuality > 0 && hasPosition(m.Fields, 1)
	return fix
}

// RMC fields: 0 time, 1 status, 2-5 position, 8 date.
func fromRMC(m gonmea.RMC) domain.Fix {
	return domain.Fix{
		Type:      m.Prefix(),
		UTCTime:   field(m.Fields, 0),
		Date:      field(m.Fields, 8),
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		SpeedKts:  m.Speed,
		CourseDeg: m.Course,
		Valid:     m.Validity == gonmea.ValidRMC && hasPosition(m.Fields, 2),
		Raw:       m.Raw,
	}
}

// noFix covers receivers that report "no fix" with empty position fields,
// which go-nmea rejects as unparseable coordinates.
func noFix(prefix, raw string, f []string) (domain.Fix, bool) {
	fix := domain.Fix{Type: prefix, UTCTime: field(f, 0), Raw: raw}
	switch prefix[len(prefix)-3:] {
	case gonmea.TypeGGA:
		if len(f) < 7 || atoi(field(f, 5)) != 0 {
			return domain.Fix{}, false
		}
		fix.Satellites = atoi(field(f, 6))
	case gonmea.TypeRMC:
		if len(f) < 9 || field(f, 1) == gonmea.ValidRMC {
			return domain.Fix{}, false
		}
		fix.Date = field(f, 8)
	}
	return fix, true
}

// ToDecimalDegrees converts ddmm.mmmm / dddmm.mmmm plus hemisphere to signed
// decimal degrees.
func ToDecimalDegrees(pos, hemi string) (float64, bool) {
	pos = strings.TrimSpace(pos)
	hemi = strings.ToUpper(strings.TrimSpace(hemi))
	switch hemi {
	case gonmea.North, gonmea.South, gonmea.East, gonmea.West:
	default:
		return 0, false
	}

	dot := strings.IndexByte(pos, '.')
	if dot == -1 {
		dot = len(pos)
	}
	if dot < 3 {
		return 0, false
	}
	raw, err := strconv.ParseFloat(pos, 64)
	if err != nil || math.Mod(raw, 100) >= 60 {
		return 0, false
	}

	v, err := gonmea.ParseGPS(pos + " " + hemi)
	if err != nil {
		return 0, false
	}
	return v, true
}

func hasPosition(f []string, from int) bool {
	for i := from; i < from+4; i++ {
		if field(f, i) == "" {
			return false
		}
	}
	return true
}

func field(f []string, i int) string {
	if i >= len(f) {
		return ""
	}
	return strings.TrimSpace(f[i])
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
