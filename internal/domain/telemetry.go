package domain

import (
	"strings"
	"time"
)

// Fix is one decoded NMEA position report for a vessel.
type Fix struct {
	ReceivedAt time.Time

	VesselID string
	Type     string // sentence type, e.g. GPGGA or GPRMC
	UTCTime  string // hhmmss[.sss] as sent
	Date     string // ddmmyy, RMC only

	Latitude  float64
	Longitude float64
	AltitudeM float64

	SpeedKts   float64
	CourseDeg  float64
	FixQuality int
	Satellites int
	HDOP       float64

	Valid bool

	Raw string
}

type AlertType string

const (
	AlertOverspeed     AlertType = "OVERSPEED"
	AlertLowSatellites AlertType = "LOW_SATELLITES"
	AlertNoFix         AlertType = "NO_FIX"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

type AlertRule struct {
	Type      AlertType
	Severity  AlertSeverity
	Evaluator func(f *Fix) bool
	Value     func(f *Fix) float64
}

// AlertRules returns the default rule set. Satellite counts are only known
// for GGA sentences, so the satellite rule ignores RMC fixes.
func AlertRules(overspeedKts float64) []AlertRule {
	return []AlertRule{
		{
			Type:      AlertOverspeed,
			Severity:  SeverityWarning,
			Evaluator: func(f *Fix) bool { return f.Valid && f.SpeedKts > overspeedKts },
			Value:     func(f *Fix) float64 { return f.SpeedKts },
		},
		{
			Type:     AlertLowSatellites,
			Severity: SeverityWarning,
			Evaluator: func(f *Fix) bool {
				return f.Valid && isGGA(f.Type) && f.Satellites < 4
			},
			Value: func(f *Fix) float64 { return float64(f.Satellites) },
		},
		{
			Type:      AlertNoFix,
			Severity:  SeverityCritical,
			Evaluator: func(f *Fix) bool { return !f.Valid && isGGA(f.Type) },
			Value:     func(f *Fix) float64 { return float64(f.FixQuality) },
		},
	}
}

func isGGA(t string) bool {
	return len(t) >= 3 && strings.EqualFold(t[len(t)-3:], "GGA")
}
