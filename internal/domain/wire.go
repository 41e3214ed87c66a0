package domain

import (
	"encoding/json"
	"strconv"
)

// wireFix is the JSON frame the engine broadcasts to dashboards. The
// uppercase ID key is what existing consumers expect.
type wireFix struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
	IsValid   bool    `json:"isValid"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Speed     float64 `json:"speed"`
	Course    float64 `json:"course"`
	Sats      int     `json:"sats"`
	Alt       float64 `json:"alt"`
	ID        string  `json:"ID"`
}

// JSON encodes f as a broadcast frame. timestamp is the sentence's hhmmss
// UTC time as a number, 0 when absent.
func (f *Fix) JSON() ([]byte, error) {
	ts, _ := strconv.ParseFloat(f.UTCTime, 64)
	return json.Marshal(wireFix{
		Type:      f.Type,
		Timestamp: ts,
		IsValid:   f.Valid,
		Lat:       f.Latitude,
		Lon:       f.Longitude,
		Speed:     f.SpeedKts,
		Course:    f.CourseDeg,
		Sats:      f.Satellites,
		Alt:       f.AltitudeM,
		ID:        f.VesselID,
	})
}
