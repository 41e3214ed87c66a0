// Package render projects dashboard state onto a map model and a HUD.
//
// Nothing here mutates shared state: every marker carries its own icon
// configuration and every model is built fresh from a store snapshot.
package render

import (
	"strconv"

	"fleetwatch/internal/domain"
)

const (
	TileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	Attribution = "&copy; OpenStreetMap"

	FleetPrecision       = 4
	TrackCoordPrecision  = 6
	TrackMotionPrecision = 1

	WaitingText = "Waiting for signals..."
)

// Icon is the per-marker icon configuration handed to the map widget.
type Icon struct {
	URL       string `json:"iconUrl"`
	ShadowURL string `json:"shadowUrl"`
	Size      [2]int `json:"iconSize"`
	Anchor    [2]int `json:"iconAnchor"`
}

// DefaultIcon is the stock Leaflet pin served from the CDN.
func DefaultIcon() Icon {
	return Icon{
		URL:       "https://unpkg.com/leaflet@1.9.4/dist/images/marker-icon.png",
		ShadowURL: "https://unpkg.com/leaflet@1.9.4/dist/images/marker-shadow.png",
		Size:      [2]int{25, 41},
		Anchor:    [2]int{12, 41},
	}
}

type Marker struct {
	ID    string   `json:"id"`
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
	Popup []string `json:"popup"`
	Icon  Icon     `json:"icon"`
}

type Viewport struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

// FleetViewport is the world view the fleet map opens on.
var FleetViewport = Viewport{Lat: 0, Lon: 0, Zoom: 2}

type MapModel struct {
	Viewport    Viewport `json:"viewport"`
	Markers     []Marker `json:"markers"`
	TileURL     string   `json:"tileUrl"`
	Attribution string   `json:"attribution"`
}

// FormatFixed renders v rounded to exactly digits decimals.
func FormatFixed(v float64, digits int) string {
	return strconv.FormatFloat(v, 'f', digits, 64)
}

// FleetMap places one marker per entity, in the order given.
func FleetMap(entities []domain.Entity, icon Icon) MapModel {
	markers := make([]Marker, 0, len(entities))
	for _, e := range entities {
		popup := []string{e.ID}
		if e.Speed != nil {
			popup = append(popup, strconv.FormatFloat(*e.Speed, 'f', -1, 64)+" kts")
		}
		markers = append(markers, Marker{ID: e.ID, Lat: e.Lat, Lon: e.Lon, Popup: popup, Icon: icon})
	}
	return MapModel{
		Viewport:    FleetViewport,
		Markers:     markers,
		TileURL:     TileURL,
		Attribution: Attribution,
	}
}

// TrackMap places the single-track marker inside the camera's viewport.
func TrackMap(tr domain.Track, vp Viewport, icon Icon) MapModel {
	return MapModel{
		Viewport: vp,
		Markers: []Marker{{
			ID:    "vehicle",
			Lat:   tr.Lat,
			Lon:   tr.Lon,
			Popup: []string{"Vehicle", FormatFixed(tr.Speed, TrackMotionPrecision) + " kts"},
			Icon:  icon,
		}},
		TileURL:     TileURL,
		Attribution: Attribution,
	}
}

// Camera follows the single-track record.
type Camera struct {
	vp Viewport
}

func NewCamera(lat, lon float64, zoom int) *Camera {
	return &Camera{vp: Viewport{Lat: lat, Lon: lon, Zoom: zoom}}
}

// Follow recentres on (lat, lon) and reports whether the centre moved.
func (c *Camera) Follow(lat, lon float64) bool {
	if c.vp.Lat == lat && c.vp.Lon == lon {
		return false
	}
	c.vp.Lat, c.vp.Lon = lat, lon
	return true
}

func (c *Camera) Viewport() Viewport {
	return c.vp
}
