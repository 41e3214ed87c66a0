package domain

// ConnectionStatus is the feed state shown on the HUD.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
)

// Online reports whether the HUD should show the feed as live.
func (s ConnectionStatus) Online() bool {
	return s == StatusConnected
}

// Entity is the last-known state of one identified fleet member.
// Fields holds the full normalised record, with the identifier under "id".
type Entity struct {
	ID     string         `json:"id"`
	Lat    float64        `json:"lat"`
	Lon    float64        `json:"lon"`
	Speed  *float64       `json:"speed,omitempty"`
	Fields map[string]any `json:"fields"`
}

// Track is the single-vehicle GPS record.
type Track struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Speed   float64 `json:"speed"`
	Course  float64 `json:"course"`
	Sats    int     `json:"sats"`
	IsValid bool    `json:"isValid"`
}
