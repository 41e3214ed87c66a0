package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"fleetwatch/internal/domain"
)

type HUDField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type HUDRow struct {
	Label  string     `json:"label,omitempty"`
	Fields []HUDField `json:"fields"`
}

// HUD is the textual overlay shown next to the map.
type HUD struct {
	Title  string   `json:"title"`
	Status string   `json:"status"`
	Online bool     `json:"online"`
	Empty  string   `json:"empty,omitempty"`
	Rows   []HUDRow `json:"rows"`
}

func statusText(st domain.ConnectionStatus) (string, bool) {
	if st.Online() {
		return "ONLINE", true
	}
	return "OFFLINE", false
}

// FleetHUD lists every entity's position at fleet precision.
func FleetHUD(st domain.ConnectionStatus, entities []domain.Entity) HUD {
	text, online := statusText(st)
	hud := HUD{Title: "FLEET COMMAND", Status: text, Online: online, Rows: make([]HUDRow, 0, len(entities))}
	if len(entities) == 0 {
		hud.Empty = WaitingText
		return hud
	}
	for _, e := range entities {
		hud.Rows = append(hud.Rows, HUDRow{
			Label: e.ID,
			Fields: []HUDField{
				{Name: "Lat", Value: FormatFixed(e.Lat, FleetPrecision)},
				{Name: "Lon", Value: FormatFixed(e.Lon, FleetPrecision)},
			},
		})
	}
	return hud
}

// TrackHUD shows the single-track record beside the connection status.
func TrackHUD(st domain.ConnectionStatus, tr domain.Track) HUD {
	text, online := statusText(st)
	return HUD{
		Title:  "GPS TRACKER",
		Status: text,
		Online: online,
		Rows: []HUDRow{{
			Fields: []HUDField{
				{Name: "Lat", Value: FormatFixed(tr.Lat, TrackCoordPrecision)},
				{Name: "Lon", Value: FormatFixed(tr.Lon, TrackCoordPrecision)},
				{Name: "Speed", Value: FormatFixed(tr.Speed, TrackMotionPrecision) + " kts"},
				{Name: "Course", Value: FormatFixed(tr.Course, TrackMotionPrecision) + "°"},
			},
		}},
	}
}

// WriteText renders the HUD as a plain-text table.
func WriteText(w io.Writer, hud HUD) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", hud.Title)
	fmt.Fprintf(tw, "STATUS: %s\n", hud.Status)
	fmt.Fprintf(tw, "%s\n", strings.Repeat("-", 40))
	if hud.Empty != "" {
		fmt.Fprintf(tw, "%s\n", hud.Empty)
	}
	for _, row := range hud.Rows {
		cells := make([]string, 0, len(row.Fields)+1)
		if row.Label != "" {
			cells = append(cells, row.Label)
		}
		for _, f := range row.Fields {
			cells = append(cells, f.Name+": "+f.Value)
		}
		fmt.Fprintf(tw, "%s\n", strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
