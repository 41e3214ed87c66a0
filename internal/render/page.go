package render

import (
	_ "embed"
	"html/template"
	"io"
)

//go:embed page.html
var pageHTML string

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

// View is one complete render: overlay plus map.
type View struct {
	HUD HUD      `json:"hud"`
	Map MapModel `json:"map"`
}

type pageData struct {
	Title     string
	View      View
	RelayPath string
}

// WritePage renders the map page seeded with v. The page keeps itself current
// over the websocket relay at relayPath on the same host.
func WritePage(w io.Writer, title string, v View, relayPath string) error {
	return pageTmpl.Execute(w, pageData{Title: title, View: v, RelayPath: relayPath})
}
