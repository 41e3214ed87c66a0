package dashboard

import (
	"context"
	"fmt"
	"io"

	"fleetwatch/internal/render"
)

func renderPage(w io.Writer, title string, v *View) error {
	return render.WritePage(w, title, v.Render(), RelayPath)
}

// clearScreen homes the cursor and clears the terminal.
const clearScreen = "\x1b[H\x1b[2J"

// RunTerminal redraws the text HUD on w after every store change until ctx is done.
func RunTerminal(ctx context.Context, v *View, w io.Writer) error {
	changes, cancel := v.Changes().Subscribe()
	defer cancel()

	draw := func() error {
		if _, err := fmt.Fprint(w, clearScreen); err != nil {
			return err
		}
		return render.WriteText(w, v.Render().HUD)
	}
	if err := draw(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := draw(); err != nil {
				return err
			}
		}
	}
}
