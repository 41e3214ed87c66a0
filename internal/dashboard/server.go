package dashboard

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"fleetwatch/internal/config"
	"fleetwatch/internal/metrics"
)

const RelayPath = "/ws/view"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler serves the map page, the JSON views and the browser relay.
func Handler(v *View, log logrus.FieldLogger) http.Handler {
	log = log.WithField("component", "dashboard_http")
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metrics.HandleMetrics)

	mux.HandleFunc("/api/hud", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, v.Render().HUD)
	})
	mux.HandleFunc("/api/map", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, v.Render().Map)
	})
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, v.Snapshot())
	})
	mux.HandleFunc(RelayPath, func(w http.ResponseWriter, r *http.Request) {
		serveRelay(w, r, v, log)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		title := "Fleet Command"
		if v.Variant() == config.VariantTrack {
			title = "GPS Tracker"
		}
		var buf bytes.Buffer
		if err := renderPage(&buf, title, v); err != nil {
			log.WithError(err).Error("render page")
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})

	return withLogging(mux, log)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(h http.Handler, log logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithField("method", r.Method).WithField("path", r.URL.Path).Debug("request")
		h.ServeHTTP(w, r)
	})
}

// serveRelay pushes a fresh render to the browser after every store change.
func serveRelay(w http.ResponseWriter, r *http.Request, v *View, log logrus.FieldLogger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("relay upgrade failed")
		return
	}
	defer conn.Close()

	changes, cancel := v.Changes().Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(v.Render())
	}
	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-changes:
			if err := send(); err != nil {
				log.WithError(err).Debug("relay client dropped")
				return
			}
		}
	}
}
