package http

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"fleetwatch/internal/domain"
)

const maxIngestBody = 1 << 20

// LineHandler parses one NMEA line for a vessel. nmea.Parser satisfies it.
type LineHandler interface {
	HandleLine(vesselID, line string) (domain.Fix, error)
}

type IngestResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// IngestHandler accepts newline-delimited NMEA sentences for the vessel the
// API key resolved to. It must sit behind AuthMiddleware.
func IngestHandler(lines LineHandler, log logrus.FieldLogger) http.Handler {
	log = log.WithField("component", "ingest")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		vesselID, ok := VesselID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "no vessel bound to API key")
			return
		}

		var res IngestResult
		sc := bufio.NewScanner(io.LimitReader(r.Body, maxIngestBody))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if _, err := lines.HandleLine(vesselID, line); err != nil {
				res.Rejected++
				log.WithError(err).WithField("vessel_id", vesselID).Debug("rejected line")
				continue
			}
			res.Accepted++
		}
		if err := sc.Err(); err != nil {
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
