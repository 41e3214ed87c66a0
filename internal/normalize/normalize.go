// Package normalize turns inbound feed frames into dashboard records.
//
// Upstream producers do not agree on how the identifier field is spelled, so
// identifiers are resolved through an ordered alias list at decode time.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"fleetwatch/internal/domain"
)

var (
	ErrMalformed          = errors.New("normalize: malformed payload")
	ErrNoIdentifier       = errors.New("normalize: no identifier")
	ErrMissingCoordinates = errors.New("normalize: missing coordinates")
)

// CanonicalID is the only key the identifier is stored under after normalisation.
const CanonicalID = "id"

// IDAliases are the accepted identifier keys, highest priority first.
// "ID" comes from producers that serialise struct field names verbatim and
// "sourceID" from the legacy source-tagged packet format.
var IDAliases = []string{CanonicalID, "ID", "sourceID"}

// Decode parses one text frame into a JSON object.
func Decode(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return rec, nil
}

// ResolveID returns the first non-empty identifier found under IDAliases.
func ResolveID(rec map[string]any) (string, bool) {
	for _, key := range IDAliases {
		if id, ok := idString(rec[key]); ok {
			return id, true
		}
	}
	return "", false
}

// Entity normalises a fleet record. The returned Fields is a fresh copy with
// alias keys removed and the identifier stored under CanonicalID.
func Entity(rec map[string]any) (domain.Entity, error) {
	id, ok := ResolveID(rec)
	if !ok {
		return domain.Entity{}, ErrNoIdentifier
	}

	fields := make(map[string]any, len(rec))
	for k, v := range rec {
		fields[k] = plain(v)
	}
	for _, alias := range IDAliases {
		delete(fields, alias)
	}
	fields[CanonicalID] = id

	ent := domain.Entity{ID: id, Fields: fields}
	ent.Lat, _ = number(rec["lat"])
	ent.Lon, _ = number(rec["lon"])
	if speed, ok := number(rec["speed"]); ok {
		ent.Speed = &speed
	}
	return ent, nil
}

// Track normalises a single-track record. Both lat and lon must be present and
// non-zero; the record otherwise replaces the previous one wholesale.
func Track(rec map[string]any) (domain.Track, error) {
	lat, latOK := number(rec["lat"])
	lon, lonOK := number(rec["lon"])
	if !latOK || !lonOK || lat == 0 || lon == 0 {
		return domain.Track{}, ErrMissingCoordinates
	}

	tr := domain.Track{Lat: lat, Lon: lon}
	tr.Speed, _ = number(rec["speed"])
	tr.Course, _ = number(rec["course"])
	if sats, ok := number(rec["sats"]); ok {
		tr.Sats = int(sats)
	}
	tr.IsValid = truthy(rec["isValid"])
	return tr, nil
}

func idString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case json.Number:
		f, err := x.Float64()
		if err != nil || f == 0 || math.IsNaN(f) {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	case float64:
		if x == 0 || math.IsNaN(x) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	case json.Number, float64:
		f, _ := number(x)
		return f != 0 && !math.IsNaN(f)
	default:
		return v != nil
	}
}

// plain converts json.Number leaves to float64 so Fields re-encodes as plain JSON numbers.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = plain(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = plain(vv)
		}
		return out
	default:
		return v
	}
}
