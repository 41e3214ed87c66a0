package dashboard

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"fleetwatch/internal/config"
	"fleetwatch/internal/domain"
	"fleetwatch/internal/metrics"
	"fleetwatch/internal/normalize"
	"fleetwatch/internal/render"
	"fleetwatch/internal/state"
)

// TrackZoom is the zoom level the single-track map follows the vehicle at.
const TrackZoom = 15

// View owns the dashboard state for one variant and implements feed.Handler.
type View struct {
	variant config.Variant
	log     logrus.FieldLogger
	icon    render.Icon

	changes *state.Notifier
	status  *state.Status
	fleet   *state.Fleet
	track   *state.TrackStore

	camMu  sync.Mutex
	camera *render.Camera
}

func NewFleetView(icon render.Icon, log logrus.FieldLogger) *View {
	n := state.NewNotifier()
	return &View{
		variant: config.VariantFleet,
		log:     log.WithField("component", "fleet_view"),
		icon:    icon,
		changes: n,
		status:  state.NewStatus(n),
		fleet:   state.NewFleet(n),
	}
}

// NewTrackView seeds the map at seed until the first accepted message.
func NewTrackView(seed domain.Track, icon render.Icon, log logrus.FieldLogger) *View {
	n := state.NewNotifier()
	return &View{
		variant: config.VariantTrack,
		log:     log.WithField("component", "track_view"),
		icon:    icon,
		changes: n,
		status:  state.NewStatus(n),
		track:   state.NewTrackStore(seed, n),
		camera:  render.NewCamera(seed.Lat, seed.Lon, TrackZoom),
	}
}

func (v *View) Variant() config.Variant { return v.variant }

func (v *View) Changes() *state.Notifier { return v.changes }

func (v *View) Status() domain.ConnectionStatus { return v.status.Get() }

func (v *View) StatusTransitions(st domain.ConnectionStatus) int {
	return v.status.Transitions(st)
}

func (v *View) SetStatus(st domain.ConnectionStatus) {
	if v.status.Set(st) {
		v.log.WithField("status", st).Debug("feed status changed")
	}
}

// HandleFrame decodes one feed frame and applies it. Bad frames never reach the store.
func (v *View) HandleFrame(payload []byte) {
	rec, err := normalize.Decode(payload)
	if err != nil {
		metrics.FramesMalformed.Add(1)
		v.log.WithError(err).Error("dropping malformed frame")
		return
	}

	switch v.variant {
	case config.VariantTrack:
		v.applyTrack(rec)
	default:
		v.applyFleet(rec)
	}
}

func (v *View) applyFleet(rec map[string]any) {
	ent, err := normalize.Entity(rec)
	if errors.Is(err, normalize.ErrNoIdentifier) {
		metrics.MessagesNoID.Add(1)
		v.log.WithField("payload", rec).Warn("received message without an identifier")
		return
	}
	if err != nil {
		v.log.WithError(err).Warn("dropping fleet message")
		return
	}
	v.fleet.Put(ent)
}

func (v *View) applyTrack(rec map[string]any) {
	tr, err := normalize.Track(rec)
	if err != nil {
		metrics.MessagesNoCoords.Add(1)
		return
	}
	v.camMu.Lock()
	v.camera.Follow(tr.Lat, tr.Lon)
	v.camMu.Unlock()
	v.track.Set(tr)
}

// Render builds the current overlay and map from the store.
func (v *View) Render() render.View {
	st := v.status.Get()
	if v.variant == config.VariantTrack {
		tr := v.track.Get()
		v.camMu.Lock()
		vp := v.camera.Viewport()
		v.camMu.Unlock()
		return render.View{
			HUD: render.TrackHUD(st, tr),
			Map: render.TrackMap(tr, vp, v.icon),
		}
	}
	entities := v.fleet.Snapshot()
	return render.View{
		HUD: render.FleetHUD(st, entities),
		Map: render.FleetMap(entities, v.icon),
	}
}

// Snapshot is the raw store contents served on /api/state.
type Snapshot struct {
	Variant  config.Variant          `json:"variant"`
	Status   domain.ConnectionStatus `json:"status"`
	Entities []domain.Entity         `json:"entities,omitempty"`
	Track    *domain.Track           `json:"track,omitempty"`
	Received bool                    `json:"received"`
}

func (v *View) Snapshot() Snapshot {
	out := Snapshot{Variant: v.variant, Status: v.status.Get()}
	if v.variant == config.VariantTrack {
		tr := v.track.Get()
		out.Track = &tr
		out.Received = v.track.Received()
		return out
	}
	out.Entities = v.fleet.Snapshot()
	out.Received = len(out.Entities) > 0
	return out
}
