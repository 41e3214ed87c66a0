package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"fleetwatch/internal/domain"
)

// AlertState dedups and publishes alerts. RedisStore satisfies it.
type AlertState interface {
	CheckAlertDedup(ctx context.Context, vesselID string, t domain.AlertType) (bool, error)
	SetAlertDedup(ctx context.Context, vesselID string, t domain.AlertType) error
	PublishAlert(ctx context.Context, vesselID string, payload []byte) error
}

// AlertRecorder persists fired alerts. TimescaleStore satisfies it.
type AlertRecorder interface {
	InsertAlert(ctx context.Context, vesselID string, t domain.AlertType, sev domain.AlertSeverity, value float64) error
}

type AlertEvaluator struct {
	ch    <-chan *domain.Fix
	db    AlertRecorder
	state AlertState
	rules []domain.AlertRule
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewAlertEvaluator wires the rule set. db may be nil when no database is
// configured; alerts are then only published.
func NewAlertEvaluator(
	ch <-chan *domain.Fix,
	db AlertRecorder,
	state AlertState,
	rules []domain.AlertRule,
	log logrus.FieldLogger,
) *AlertEvaluator {
	return &AlertEvaluator{
		ch:    ch,
		db:    db,
		state: state,
		rules: rules,
		log:   log.WithField("component", "alert_evaluator"),
		now:   time.Now,
	}
}

func (e *AlertEvaluator) Run(ctx context.Context) {
	for {
		select {
		case f, ok := <-e.ch:
			if !ok {
				return
			}
			e.evaluate(ctx, f)

		case <-ctx.Done():
			return
		}
	}
}

func (e *AlertEvaluator) evaluate(ctx context.Context, f *domain.Fix) {
	for _, rule := range e.rules {
		if !rule.Evaluator(f) {
			continue
		}
		log := e.log.WithField("vessel_id", f.VesselID).WithField("alert_type", rule.Type)

		dup, err := e.state.CheckAlertDedup(ctx, f.VesselID, rule.Type)
		if err != nil {
			log.WithError(err).Warn("alert dedup check failed")
			continue
		}
		if dup {
			continue
		}

		value := rule.Value(f)
		if e.db != nil {
			if err := e.db.InsertAlert(ctx, f.VesselID, rule.Type, rule.Severity, value); err != nil {
				log.WithError(err).Error("alert insert failed")
				continue
			}
		}

		if err := e.state.SetAlertDedup(ctx, f.VesselID, rule.Type); err != nil {
			log.WithError(err).Warn("alert dedup set failed")
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"vessel_id":    f.VesselID,
			"alert_type":   string(rule.Type),
			"severity":     string(rule.Severity),
			"value":        value,
			"triggered_at": e.now().Unix(),
		})
		if err := e.state.PublishAlert(ctx, f.VesselID, payload); err != nil {
			log.WithError(err).Warn("alert publish failed")
			continue
		}
		log.WithField("value", value).Info("alert raised")
	}
}
