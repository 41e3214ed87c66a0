package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetwatch/internal/config"
	"fleetwatch/internal/domain"
)

type TimescaleStore struct {
	pool *pgxpool.Pool
}

func NewTimescaleStore(ctx context.Context, cfg *config.Config) (*TimescaleStore, error) {
	pool, err := pgxpool.New(ctx, cfg.Postgres())
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &TimescaleStore{pool: pool}, nil
}

func (s *TimescaleStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *TimescaleStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var trackColumns = []string{
	"received_at",
	"vessel_id",
	"sentence",
	"utc_time",
	"latitude",
	"longitude",
	"altitude_m",
	"speed_kts",
	"course_deg",
	"fix_quality",
	"satellites",
	"hdop",
	"is_valid",
	"raw",
}

func trackRows(fixes []*domain.Fix) [][]interface{} {
	rows := make([][]interface{}, len(fixes))
	for i, f := range fixes {
		rows[i] = []interface{}{
			f.ReceivedAt,
			f.VesselID,
			f.Type,
			f.UTCTime,
			f.Latitude,
			f.Longitude,
			f.AltitudeM,
			f.SpeedKts,
			f.CourseDeg,
			f.FixQuality,
			f.Satellites,
			f.HDOP,
			f.Valid,
			f.Raw,
		}
	}
	return rows
}

// BatchInsert copies fixes into the track_points hypertable.
func (s *TimescaleStore) BatchInsert(ctx context.Context, fixes []*domain.Fix) error {
	if len(fixes) == 0 {
		return nil
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"track_points"},
		trackColumns,
		pgx.CopyFromRows(trackRows(fixes)),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(fixes), err)
	}
	return nil
}

func (s *TimescaleStore) InsertAlert(
	ctx context.Context,
	vesselID string,
	alertType domain.AlertType,
	severity domain.AlertSeverity,
	triggerValue float64,
) error {
	query := `
		INSERT INTO vessel_alerts
			(vessel_id, alert_type, severity, triggered_value, created_at)
		VALUES
			($1, $2, $3, $4, NOW())
		ON CONFLICT DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query, vesselID, string(alertType), string(severity), triggerValue)
	if err != nil {
		return fmt.Errorf("insert alert for %s: %w", vesselID, err)
	}
	return nil
}
