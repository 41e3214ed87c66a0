package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"fleetwatch/internal/domain"
)

// SQLiteLogger is the embedded track log used when no Timescale instance is
// configured.
type SQLiteLogger struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteLogger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// tracklog has a single writer
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tracklog (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		vessel_id TEXT NOT NULL,
		sentence  TEXT NOT NULL,
		lat       REAL NOT NULL,
		lon       REAL NOT NULL,
		speed     REAL NOT NULL DEFAULT 0
	)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tracklog table: %w", err)
	}
	return &SQLiteLogger{db: db}, nil
}

func (l *SQLiteLogger) Close() error {
	return l.db.Close()
}

// BatchInsert appends fixes in a single transaction.
func (l *SQLiteLogger) BatchInsert(ctx context.Context, fixes []*domain.Fix) error {
	if len(fixes) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tracklog (timestamp, vessel_id, sentence, lat, lon, speed) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare tracklog insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range fixes {
		_, err := stmt.ExecContext(ctx,
			f.ReceivedAt.UTC().Format(time.RFC3339Nano),
			f.VesselID,
			f.Type,
			f.Latitude,
			f.Longitude,
			f.SpeedKts,
		)
		if err != nil {
			return fmt.Errorf("insert tracklog row for %s: %w", f.VesselID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tracklog batch of %d: %w", len(fixes), err)
	}
	return nil
}

type TrackPoint struct {
	Timestamp time.Time `json:"timestamp"`
	VesselID  string    `json:"vessel_id"`
	Sentence  string    `json:"sentence"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Speed     float64   `json:"speed"`
}

// Recent returns up to limit points for a vessel, newest first.
func (l *SQLiteLogger) Recent(ctx context.Context, vesselID string, limit int) ([]TrackPoint, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT timestamp, vessel_id, sentence, lat, lon, speed
		FROM tracklog
		WHERE vessel_id = ?
		ORDER BY id DESC
		LIMIT ?`, vesselID, limit)
	if err != nil {
		return nil, fmt.Errorf("query tracklog: %w", err)
	}
	defer rows.Close()

	var out []TrackPoint
	for rows.Next() {
		var (
			p  TrackPoint
			ts string
		)
		if err := rows.Scan(&ts, &p.VesselID, &p.Sentence, &p.Lat, &p.Lon, &p.Speed); err != nil {
			return nil, fmt.Errorf("scan tracklog row: %w", err)
		}
		p.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, p)
	}
	return out, rows.Err()
}
