package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"fleetwatch/internal/config"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	fmt.Printf("Connecting to TimescaleDB at %s:%s...\n", cfg.DBHost, cfg.DBPort)
	pool, err := pgxpool.New(ctx, cfg.Postgres())
	if err != nil {
		log.Fatalf("Pool setup failed: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Connection failed: %v\n\nIs TimescaleDB running?", err)
	}
	fmt.Println("✓ Connected")

	extensions(ctx, pool)
	trackPoints(ctx, pool)
	vesselAlerts(ctx, pool)
	indexes(ctx, pool)
	verify(ctx, pool)

	fmt.Println("\n✅ Database initialised")
	fmt.Println("   Run next: go run ./scripts/seed_redis")
}

func extensions(ctx context.Context, pool *pgxpool.Pool) {
	section("Extensions")
	execOrFatal(ctx, pool, "CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;", "timescaledb extension")
}

func trackPoints(ctx context.Context, pool *pgxpool.Pool) {
	section("track_points table")

	// Columns must match store.trackColumns.
	execOrFatal(ctx, pool, `
		CREATE TABLE IF NOT EXISTS track_points (
			received_at  TIMESTAMPTZ      NOT NULL,
			vessel_id    TEXT             NOT NULL,
			sentence     TEXT             NOT NULL,
			utc_time     TEXT,
			latitude     DOUBLE PRECISION NOT NULL,
			longitude    DOUBLE PRECISION NOT NULL,
			altitude_m   DOUBLE PRECISION NOT NULL DEFAULT 0,
			speed_kts    DOUBLE PRECISION NOT NULL DEFAULT 0,
			course_deg   DOUBLE PRECISION NOT NULL DEFAULT 0,
			fix_quality  INTEGER          NOT NULL DEFAULT 0,
			satellites   INTEGER          NOT NULL DEFAULT 0,
			hdop         DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_valid     BOOLEAN          NOT NULL DEFAULT false,
			raw          TEXT
		);
	`, "track_points table created")

	execOrFatal(ctx, pool, `
		SELECT create_hypertable('track_points', 'received_at', if_not_exists => TRUE);
	`, "track_points converted to hypertable")
}

func vesselAlerts(ctx context.Context, pool *pgxpool.Pool) {
	section("vessel_alerts table")

	execOrFatal(ctx, pool, `
		CREATE TABLE IF NOT EXISTS vessel_alerts (
			id               BIGSERIAL        PRIMARY KEY,
			vessel_id        TEXT             NOT NULL,
			alert_type       TEXT             NOT NULL,
			severity         TEXT             NOT NULL,
			triggered_value  DOUBLE PRECISION,
			created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			acknowledged_at  TIMESTAMPTZ,
			acknowledged_by  TEXT,

			CONSTRAINT chk_alert_type CHECK (
				alert_type IN ('OVERSPEED', 'LOW_SATELLITES', 'NO_FIX')
			),
			CONSTRAINT chk_severity CHECK (
				severity IN ('INFO', 'WARNING', 'CRITICAL')
			)
		);
	`, "vessel_alerts table created")
}

func indexes(ctx context.Context, pool *pgxpool.Pool) {
	section("Indexes")

	for _, idx := range []struct {
		name, sql string
	}{
		{"idx_track_vessel_time", `CREATE INDEX IF NOT EXISTS idx_track_vessel_time
			ON track_points (vessel_id, received_at DESC);`},
		{"idx_alerts_vessel", `CREATE INDEX IF NOT EXISTS idx_alerts_vessel
			ON vessel_alerts (vessel_id, created_at DESC);`},
		{"idx_alerts_unacknowledged", `CREATE INDEX IF NOT EXISTS idx_alerts_unacknowledged
			ON vessel_alerts (created_at DESC) WHERE acknowledged_at IS NULL;`},
	} {
		execOrFatal(ctx, pool, idx.sql, idx.name)
	}
}

func verify(ctx context.Context, pool *pgxpool.Pool) {
	section("Verification")

	for _, table := range []string{"track_points", "vessel_alerts"} {
		var exists bool
		err := pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)
		`, table).Scan(&exists)
		if err != nil || !exists {
			log.Fatalf("Table %s was not created: %v", table, err)
		}
		fmt.Printf("  ✓ table: %s\n", table)
	}

	var hypertable string
	err := pool.QueryRow(ctx, `
		SELECT hypertable_name FROM timescaledb_information.hypertables
		WHERE hypertable_name = 'track_points'
	`).Scan(&hypertable)
	if err != nil {
		log.Fatalf("track_points is not a hypertable: %v", err)
	}
	fmt.Printf("  ✓ hypertable: %s\n", hypertable)
}

func section(name string) {
	fmt.Printf("\n── %s ──\n", name)
}

func execOrFatal(ctx context.Context, pool *pgxpool.Pool, sql, label string) {
	if _, err := pool.Exec(ctx, sql); err != nil {
		log.Fatalf("FAILED: %s\nError: %v\nSQL: %s", label, err, sql)
	}
	fmt.Printf("  ✓ %s\n", label)
}
