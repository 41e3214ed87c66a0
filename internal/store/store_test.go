package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fleetwatch/internal/domain"
)

func sampleFix(id string, lat, lon, speed float64) *domain.Fix {
	return &domain.Fix{
		ReceivedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		VesselID:   id,
		Type:       "GPRMC",
		UTCTime:    "120000",
		Latitude:   lat,
		Longitude:  lon,
		SpeedKts:   speed,
		Valid:      true,
	}
}

func TestSQLiteLogger_BatchInsertAndRecent(t *testing.T) {
	ctx := context.Background()
	l, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "voyage_data.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	if err := l.BatchInsert(ctx, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	err = l.BatchInsert(ctx, []*domain.Fix{
		sampleFix("Alpha", 48.1, 11.5, 3),
		sampleFix("Bravo", 50, 8, 1),
		sampleFix("Alpha", 48.2, 11.6, 4),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	pts, err := l.Recent(ctx, "Alpha", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("points=%d want 2", len(pts))
	}
	if pts[0].Lat != 48.2 || pts[0].Speed != 4 || pts[0].Sentence != "GPRMC" {
		t.Fatalf("newest=%+v", pts[0])
	}
	if !pts[0].Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp=%v", pts[0].Timestamp)
	}
}

func TestSQLiteLogger_ReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "track.db")

	l, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.BatchInsert(ctx, []*domain.Fix{sampleFix("Alpha", 1, 2, 0)}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = l.Close()

	l, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	pts, err := l.Recent(ctx, "Alpha", 1)
	if err != nil || len(pts) != 1 {
		t.Fatalf("pts=%v err=%v", pts, err)
	}
}

func TestRedisKeys(t *testing.T) {
	cases := map[string]string{
		StateKey("Alpha"):                        "vessel:Alpha:state",
		FixChannel("Alpha"):                      "vessel:Alpha:fixes",
		AlertChannel("Alpha"):                    "vessel:Alpha:alerts",
		authKey("k1"):                            "vessel:auth:k1",
		dedupKey("Alpha", domain.AlertOverspeed): "alert:Alpha:OVERSPEED",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("key=%q want %q", got, want)
		}
	}
}

func TestStateFields(t *testing.T) {
	f := stateFields(sampleFix("Alpha", 48.1, 11.5, 3))
	if f["vessel_id"] != "Alpha" || f["lat"] != 48.1 || f["speed_kts"] != 3.0 || f["is_valid"] != true {
		t.Fatalf("fields=%v", f)
	}
	if f["received_at"] != time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix() {
		t.Fatalf("received_at=%v", f["received_at"])
	}
}

func TestTrackRows_MatchColumns(t *testing.T) {
	rows := trackRows([]*domain.Fix{sampleFix("Alpha", 1, 2, 3)})
	if len(rows) != 1 || len(rows[0]) != len(trackColumns) {
		t.Fatalf("row has %d values for %d columns", len(rows[0]), len(trackColumns))
	}
	if rows[0][1] != "Alpha" || rows[0][4] != 1.0 || rows[0][12] != true {
		t.Fatalf("row=%v", rows[0])
	}
}
