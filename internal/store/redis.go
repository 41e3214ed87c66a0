package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetwatch/internal/config"
	"fleetwatch/internal/domain"
)

const (
	stateTTL      = 30 * time.Second
	alertDedupTTL = 5 * time.Minute
	fleetGeoKey   = "fleet:geo"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func StateKey(vesselID string) string {
	return fmt.Sprintf("vessel:%s:state", vesselID)
}

func FixChannel(vesselID string) string {
	return fmt.Sprintf("vessel:%s:fixes", vesselID)
}

func AlertChannel(vesselID string) string {
	return fmt.Sprintf("vessel:%s:alerts", vesselID)
}

func authKey(apiKey string) string {
	return fmt.Sprintf("vessel:auth:%s", apiKey)
}

func dedupKey(vesselID string, t domain.AlertType) string {
	return fmt.Sprintf("alert:%s:%s", vesselID, string(t))
}

func stateFields(f *domain.Fix) map[string]interface{} {
	return map[string]interface{}{
		"vessel_id":   f.VesselID,
		"type":        f.Type,
		"lat":         f.Latitude,
		"lon":         f.Longitude,
		"speed_kts":   f.SpeedKts,
		"course_deg":  f.CourseDeg,
		"alt_m":       f.AltitudeM,
		"sats":        f.Satellites,
		"is_valid":    f.Valid,
		"utc_time":    f.UTCTime,
		"received_at": f.ReceivedAt.Unix(),
	}
}

// PipelineStateUpdate writes the latest fix for a vessel, moves it on the
// fleet geo set and publishes the broadcast frame, in one round trip.
func (r *RedisStore) PipelineStateUpdate(ctx context.Context, f *domain.Fix) error {
	payload, err := f.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal fix: %w", err)
	}

	key := StateKey(f.VesselID)
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, stateFields(f))
	pipe.Expire(ctx, key, stateTTL)
	pipe.GeoAdd(ctx, fleetGeoKey, &redis.GeoLocation{
		Name:      f.VesselID,
		Longitude: f.Longitude,
		Latitude:  f.Latitude,
	})
	pipe.Publish(ctx, FixChannel(f.VesselID), payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// VesselState returns the stored hash for a vessel, empty when it expired.
func (r *RedisStore) VesselState(ctx context.Context, vesselID string) (map[string]string, error) {
	m, err := r.client.HGetAll(ctx, StateKey(vesselID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis state read failed: %w", err)
	}
	return m, nil
}

// GetAPIKey resolves an ingest key to its vessel id. Unknown keys return "".
func (r *RedisStore) GetAPIKey(ctx context.Context, apiKey string) (string, error) {
	val, err := r.client.Get(ctx, authKey(apiKey)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get api key failed: %w", err)
	}
	return val, nil
}

func (r *RedisStore) CheckAlertDedup(ctx context.Context, vesselID string, t domain.AlertType) (bool, error) {
	count, err := r.client.Exists(ctx, dedupKey(vesselID, t)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return count > 0, nil
}

func (r *RedisStore) SetAlertDedup(ctx context.Context, vesselID string, t domain.AlertType) error {
	return r.client.Set(ctx, dedupKey(vesselID, t), "1", alertDedupTTL).Err()
}

func (r *RedisStore) PublishAlert(ctx context.Context, vesselID string, payload []byte) error {
	return r.client.Publish(ctx, AlertChannel(vesselID), payload).Err()
}
