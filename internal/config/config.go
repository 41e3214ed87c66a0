package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Variant string

const (
	VariantFleet Variant = "fleet"
	VariantTrack Variant = "track"
)

type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Dashboard
	Variant     Variant
	HTTPPort    string
	Origin      string
	FeedURL     string
	FeedPort    int
	FeedPath    string
	HUDTerminal bool

	// Feed reconnect
	FeedMaxRetries     int
	FeedInitialBackoff time.Duration
	FeedMaxBackoff     time.Duration
	FeedHandshake      time.Duration

	// Default single-track position before the first fix
	TrackDefaultLat float64
	TrackDefaultLon float64

	// Engine
	EngineHTTPPort string
	SourcesFile    string
	QueueSize      int

	// TimescaleDB
	DBEnabled  bool
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int32

	// SQLite track log
	SQLitePath string

	// Redis
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS
	NATSURL     string
	NATSSubject string

	// Pipeline channels
	BroadcastChannelSize int
	StateChannelSize     int
	TrackChannelSize     int
	AlertChannelSize     int

	// Batch writer tuning
	TrackBatchSize       int
	TrackFlushIntervalMS int

	// Alerts
	OverspeedKnots float64

	// Auth
	AuthCacheTTLSeconds int
	StaticAPIKeys       map[string]string
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
		Variant:              Variant(strings.ToLower(getEnv("VARIANT", string(VariantFleet)))),
		HTTPPort:             getEnv("HTTP_PORT", "5173"),
		Origin:               getEnv("DASHBOARD_ORIGIN", "http://localhost:5173"),
		FeedURL:              getEnv("FEED_URL", ""),
		FeedPort:             getEnvInt("FEED_PORT", 8080),
		FeedPath:             getEnv("FEED_PATH", "/ws"),
		HUDTerminal:          getEnvBool("HUD_TERMINAL", false),
		FeedMaxRetries:       getEnvInt("FEED_MAX_RETRIES", 10),
		FeedInitialBackoff:   getEnvDuration("FEED_INITIAL_BACKOFF", 500*time.Millisecond),
		FeedMaxBackoff:       getEnvDuration("FEED_MAX_BACKOFF", 30*time.Second),
		FeedHandshake:        getEnvDuration("FEED_HANDSHAKE_TIMEOUT", 5*time.Second),
		TrackDefaultLat:      getEnvFloat("TRACK_DEFAULT_LAT", 48.1173),
		TrackDefaultLon:      getEnvFloat("TRACK_DEFAULT_LON", 11.5167),
		EngineHTTPPort:       getEnv("ENGINE_HTTP_PORT", "8080"),
		SourcesFile:          getEnv("SOURCES_FILE", ""),
		QueueSize:            getEnvInt("QUEUE_SIZE", 4096),
		DBEnabled:            getEnvBool("DB_ENABLED", false),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "fleet_user"),
		DBPassword:           getEnv("DB_PASSWORD", "fleet_password"),
		DBName:               getEnv("DB_NAME", "fleet_monitor"),
		DBMaxConns:           int32(getEnvInt("DB_MAX_CONNS", 5)),
		SQLitePath:           getEnv("SQLITE_PATH", "voyage_data.db"),
		RedisEnabled:         getEnvBool("REDIS_ENABLED", false),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		NATSURL:              getEnv("NATS_URL", ""),
		NATSSubject:          getEnv("NATS_SUBJECT", "fleet.fixes"),
		BroadcastChannelSize: getEnvInt("BROADCAST_CHANNEL_SIZE", 1000),
		StateChannelSize:     getEnvInt("STATE_CHANNEL_SIZE", 5000),
		TrackChannelSize:     getEnvInt("TRACK_CHANNEL_SIZE", 5000),
		AlertChannelSize:     getEnvInt("ALERT_CHANNEL_SIZE", 1000),
		TrackBatchSize:       getEnvInt("TRACK_BATCH_SIZE", 200),
		TrackFlushIntervalMS: getEnvInt("TRACK_FLUSH_INTERVAL_MS", 250),
		OverspeedKnots:       getEnvFloat("OVERSPEED_KNOTS", 30),
		AuthCacheTTLSeconds:  getEnvInt("AUTH_CACHE_TTL_SECONDS", 300),
		StaticAPIKeys:        parseKeyPairs(getEnv("STATIC_API_KEYS", "")),
	}
}

func (c *Config) Validate() error {
	switch c.Variant {
	case VariantFleet, VariantTrack:
	default:
		return fmt.Errorf("unknown VARIANT %q (want fleet or track)", c.Variant)
	}
	if c.FeedURL == "" {
		u, err := url.Parse(c.Origin)
		if err != nil {
			return fmt.Errorf("invalid DASHBOARD_ORIGIN %q: %w", c.Origin, err)
		}
		if u.Hostname() == "" {
			return fmt.Errorf("DASHBOARD_ORIGIN %q has no host", c.Origin)
		}
	}
	if c.FeedPort <= 0 || c.FeedPort > 65535 {
		return fmt.Errorf("FEED_PORT out of range: %d", c.FeedPort)
	}
	if c.FeedMaxRetries < 0 {
		return fmt.Errorf("FEED_MAX_RETRIES must be >= 0")
	}
	return nil
}

// Postgres builds the pgxpool connection string.
func (c *Config) Postgres() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBMaxConns,
	)
}

// parseKeyPairs reads "key=vessel,key2=vessel2". A bare key maps to itself.
func parseKeyPairs(v string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, vessel, found := strings.Cut(pair, "=")
		if !found {
			vessel = key
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(vessel)
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
