// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production wiring
// overrides through the environment (a .env file is honored in cmd/server).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "chaintrace/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Postgres captures the record/transaction store connection. An empty URL
// selects the in-memory stores.
type Postgres struct {
	URL string
}

// Redis captures the optional region resolution cache connection.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the custody event stream connection. An empty broker list
// disables streaming.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Telemetry captures the external cloud collaborator the sync orchestrator
// publishes finalized records to.
type Telemetry struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ThingID      string
	PropertyName string
	BatchSize    int
	BatchDelay   time.Duration
}

// Tracking captures background location sampling behavior. The sampling
// loop runs only when a device position source is configured.
type Tracking struct {
	SampleInterval  time.Duration
	LocationTimeout time.Duration
	DeviceLat       string
	DeviceLon       string
}

// Config is the full runtime configuration tree.
type Config struct {
	Server      Server
	Postgres    Postgres
	Redis       Redis
	Kafka       Kafka
	Telemetry   Telemetry
	Tracking    Tracking
	RegionsPath string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envString("CHAINTRACE_ADDR", ":8080"),
			JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envString("KAFKA_CUSTODY_TOPIC", "chaintrace.custody-events"),
		},
		Telemetry: Telemetry{
			BaseURL:      envString("TELEMETRY_BASE_URL", "https://api.telemetry.example.com"),
			ClientID:     os.Getenv("TELEMETRY_CLIENT_ID"),
			ClientSecret: os.Getenv("TELEMETRY_CLIENT_SECRET"),
			ThingID:      os.Getenv("TELEMETRY_THING_ID"),
			PropertyName: envString("TELEMETRY_PROPERTY", "scanned_records"),
			BatchSize:    envInt("SYNC_BATCH_SIZE", 10),
			BatchDelay:   envDuration("SYNC_BATCH_DELAY", time.Second),
		},
		Tracking: Tracking{
			SampleInterval:  envDuration("TRACKING_SAMPLE_INTERVAL", 30*time.Second),
			LocationTimeout: envDuration("LOCATION_TIMEOUT", 10*time.Second),
			DeviceLat:       os.Getenv("TRACKING_DEVICE_LAT"),
			DeviceLon:       os.Getenv("TRACKING_DEVICE_LON"),
		},
		RegionsPath: os.Getenv("REGIONS_PATH"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
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

func envDuration(key string, fallback time.Duration) time.Duration {
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := pstrings.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
