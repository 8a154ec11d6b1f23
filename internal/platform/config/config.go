package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "vendorhub/pkg/platform/strings"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr     string
	LogLevel string

	PostgresDSN string

	Redis RedisConfig
	Kafka KafkaConfig

	// JWTSigningKey verifies admin and vendor bearer tokens.
	JWTSigningKey string

	// SweepInterval is how often the expiry sweeper runs. The sweep itself is
	// idempotent, so the interval is an operational choice, not a protocol.
	SweepInterval time.Duration

	// NotifyInterval is how often pending alerts are drained to the notifier.
	NotifyInterval time.Duration

	// RejectedRetention is how long REJECTED applications are kept before purge.
	RejectedRetention time.Duration
}

// RedisConfig configures the optional dashboard cache.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the activity outbox relay and alert notifier topics.
type KafkaConfig struct {
	Brokers        []string
	ActivityTopic  string
	AlertTopic     string
	RelayBatchSize int
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	return Config{
		Addr:          getenv("VENDORHUB_ADDR", ":8080"),
		LogLevel:      getenv("VENDORHUB_LOG_LEVEL", "info"),
		PostgresDSN:   getenv("VENDORHUB_POSTGRES_DSN", ""),
		JWTSigningKey: getenv("VENDORHUB_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          getenv("VENDORHUB_REDIS_URL", ""),
			DialTimeout:  getduration("VENDORHUB_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("VENDORHUB_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("VENDORHUB_REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     getduration("VENDORHUB_DASHBOARD_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:        split(getenv("VENDORHUB_KAFKA_BROKERS", "")),
			ActivityTopic:  getenv("VENDORHUB_KAFKA_ACTIVITY_TOPIC", "vendorhub.activity"),
			AlertTopic:     getenv("VENDORHUB_KAFKA_ALERT_TOPIC", "vendorhub.expiry-alerts"),
			RelayBatchSize: getint("VENDORHUB_KAFKA_RELAY_BATCH", 100),
		},
		SweepInterval:     getduration("VENDORHUB_SWEEP_INTERVAL", 24*time.Hour),
		NotifyInterval:    getduration("VENDORHUB_NOTIFY_INTERVAL", 5*time.Minute),
		RejectedRetention: getduration("VENDORHUB_REJECTED_RETENTION", 90*24*time.Hour),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func split(v string) []string {
	if v == "" {
		return nil
	}
	return strutil.DedupeAndTrim(strings.Split(v, ","))
}
