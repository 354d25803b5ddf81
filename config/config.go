// Package config loads process configuration once at startup into an
// immutable struct that callers pass explicitly; nothing under
// internal/ reads environment variables or package globals directly.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the single immutable configuration struct injected into
// every component at construction time.
type Config struct {
	JWTSecret      string
	SessionCookie  string
	SessionTTL     time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPass     string
	DBName     string
	DBNameTest string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	ObjectStoreEndpoint  string
	ObjectStoreAccessKey string
	ObjectStoreSecretKey string
	ObjectStoreUseTLS    bool
	BucketName           string
	BucketNameTest       string

	RabbitMQURL      string
	RabbitMQPrefetch int

	// Object-storage gateway policy (spec §4.2, §6).
	MaxObjectSizeBytes int64
	AllowedMIMEPrefixes []string
	BlockedMIMEPrefixes []string
	AllowedExpiryDurations []time.Duration
	UploadURLTTL   time.Duration
	DownloadURLTTL time.Duration
	PerUserQuotaBytes  int64
	PerUserInFlightCap int

	// Expiry/cleanup engine (spec §4.4).
	SweepInterval      time.Duration
	SweepGrace         time.Duration
	SweepBatchSize     int
	SweepRetryDelays   []time.Duration
	HardDeleteRetention time.Duration

	// Admission controller (spec §4.5).
	RateLimits           map[string]RateLimitTier
	RateLimitSubBuckets  int
	RateLimitRedisFailOpenWarn bool

	// Signaling hub (spec §4.1).
	HeartbeatInterval time.Duration
	PeerIdleTimeout   time.Duration
	RoomCap           int
	MaxFrameBytes     int
	SendQueueDepth    int
	AllowAnonymousP2P bool

	AllowAnonymousShares bool

	ShutdownGrace time.Duration
}

// RateLimitTier holds the limit/window pair for one (bucket, subject
// class) cell of the tiered rate-limit table in spec §4.5.
type RateLimitTier struct {
	AnonymousPerIP int
	AuthPerUser    int
	IPCeiling      int
	Window         time.Duration
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDurationList(key string, defaultValue []time.Duration) []time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := time.ParseDuration(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Load reads environment variables into a fresh, immutable Config.
// It is the only place in the codebase that touches os.Getenv.
func Load() *Config {
	rabbitURL := getEnv("RABBITMQ_URL", "")
	if rabbitURL == "" {
		rabbitURL = fmt.Sprintf(
			"amqp://%s:%s@%s:%s/%s",
			url.PathEscape(getEnv("RABBITMQ_USER", "guest")),
			url.PathEscape(getEnv("RABBITMQ_PASSWORD", "guest")),
			getEnv("RABBITMQ_HOST", "localhost"),
			getEnv("RABBITMQ_PORT", "5672"),
			url.PathEscape(getEnv("RABBITMQ_VHOST", "/")),
		)
	}

	defaultTiers := map[string]RateLimitTier{
		"upload": {AnonymousPerIP: 5, AuthPerUser: 50, IPCeiling: 200, Window: time.Hour},
		"download": {AnonymousPerIP: 50, AuthPerUser: 500, IPCeiling: 2000, Window: time.Hour},
		"api": {AnonymousPerIP: 100, AuthPerUser: 1000, IPCeiling: 5000, Window: time.Hour},
		"auth": {AnonymousPerIP: 5, AuthPerUser: 20, IPCeiling: 50, Window: 10 * time.Minute},
	}

	return &Config{
		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		SessionCookie: getEnv("SESSION_COOKIE_NAME", "sharesync_session"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPass:     getEnv("DB_PASS", "root"),
		DBName:     getEnv("DB_NAME", "sharesync"),
		DBNameTest: getEnv("DB_NAME_TEST", "sharesync_test"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ObjectStoreEndpoint:  getEnv("OBJECT_STORE_ENDPOINT", "localhost:9000"),
		ObjectStoreAccessKey: getEnv("OBJECT_STORE_ACCESS_KEY", "minioadmin"),
		ObjectStoreSecretKey: getEnv("OBJECT_STORE_SECRET_KEY", "minioadmin"),
		ObjectStoreUseTLS:    getEnvBool("OBJECT_STORE_USE_TLS", false),
		BucketName:           getEnv("BUCKET_NAME", "sharesync"),
		BucketNameTest:       getEnv("BUCKET_NAME_TEST", "sharesync-test"),

		RabbitMQURL:      rabbitURL,
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 8),

		MaxObjectSizeBytes:     getEnvInt64("MAX_OBJECT_SIZE_BYTES", 5*1024*1024*1024),
		AllowedMIMEPrefixes:    getEnvList("ALLOWED_MIME_PREFIXES", nil),
		BlockedMIMEPrefixes:    getEnvList("BLOCKED_MIME_PREFIXES", []string{"application/x-msdownload"}),
		AllowedExpiryDurations: getEnvDurationList("ALLOWED_EXPIRY_DURATIONS", []time.Duration{2 * time.Hour, 6 * time.Hour, 24 * time.Hour, 72 * time.Hour, 168 * time.Hour}),
		UploadURLTTL:           getEnvDuration("UPLOAD_URL_TTL", 15*time.Minute),
		DownloadURLTTL:         getEnvDuration("DOWNLOAD_URL_TTL", 5*time.Minute),
		PerUserQuotaBytes:      getEnvInt64("PER_USER_QUOTA_BYTES", 20*1024*1024*1024),
		PerUserInFlightCap:     getEnvInt("PER_USER_INFLIGHT_CAP", 10),

		SweepInterval:       getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepGrace:          getEnvDuration("SWEEP_GRACE", 30*time.Second),
		SweepBatchSize:      getEnvInt("SWEEP_BATCH_SIZE", 200),
		SweepRetryDelays:    getEnvDurationList("SWEEP_RETRY_DELAYS", []time.Duration{10 * time.Second, 30 * time.Second, 2 * time.Minute, 10 * time.Minute, 30 * time.Minute}),
		HardDeleteRetention: getEnvDuration("HARD_DELETE_RETENTION", 7*24*time.Hour),

		RateLimits:          defaultTiers,
		RateLimitSubBuckets: getEnvInt("RATE_LIMIT_SUB_BUCKETS", 10),
		RateLimitRedisFailOpenWarn: getEnvBool("RATE_LIMIT_FAIL_OPEN_WARN", true),

		HeartbeatInterval: getEnvDuration("SIGNAL_HEARTBEAT_INTERVAL", 15*time.Second),
		PeerIdleTimeout:   getEnvDuration("SIGNAL_PEER_IDLE_TIMEOUT", 60*time.Second),
		RoomCap:           getEnvInt("SIGNAL_ROOM_CAP", 8),
		MaxFrameBytes:     getEnvInt("SIGNAL_MAX_FRAME_BYTES", 32*1024),
		SendQueueDepth:    getEnvInt("SIGNAL_SEND_QUEUE_DEPTH", 32),
		AllowAnonymousP2P: getEnvBool("ALLOW_ANONYMOUS_P2P", true),

		AllowAnonymousShares: getEnvBool("ALLOW_ANONYMOUS_SHARES", true),

		ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 15*time.Second),
	}
}
