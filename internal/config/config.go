// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig identifies the service instance.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
}

// FeedConfig locates the meeting feed for one viewing session.
type FeedConfig struct {
	URL       string
	MeetingID string
	ViewerID  string
}

// HeartbeatConfig tunes the liveness protocol.
type HeartbeatConfig struct {
	Interval  time.Duration
	MaxMissed int
}

// ReconnectConfig tunes the backoff policy.
type ReconnectConfig struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DedupConfig bounds the deduplication fingerprint cache.
type DedupConfig struct {
	Capacity int
}

// KafkaConfig controls the downstream export pipeline.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicInterim string
	TopicFinal   string
	Principal    string
}

// MeetingsConfig locates the meetings collaborator API.
type MeetingsConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ObservabilityConfig tunes logging and metrics.
type ObservabilityConfig struct {
	LogLevel    string
	MetricsPort string
}

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	Feed          FeedConfig
	Heartbeat     HeartbeatConfig
	Reconnect     ReconnectConfig
	Dedup         DedupConfig
	Kafka         KafkaConfig
	Meetings      MeetingsConfig
	Observability ObservabilityConfig
}

// Load reads configuration from environment variables, falling back to
// development defaults.
func Load() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "svc-transcript-sync"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Feed: FeedConfig{
			URL:       envOrDefault("FEED_URL", "ws://localhost:9090"),
			MeetingID: envOrDefault("FEED_MEETING_ID", "demo-meeting"),
			ViewerID:  envOrDefault("FEED_VIEWER_ID", "viewer@localhost"),
		},
		Heartbeat: HeartbeatConfig{
			Interval:  envDuration("HEARTBEAT_INTERVAL", 25*time.Second),
			MaxMissed: envInt("HEARTBEAT_MAX_MISSED", 3),
		},
		Reconnect: ReconnectConfig{
			BaseDelay:   envDuration("RECONNECT_BASE_DELAY", 1*time.Second),
			MaxDelay:    envDuration("RECONNECT_MAX_DELAY", 30*time.Second),
			MaxAttempts: envInt("RECONNECT_MAX_ATTEMPTS", 5),
		},
		Dedup: DedupConfig{
			Capacity: envInt("DEDUP_CAPACITY", 1000),
		},
		Kafka: KafkaConfig{
			Enabled:      envBool("KAFKA_ENABLED", false),
			Brokers:      envList("KAFKA_BROKERS", nil),
			TopicInterim: envOrDefault("KAFKA_TOPIC_INTERIM", "transcripts.interim"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "transcripts.final"),
			Principal:    envOrDefault("SERVICE_PRINCIPAL", "svc-transcript-sync"),
		},
		Meetings: MeetingsConfig{
			BaseURL: envOrDefault("MEETINGS_API_URL", "http://localhost:8081/v1"),
			Timeout: envDuration("MEETINGS_API_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			MetricsPort: envOrDefault("METRICS_PORT", "9102"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
