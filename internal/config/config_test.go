package config

import (
	"os"
	"testing"
	"time"
)

var allEnvVars = []string{
	"SERVICE_PRINCIPAL", "HTTP_PORT",
	"FEED_URL", "FEED_MEETING_ID", "FEED_VIEWER_ID",
	"HEARTBEAT_INTERVAL", "HEARTBEAT_MAX_MISSED",
	"RECONNECT_BASE_DELAY", "RECONNECT_MAX_DELAY", "RECONNECT_MAX_ATTEMPTS",
	"DEDUP_CAPACITY",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_INTERIM", "KAFKA_TOPIC_FINAL",
	"MEETINGS_API_URL", "MEETINGS_API_TIMEOUT",
	"LOG_LEVEL", "METRICS_PORT",
}

func clearEnv() {
	for _, v := range allEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "svc-transcript-sync" {
		t.Errorf("expected default principal 'svc-transcript-sync', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}

	if cfg.Feed.URL != "ws://localhost:9090" {
		t.Errorf("expected default feed URL, got %s", cfg.Feed.URL)
	}
	if cfg.Feed.MeetingID != "demo-meeting" {
		t.Errorf("expected default meeting id 'demo-meeting', got %s", cfg.Feed.MeetingID)
	}

	if cfg.Heartbeat.Interval != 25*time.Second {
		t.Errorf("expected default heartbeat interval 25s, got %v", cfg.Heartbeat.Interval)
	}
	if cfg.Heartbeat.MaxMissed != 3 {
		t.Errorf("expected default max missed 3, got %d", cfg.Heartbeat.MaxMissed)
	}

	if cfg.Reconnect.BaseDelay != 1*time.Second {
		t.Errorf("expected default base delay 1s, got %v", cfg.Reconnect.BaseDelay)
	}
	if cfg.Reconnect.MaxDelay != 30*time.Second {
		t.Errorf("expected default max delay 30s, got %v", cfg.Reconnect.MaxDelay)
	}
	if cfg.Reconnect.MaxAttempts != 5 {
		t.Errorf("expected default max attempts 5, got %d", cfg.Reconnect.MaxAttempts)
	}

	if cfg.Dedup.Capacity != 1000 {
		t.Errorf("expected default dedup capacity 1000, got %d", cfg.Dedup.Capacity)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicInterim != "transcripts.interim" {
		t.Errorf("expected default interim topic, got %s", cfg.Kafka.TopicInterim)
	}
	if cfg.Kafka.TopicFinal != "transcripts.final" {
		t.Errorf("expected default final topic, got %s", cfg.Kafka.TopicFinal)
	}

	if cfg.Meetings.BaseURL != "http://localhost:8081/v1" {
		t.Errorf("expected default meetings API URL, got %s", cfg.Meetings.BaseURL)
	}
	if cfg.Meetings.Timeout != 10*time.Second {
		t.Errorf("expected default meetings timeout 10s, got %v", cfg.Meetings.Timeout)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsPort != "9102" {
		t.Errorf("expected default metrics port '9102', got %s", cfg.Observability.MetricsPort)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("FEED_URL", "wss://feed.example.com")
	os.Setenv("FEED_MEETING_ID", "standup-77")
	os.Setenv("FEED_VIEWER_ID", "alice@example.com")
	os.Setenv("HEARTBEAT_INTERVAL", "10s")
	os.Setenv("HEARTBEAT_MAX_MISSED", "5")
	os.Setenv("RECONNECT_BASE_DELAY", "500ms")
	os.Setenv("RECONNECT_MAX_DELAY", "1m")
	os.Setenv("RECONNECT_MAX_ATTEMPTS", "8")
	os.Setenv("DEDUP_CAPACITY", "250")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	os.Setenv("LOG_LEVEL", "debug")

	defer clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Feed.URL != "wss://feed.example.com" {
		t.Errorf("expected custom feed URL, got %s", cfg.Feed.URL)
	}
	if cfg.Feed.MeetingID != "standup-77" {
		t.Errorf("expected meeting id 'standup-77', got %s", cfg.Feed.MeetingID)
	}
	if cfg.Heartbeat.Interval != 10*time.Second {
		t.Errorf("expected heartbeat interval 10s, got %v", cfg.Heartbeat.Interval)
	}
	if cfg.Heartbeat.MaxMissed != 5 {
		t.Errorf("expected max missed 5, got %d", cfg.Heartbeat.MaxMissed)
	}
	if cfg.Reconnect.BaseDelay != 500*time.Millisecond {
		t.Errorf("expected base delay 500ms, got %v", cfg.Reconnect.BaseDelay)
	}
	if cfg.Reconnect.MaxDelay != time.Minute {
		t.Errorf("expected max delay 1m, got %v", cfg.Reconnect.MaxDelay)
	}
	if cfg.Reconnect.MaxAttempts != 8 {
		t.Errorf("expected max attempts 8, got %d", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Dedup.Capacity != 250 {
		t.Errorf("expected dedup capacity 250, got %d", cfg.Dedup.Capacity)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "broker2:9092" {
		t.Errorf("expected trimmed broker list, got %v", cfg.Kafka.Brokers)
	}
	// Kafka principal follows the service principal.
	if cfg.Kafka.Principal != "custom-principal" {
		t.Errorf("expected Kafka principal 'custom-principal', got %s", cfg.Kafka.Principal)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	os.Setenv("HEARTBEAT_INTERVAL", "invalid")
	os.Setenv("HEARTBEAT_MAX_MISSED", "not-a-number")
	os.Setenv("RECONNECT_MAX_ATTEMPTS", "invalid")
	os.Setenv("DEDUP_CAPACITY", "invalid")
	os.Setenv("KAFKA_ENABLED", "invalid")

	defer clearEnv()

	cfg := Load()

	if cfg.Heartbeat.Interval != 25*time.Second {
		t.Errorf("expected default heartbeat interval on invalid input, got %v", cfg.Heartbeat.Interval)
	}
	if cfg.Heartbeat.MaxMissed != 3 {
		t.Errorf("expected default max missed on invalid input, got %d", cfg.Heartbeat.MaxMissed)
	}
	if cfg.Reconnect.MaxAttempts != 5 {
		t.Errorf("expected default max attempts on invalid input, got %d", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Dedup.Capacity != 1000 {
		t.Errorf("expected default dedup capacity on invalid input, got %d", cfg.Dedup.Capacity)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled on invalid input")
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvList(t *testing.T) {
	os.Setenv("TEST_LIST_VAR", " a:1 ,, b:2 ")
	defer os.Unsetenv("TEST_LIST_VAR")

	got := envList("TEST_LIST_VAR", nil)
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Errorf("envList = %v, want [a:1 b:2]", got)
	}

	os.Unsetenv("TEST_LIST_VAR")
	if got := envList("TEST_LIST_VAR", []string{"fallback"}); len(got) != 1 || got[0] != "fallback" {
		t.Errorf("envList default = %v, want [fallback]", got)
	}
}
