package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "HTTP_ADDR", "TAX_RATE_PERCENT", "RABBITMQ_WORKER_MODE",
		"CORS_ALLOWED_ORIGINS", "WS_HEARTBEAT_INTERVAL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "development" {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.HTTPAddr != ":8090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.TaxRatePercent != 5 {
		t.Errorf("TaxRatePercent = %v", cfg.TaxRatePercent)
	}
	if cfg.RabbitMQWorkerMode != "daemon" {
		t.Errorf("RabbitMQWorkerMode = %q", cfg.RabbitMQWorkerMode)
	}
	if cfg.WSHeartbeatInterval != 30*time.Second {
		t.Errorf("WSHeartbeatInterval = %v", cfg.WSHeartbeatInterval)
	}
	if len(cfg.CorsAllowedOrigins) != 0 {
		t.Errorf("CorsAllowedOrigins = %v", cfg.CorsAllowedOrigins)
	}
}

func TestLoadOverridesAndClamp(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "-3")
	t.Setenv("WS_HEARTBEAT_INTERVAL", "10s")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example ,, https://b.example ")

	cfg := Load()
	if cfg.TaxRatePercent != 0 {
		t.Errorf("negative tax rate not clamped: %v", cfg.TaxRatePercent)
	}
	if cfg.WSHeartbeatInterval != 10*time.Second {
		t.Errorf("WSHeartbeatInterval = %v", cfg.WSHeartbeatInterval)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CorsAllowedOrigins) != len(want) {
		t.Fatalf("CorsAllowedOrigins = %v", cfg.CorsAllowedOrigins)
	}
	for i := range want {
		if cfg.CorsAllowedOrigins[i] != want[i] {
			t.Errorf("origin %d = %q, want %q", i, cfg.CorsAllowedOrigins[i], want[i])
		}
	}
}

func TestGetEnvFloatFallback(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "not-a-number")
	if got := getEnvFloat("TAX_RATE_PERCENT", 5); got != 5 {
		t.Errorf("getEnvFloat fallback = %v", got)
	}
}
