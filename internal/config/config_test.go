package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PingInterval != 30*time.Second {
		t.Fatalf("want default interval 30s, got %v", cfg.PingInterval)
	}
	if cfg.PingTimeout != 5*time.Second {
		t.Fatalf("want default timeout 5s, got %v", cfg.PingTimeout)
	}
	if cfg.PingConcurrency != 10 {
		t.Fatalf("want default concurrency 10, got %d", cfg.PingConcurrency)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PING_INTERVAL", "10s")
	t.Setenv("PING_TIMEOUT", "2s")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PingInterval != 10*time.Second || cfg.PingTimeout != 2*time.Second {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.RetentionDays != 7 {
		t.Fatalf("want retention 7, got %d", cfg.RetentionDays)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins not parsed: %v", cfg.AllowedOrigins)
	}
}

func TestLoad_YAMLFileThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pingdeck.yaml")
	data := []byte("ping_interval: 1m\naddr: \":9090\"\nadmin_username: ops\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PINGDECK_CONFIG", path)
	t.Setenv("PING_INTERVAL", "15s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.AdminUsername != "ops" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.PingInterval != 15*time.Second {
		t.Fatalf("env should override file, got %v", cfg.PingInterval)
	}
}

func TestValidate_RejectsNonsense(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.PingInterval = 0 },
		func(c *Config) { c.PingInterval = -time.Second },
		func(c *Config) { c.PingTimeout = 0 },
		func(c *Config) { c.PingConcurrency = 0 },
		func(c *Config) { c.RetentionDays = -1 },
		func(c *Config) { c.SessionTTL = 0 },
	}
	for i, mutate := range bad {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: want validation error, got nil", i)
		}
	}
}

func TestLoad_InvalidIntervalFromEnvIsFatal(t *testing.T) {
	t.Setenv("PING_INTERVAL", "-5s")
	if _, err := Load(); err == nil {
		t.Fatal("want error for negative interval, got nil")
	}
}

func TestLoad_UnparseableEnvIsFatal(t *testing.T) {
	// A typo must refuse to start, not silently keep the default.
	cases := map[string]string{
		"PING_INTERVAL":    "banana",
		"PING_TIMEOUT":     "not-a-duration",
		"SESSION_TTL":      "later",
		"PING_CONCURRENCY": "many",
		"RATE_LIMIT_RPS":   "fast",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("want error for %s=%q, got nil", key, val)
			}
		})
	}
}
