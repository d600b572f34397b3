package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string `yaml:"addr"`         // API bind address
	LogDir      string `yaml:"log_dir"`      // logs directory
	DatabaseURL string `yaml:"database_url"` // empty means in-memory store

	PingInterval    time.Duration `yaml:"ping_interval"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
	PingConcurrency int           `yaml:"ping_concurrency"`
	RetentionDays   int           `yaml:"retention_days"` // 0 disables pruning
	DNSResolver     string        `yaml:"dns_resolver"`   // host:port for dns probes

	AdminUsername string        `yaml:"admin_username"`
	AdminPassword string        `yaml:"admin_password"`
	SessionTTL    time.Duration `yaml:"session_ttl"`

	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

func Default() Config {
	return Config{
		Addr:            "127.0.0.1:8080",
		LogDir:          "logs",
		PingInterval:    30 * time.Second,
		PingTimeout:     5 * time.Second,
		PingConcurrency: 10,
		RetentionDays:   30,
		DNSResolver:     "1.1.1.1:53",
		SessionTTL:      24 * time.Hour,
		RateLimitRPS:    2,
		RateLimitBurst:  60,
	}
}

// Load builds the config from the optional YAML file named by
// PINGDECK_CONFIG, then applies environment overrides, then validates.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PINGDECK_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv layers environment overrides on top of the current values.
// A variable that is set but does not parse is an error; a typo in
// PING_INTERVAL must stop the process, not fall back to the default.
func (c *Config) applyEnv() error {
	setStr(&c.Addr, "ADDR")
	setStr(&c.LogDir, "LOG_DIR")
	setStr(&c.DatabaseURL, "DATABASE_URL")
	setStr(&c.DNSResolver, "DNS_RESOLVER")
	setStr(&c.AdminUsername, "ADMIN_USERNAME")
	setStr(&c.AdminPassword, "ADMIN_PASSWORD")

	for _, err := range []error{
		setDuration(&c.PingInterval, "PING_INTERVAL"),
		setDuration(&c.PingTimeout, "PING_TIMEOUT"),
		setInt(&c.PingConcurrency, "PING_CONCURRENCY"),
		setInt(&c.RetentionDays, "RETENTION_DAYS"),
		setDuration(&c.SessionTTL, "SESSION_TTL"),
		setFloat(&c.RateLimitRPS, "RATE_LIMIT_RPS"),
		setInt(&c.RateLimitBurst, "RATE_LIMIT_BURST"),
	} {
		if err != nil {
			return err
		}
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		c.AllowedOrigins = out
	}
	return nil
}

// Validate rejects values the scheduler cannot run with. A bad interval
// or timeout is fatal at startup, not something to limp along with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("ping interval must be positive, got %v", c.PingInterval)
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("ping timeout must be positive, got %v", c.PingTimeout)
	}
	if c.PingConcurrency < 1 {
		return fmt.Errorf("ping concurrency must be at least 1, got %d", c.PingConcurrency)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention days must not be negative, got %d", c.RetentionDays)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %v", c.SessionTTL)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: not an integer: %q", key, v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: not a number: %q", key, v)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: not a duration (use forms like 30s, 5m): %q", key, v)
	}
	*dst = d
	return nil
}
