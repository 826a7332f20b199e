package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen   = ":8080"
	defaultIssuer   = "creditpool"
	defaultAudience = "creditd"
)

// Config captures the runtime settings for the credit pool HTTP daemon.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	TLS           TLSConfig       `yaml:"tls"`
	Auth          AuthConfig      `yaml:"auth"`
	Metrics       MetricsConfig   `yaml:"metrics"`
	RateLimits    RateLimitConfig `yaml:"rate_limits"`
	Timeouts      TimeoutConfig   `yaml:"timeouts"`
	CORS          CORSConfig      `yaml:"cors"`
}

// TLSConfig describes the TLS material for the HTTP listener.
type TLSConfig struct {
	CertPath      string `yaml:"cert"`
	KeyPath       string `yaml:"key"`
	AllowInsecure bool   `yaml:"allow_insecure"`
}

// AuthConfig configures bearer token verification. The secret is read from
// the environment variable named by SecretEnv when Secret is empty.
type AuthConfig struct {
	Secret    string        `yaml:"secret"`
	SecretEnv string        `yaml:"secret_env"`
	Issuer    string        `yaml:"issuer"`
	Audience  string        `yaml:"audience"`
	ClockSkew time.Duration `yaml:"clock_skew"`
}

// MetricsConfig toggles the prometheus endpoint and request tracing.
type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Prefix      string `yaml:"prefix"`
	LogRequests bool   `yaml:"log_requests"`
}

// RateLimit is a per-client token bucket.
type RateLimit struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// RateLimitConfig holds separate buckets for state-changing and read calls.
type RateLimitConfig struct {
	Writes RateLimit `yaml:"writes"`
	Reads  RateLimit `yaml:"reads"`
}

// TimeoutConfig bounds the HTTP server's connection handling.
type TimeoutConfig struct {
	ReadHeader time.Duration `yaml:"read_header"`
	Read       time.Duration `yaml:"read"`
	Write      time.Duration `yaml:"write"`
	Idle       time.Duration `yaml:"idle"`
	Shutdown   time.Duration `yaml:"shutdown"`
}

// CORSConfig lists the browser origins permitted to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	cfg := Config{
		ListenAddress: defaultListen,
		TLS:           TLSConfig{AllowInsecure: true},
		Auth:          AuthConfig{SecretEnv: "CREDITD_JWT_SECRET"},
		Metrics:       MetricsConfig{Enabled: true},
	}
	cfg.normalize()
	return cfg
}

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveSecret returns the configured signing secret.
func (cfg AuthConfig) ResolveSecret() string {
	if secret := strings.TrimSpace(cfg.Secret); secret != "" {
		return secret
	}
	if cfg.SecretEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(cfg.SecretEnv))
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListen
	}
	cfg.TLS.CertPath = strings.TrimSpace(cfg.TLS.CertPath)
	cfg.TLS.KeyPath = strings.TrimSpace(cfg.TLS.KeyPath)

	cfg.Auth.SecretEnv = strings.TrimSpace(cfg.Auth.SecretEnv)
	cfg.Auth.Issuer = strings.TrimSpace(cfg.Auth.Issuer)
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = defaultIssuer
	}
	cfg.Auth.Audience = strings.TrimSpace(cfg.Auth.Audience)
	if cfg.Auth.Audience == "" {
		cfg.Auth.Audience = defaultAudience
	}
	if cfg.Auth.ClockSkew <= 0 {
		cfg.Auth.ClockSkew = 2 * time.Minute
	}

	cfg.Metrics.Prefix = strings.TrimSpace(cfg.Metrics.Prefix)
	if cfg.Metrics.Prefix == "" {
		cfg.Metrics.Prefix = "creditd"
	}
	cfg.RateLimits.Writes.normalize(60, 10)
	cfg.RateLimits.Reads.normalize(600, 100)
	cfg.Timeouts.normalize()

	origins := make([]string, 0, len(cfg.CORS.AllowedOrigins))
	for _, origin := range cfg.CORS.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.CORS.AllowedOrigins = origins
}

func (r *RateLimit) normalize(perMinute float64, burst int) {
	if r.RequestsPerMinute <= 0 {
		r.RequestsPerMinute = perMinute
	}
	if r.Burst <= 0 {
		r.Burst = burst
	}
}

func (t *TimeoutConfig) normalize() {
	if t.ReadHeader <= 0 {
		t.ReadHeader = 5 * time.Second
	}
	if t.Read <= 0 {
		t.Read = 15 * time.Second
	}
	if t.Write <= 0 {
		t.Write = 15 * time.Second
	}
	if t.Idle <= 0 {
		t.Idle = 60 * time.Second
	}
	if t.Shutdown <= 0 {
		t.Shutdown = 10 * time.Second
	}
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	hasCert := cfg.TLS.CertPath != ""
	hasKey := cfg.TLS.KeyPath != ""
	if hasCert != hasKey {
		return fmt.Errorf("tls: cert and key must either both be provided or both be empty")
	}
	if !cfg.TLS.AllowInsecure && !hasCert {
		return fmt.Errorf("tls: cert and key are required unless allow_insecure=true")
	}
	if cfg.Auth.Secret == "" && cfg.Auth.SecretEnv == "" {
		return fmt.Errorf("auth: secret or secret_env must be configured")
	}
	return nil
}
