package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5m" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// CertSkip is the sentinel value for Budget.Cert that disables TLS
// certificate verification entirely.
const CertSkip = "SKIP"

// Env variables that override the corresponding config fields, so secrets can
// stay out of the file.
const (
	EnvPassword           = "ACTUAL_PASSWORD"
	EnvEncryptionPassword = "ACTUAL_ENCRYPTION_PASSWORD"
)

// Config represents the top-level actualbridge.yaml configuration.
type Config struct {
	Budget  BudgetConfig  `yaml:"budget"`
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// BudgetConfig identifies the Actual server and budget file to bridge.
type BudgetConfig struct {
	Endpoint string `yaml:"endpoint"`
	Password string `yaml:"password,omitempty"`
	File     string `yaml:"file"` // budget file name or sync ID
	Currency string `yaml:"currency"`
	// Cert is a path to a CA certificate for self-signed servers, or the
	// literal "SKIP" to disable verification.
	Cert               string `yaml:"cert,omitempty"`
	EncryptionPassword string `yaml:"encryption_password,omitempty"`
	DataDir            string `yaml:"data_dir"`
}

// ServerConfig controls the bridge's own HTTP listener.
type ServerConfig struct {
	Listen       string   `yaml:"listen"`
	PollInterval Duration `yaml:"poll_interval,omitempty"`
}

// SessionConfig controls the cached backend session.
type SessionConfig struct {
	IdleTimeout Duration `yaml:"idle_timeout,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load reads an actualbridge.yaml file from disk and applies env overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new bridge.
func Default(endpoint, file string) *Config {
	cfg := &Config{
		Budget: BudgetConfig{
			Endpoint: endpoint,
			File:     file,
			Currency: "USD",
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Budget.Endpoint == "" {
		return fmt.Errorf("budget.endpoint is required")
	}
	if c.Budget.Password == "" {
		return fmt.Errorf("budget.password is required (or set %s)", EnvPassword)
	}
	if c.Budget.File == "" {
		return fmt.Errorf("budget.file is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Budget.DataDir == "" {
		c.Budget.DataDir = ".actualbridge"
	}
	if c.Budget.Currency == "" {
		c.Budget.Currency = "USD"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8089"
	}
	if c.Server.PollInterval <= 0 {
		c.Server.PollInterval = Duration(time.Minute)
	}
	if c.Session.IdleTimeout <= 0 {
		c.Session.IdleTimeout = Duration(30 * time.Minute)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPassword); v != "" {
		c.Budget.Password = v
	}
	if v := os.Getenv(EnvEncryptionPassword); v != "" {
		c.Budget.EncryptionPassword = v
	}
}
