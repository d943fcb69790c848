package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/recon/internal/logging"
	"github.com/cleared-dev/recon/internal/recon"
)

// FileName is the conventional name of the project config file.
const FileName = "recon.yaml"

// EnvPrefix prefixes every environment override, e.g. RECON_FEE_MIN_RATIO.
const EnvPrefix = "RECON"

// Config represents the top-level recon.yaml configuration.
type Config struct {
	Matching recon.Config   `yaml:"matching"`
	Logging  logging.Config `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Audit    AuditConfig    `yaml:"audit"`
}

// StoreConfig locates the run history database. An empty Path disables persistence.
type StoreConfig struct {
	Path string `yaml:"path" envconfig:"STORE_PATH"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" envconfig:"PORT"`
}

// AuditConfig locates the decision audit trail. An empty Path disables it.
type AuditConfig struct {
	Path string `yaml:"path" envconfig:"AUDIT_PATH"`
}

// Load reads a recon.yaml file from disk, layers RECON_* environment
// overrides on top and validates the matching options.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Matching.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from RECON_* environment variables.
func (c *Config) ApplyEnv() error {
	for _, section := range []any{&c.Matching, &c.Logging, &c.Store, &c.Server, &c.Audit} {
		if err := envconfig.Process(EnvPrefix, section); err != nil {
			return fmt.Errorf("reading environment: %w", err)
		}
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Matching: recon.DefaultConfig(),
		Logging:  logging.DefaultConfig(),
		Store: StoreConfig{
			Path: "recon.db",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Audit: AuditConfig{
			Path: "logs/recon-audit.csv",
		},
	}
}
