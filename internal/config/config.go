// Package config provides configuration management for clearhead.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults for the worker and the model backends.
const (
	DefaultPort           = 38440
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultEmbeddingDims  = 1536
	DefaultTimezone       = "UTC"
	DefaultUserID         = "default"
)

// Config is the full runtime configuration. The YAML file is optional; a
// missing file yields defaults. Secrets come from the environment only and
// are never written to disk.
type Config struct {
	Port     int    `yaml:"port"`
	DBDriver string `yaml:"db_driver"` // "sqlite" or "postgres"
	DBPath   string `yaml:"db_path"`   // sqlite file, defaults under DataDir
	DBDSN    string `yaml:"db_dsn"`    // postgres DSN
	MaxConns int    `yaml:"max_conns"`

	Timezone string `yaml:"timezone"`
	UserID   string `yaml:"user_id"` // owner of captures in single-user mode

	LLMBaseURL     string  `yaml:"llm_base_url"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	EmbeddingModel string  `yaml:"embedding_model"`
	EmbeddingDims  int     `yaml:"embedding_dims"`

	// InboxDir enables the file importer when non-empty.
	InboxDir string `yaml:"inbox_dir"`

	Workers int `yaml:"workers"`

	// Secrets, environment only.
	LLMAPIKey string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		DBDriver:       "sqlite",
		DBPath:         DBPath(),
		MaxConns:       4,
		Timezone:       DefaultTimezone,
		UserID:         DefaultUserID,
		Model:          DefaultModel,
		Temperature:    0.3,
		EmbeddingModel: DefaultEmbeddingModel,
		EmbeddingDims:  DefaultEmbeddingDims,
		Workers:        2,
	}
}

// DataDir returns the clearhead data directory under the user's home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".clearhead")
}

// DBPath returns the default SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "clearhead.db")
}

// SettingsPath returns the default YAML settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.yaml")
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// Load reads the YAML file at path, layers environment overrides on top of
// defaults, and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CLEARHEAD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("CLEARHEAD_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CLEARHEAD_DB_DSN"); v != "" {
		cfg.DBDSN = v
		cfg.DBDriver = "postgres"
	}
	if v := os.Getenv("CLEARHEAD_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("CLEARHEAD_LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("CLEARHEAD_MODEL"); v != "" {
		cfg.Model = v
	}
	cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("CLEARHEAD_LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("invalid db_driver %q", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.DBDSN == "" {
		return fmt.Errorf("db_driver postgres requires db_dsn")
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	return nil
}
