package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the navigator API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds admin API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds key-value store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IngestConfig holds settings for fetching the ingestion files.
type IngestConfig struct {
	BaseURL      string `yaml:"base_url"`
	StatsPath    string `yaml:"stats_path"`
	ChunksPath   string `yaml:"chunks_path"`
	MetaPath     string `yaml:"meta_path"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	Attempts     int    `yaml:"attempts"`
	RetryDelayMS int    `yaml:"retry_delay_ms"`
}

// RetrievalConfig holds ranking and context-assembly settings.
type RetrievalConfig struct {
	DefaultK        int `yaml:"default_k"`
	MaxK            int `yaml:"max_k"`
	MaxContextChars int `yaml:"max_context_chars"`
	HistoryLimit    int `yaml:"history_limit"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Ingest.StatsPath == "" {
		c.Ingest.StatsPath = "/chunks_stats.json"
	}
	if c.Ingest.ChunksPath == "" {
		c.Ingest.ChunksPath = "/chunks.json"
	}
	if c.Ingest.MetaPath == "" {
		c.Ingest.MetaPath = "/program_meta.json"
	}
	if c.Ingest.TimeoutSec <= 0 {
		c.Ingest.TimeoutSec = 15
	}
	if c.Ingest.Attempts <= 0 {
		c.Ingest.Attempts = 3
	}
	if c.Ingest.RetryDelayMS <= 0 {
		c.Ingest.RetryDelayMS = 250
	}
	if c.Retrieval.DefaultK <= 0 {
		c.Retrieval.DefaultK = 5
	}
	if c.Retrieval.MaxK <= 0 {
		c.Retrieval.MaxK = 50
	}
	if c.Retrieval.MaxContextChars <= 0 {
		c.Retrieval.MaxContextChars = 8000
	}
	if c.Retrieval.HistoryLimit <= 0 {
		c.Retrieval.HistoryLimit = 50
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "memory":
		// no connection settings needed
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Ingest.BaseURL == "" {
		return fmt.Errorf("ingest.base_url is required")
	}
	if c.Retrieval.MaxK < c.Retrieval.DefaultK {
		return fmt.Errorf("retrieval.max_k %d is below retrieval.default_k %d",
			c.Retrieval.MaxK, c.Retrieval.DefaultK)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
