package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Driver: "redis",
			Addrs:  []string{"localhost:6379"},
		},
		Ingest: IngestConfig{
			BaseURL: "http://localhost:9000",
		},
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_MemoryDriverNeedsNoAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "memory"
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error for memory driver: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "sqlite"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}

	expected := `database.driver must be "redis" or "memory", got "sqlite"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_MissingIngestBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Ingest.BaseURL = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing ingest base url")
	}
}

func TestValidate_MaxKBelowDefaultK(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.DefaultK = 10
	cfg.Retrieval.MaxK = 5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for max_k < default_k")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver='redis', got %q", cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Ingest.StatsPath != "/chunks_stats.json" {
		t.Errorf("expected StatsPath='/chunks_stats.json', got %q", cfg.Ingest.StatsPath)
	}
	if cfg.Ingest.Attempts != 3 {
		t.Errorf("expected Attempts=3, got %d", cfg.Ingest.Attempts)
	}
	if cfg.Retrieval.DefaultK != 5 {
		t.Errorf("expected DefaultK=5, got %d", cfg.Retrieval.DefaultK)
	}
	if cfg.Retrieval.MaxK != 50 {
		t.Errorf("expected MaxK=50, got %d", cfg.Retrieval.MaxK)
	}
	if cfg.Retrieval.MaxContextChars != 8000 {
		t.Errorf("expected MaxContextChars=8000, got %d", cfg.Retrieval.MaxContextChars)
	}
	if cfg.Retrieval.HistoryLimit != 50 {
		t.Errorf("expected HistoryLimit=50, got %d", cfg.Retrieval.HistoryLimit)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: "memory", ReadinessTimeout: 15},
		Ingest:   IngestConfig{StatsPath: "/custom_stats.json", Attempts: 7},
		Retrieval: RetrievalConfig{
			DefaultK: 8, MaxK: 16, MaxContextChars: 2000, HistoryLimit: 10,
		},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected Driver='memory', got %q", cfg.Database.Driver)
	}
	if cfg.Ingest.StatsPath != "/custom_stats.json" {
		t.Errorf("expected StatsPath='/custom_stats.json', got %q", cfg.Ingest.StatsPath)
	}
	if cfg.Ingest.Attempts != 7 {
		t.Errorf("expected Attempts=7, got %d", cfg.Ingest.Attempts)
	}
	if cfg.Retrieval.MaxK != 16 {
		t.Errorf("expected MaxK=16, got %d", cfg.Retrieval.MaxK)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("NAVIGATOR_TEST_ADDR", "redis:6379")

	in := []byte("addrs: [\"${NAVIGATOR_TEST_ADDR}\"]\nbase_url: \"${NAVIGATOR_TEST_URL:-http://localhost:9000}\"")
	out := string(expandEnvVars(in))

	if out != "addrs: [\"redis:6379\"]\nbase_url: \"http://localhost:9000\"" {
		t.Errorf("unexpected expansion: %q", out)
	}
}
