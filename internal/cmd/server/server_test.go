package server

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Port)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("data_dir = %q, want %q", cfg.DataDir, "data")
	}
	if cfg.SearchScheme != "http" {
		t.Fatalf("search_scheme = %q, want %q", cfg.SearchScheme, "http")
	}
	if cfg.FlushInterval != 30*time.Second {
		t.Fatalf("flush_interval = %s, want %s", cfg.FlushInterval, 30*time.Second)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("MERIDIAN_PORT", "9000")
	t.Setenv("MERIDIAN_SEARCH_HOST", "weaviate:8080")
	t.Setenv("MERIDIAN_CORS_ORIGINS", "https://meridian.example,https://admin.meridian.example")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-data-dir", "/var/lib/meridian"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.Port)
	}
	if cfg.SearchHost != "weaviate:8080" {
		t.Fatalf("search_host = %q", cfg.SearchHost)
	}
	if cfg.DataDir != "/var/lib/meridian" {
		t.Fatalf("data_dir = %q", cfg.DataDir)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://meridian.example" {
		t.Fatalf("cors_origins = %v", cfg.CORSOrigins)
	}
}
