// Package server parses server command flags and launches the platform
// runtime.
package server

import (
	"context"
	"flag"
	"time"

	appserver "github.com/meridianpress/meridian/internal/app/server"
	entrypoint "github.com/meridianpress/meridian/internal/platform/cmd"
)

// Config holds server command configuration.
type Config struct {
	Port          int           `env:"MERIDIAN_PORT" envDefault:"8080"`
	DataDir       string        `env:"MERIDIAN_DATA_DIR" envDefault:"data"`
	CacheDir      string        `env:"MERIDIAN_CACHE_DIR"`
	SearchHost    string        `env:"MERIDIAN_SEARCH_HOST"`
	SearchScheme  string        `env:"MERIDIAN_SEARCH_SCHEME" envDefault:"http"`
	TokenIssuer   string        `env:"MERIDIAN_TOKEN_ISSUER"`
	TokenAudience string        `env:"MERIDIAN_TOKEN_AUDIENCE"`
	TokenSeed     string        `env:"MERIDIAN_TOKEN_SEED"`
	AdminEmail    string        `env:"MERIDIAN_ADMIN_EMAIL"`
	AdminPassword string        `env:"MERIDIAN_ADMIN_PASSWORD"`
	CORSOrigins   []string      `env:"MERIDIAN_CORS_ORIGINS" envSeparator:","`
	FlushInterval time.Duration `env:"MERIDIAN_VIEW_FLUSH_INTERVAL" envDefault:"30s"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.Port, "port", cfg.Port, "The HTTP server port")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "The directory holding the sqlite databases")
	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "The article cache directory (empty for in-memory)")
	fs.StringVar(&cfg.SearchHost, "search-host", cfg.SearchHost, "The Weaviate host (empty disables indexing)")
	fs.StringVar(&cfg.SearchScheme, "search-scheme", cfg.SearchScheme, "The Weaviate scheme")
	fs.DurationVar(&cfg.FlushInterval, "view-flush-interval", cfg.FlushInterval, "The view counter flush interval")

	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the platform runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return appserver.Run(ctx, appserver.RuntimeConfig{
			Port:          cfg.Port,
			DataDir:       cfg.DataDir,
			CacheDir:      cfg.CacheDir,
			SearchHost:    cfg.SearchHost,
			SearchScheme:  cfg.SearchScheme,
			TokenIssuer:   cfg.TokenIssuer,
			TokenAudience: cfg.TokenAudience,
			TokenSeed:     cfg.TokenSeed,
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
			CORSOrigins:   cfg.CORSOrigins,
			FlushInterval: cfg.FlushInterval,
		})
	})
}
