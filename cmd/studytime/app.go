package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goodtune/studytime/internal/config"
	"github.com/goodtune/studytime/internal/identity"
	"github.com/goodtune/studytime/internal/storage"
	"github.com/goodtune/studytime/internal/storage/bolt"
	"github.com/goodtune/studytime/internal/storage/memory"
	"github.com/goodtune/studytime/internal/storage/redis"
	"github.com/goodtune/studytime/internal/tracker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// app bundles what every command needs.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	kv       storage.KV
	identity *identity.Resolver
	tracker  *tracker.Tracker
}

// openApp loads configuration and wires storage, identity and the tracker.
func openApp(path string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging, logOut)
	log.Logger = logger

	backend, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	kv := withCache(cfg.Storage, backend)

	logger.Debug().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Msg("Storage initialized")

	loc, err := cfg.Tracker.Location()
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	// The token is written by other processes (login, logout), so it is
	// always read from the backend.
	resolver := identity.NewResolver(backend, cfg.Tracker.TokenKey, logger)
	t := tracker.New(kv, resolver, tracker.Config{
		Location:      loc,
		RetentionDays: cfg.Tracker.RetentionDays,
	}, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		kv:       kv,
		identity: resolver,
		tracker:  t,
	}, nil
}

// Close releases the tracker and storage.
func (a *app) Close() {
	a.tracker.Close()
	if err := a.kv.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close storage")
	}
}

// openStorage opens the configured backend
func openStorage(cfg config.StorageConfig) (storage.KV, error) {
	var (
		kv  storage.KV
		err error
	)

	switch cfg.Type {
	case "", "bolt":
		kv, err = bolt.Open(cfg.Path)
	case "redis":
		kv, err = redis.Open(cfg.Redis)
	case "memory":
		kv = memory.New()
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	return kv, nil
}

// withCache puts an LRU cache in front of kv when cache_ttl and cache_size
// are both set.
func withCache(cfg config.StorageConfig, kv storage.KV) storage.KV {
	ttl := parseDuration(cfg.CacheTTL, 0)
	if ttl > 0 && cfg.CacheSize > 0 {
		return storage.NewCached(kv, cfg.CacheSize, ttl)
	}
	return kv
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
