package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type      string      `mapstructure:"type"` // "bolt", "redis" or "memory"
	Path      string      `mapstructure:"path"`
	CacheSize int         `mapstructure:"cache_size"`
	CacheTTL  string      `mapstructure:"cache_ttl"` // "0" disables the cache; only enable with a single writing process
	Redis     RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TrackerConfig defines study-time tracking settings
type TrackerConfig struct {
	PollInterval  string `mapstructure:"poll_interval"`
	Timezone      string `mapstructure:"timezone"`
	RetentionDays int    `mapstructure:"retention_days"`
	TokenKey      string `mapstructure:"token_key"`
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// Location resolves the configured timezone. "Local" and "" map to time.Local.
func (c TrackerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("STUDYTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/studytime/studytime.bolt")
	v.SetDefault("storage.cache_size", 64)
	// Cached study data goes stale when another process writes it (start,
	// end and logout next to a running tracker), so the cache is opt-in.
	v.SetDefault("storage.cache_ttl", "0")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Tracker defaults
	v.SetDefault("tracker.poll_interval", "5m")
	v.SetDefault("tracker.timezone", "Local")
	v.SetDefault("tracker.retention_days", 7)
	v.SetDefault("tracker.token_key", "userToken")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.bind_address", "127.0.0.1")
	v.SetDefault("metrics.port", 9464)
}

// ValidKeys returns the set of configuration keys the application understands.
func ValidKeys() map[string]bool {
	v := viper.New()
	SetDefaults(v)
	keys := make(map[string]bool)
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	return keys
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "":
		cfg.Storage.Type = "bolt"
	case "bolt", "redis", "memory":
	default:
		return fmt.Errorf("unknown storage type: %s (must be bolt, redis or memory)", cfg.Storage.Type)
	}

	if cfg.Storage.Type == "bolt" {
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required")
		}
		// Ensure storage directory exists
		storageDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(storageDir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	if cfg.Storage.CacheTTL != "" && cfg.Storage.CacheTTL != "0" {
		if _, err := time.ParseDuration(cfg.Storage.CacheTTL); err != nil {
			return fmt.Errorf("invalid cache_ttl: %w", err)
		}
	}

	interval, err := time.ParseDuration(cfg.Tracker.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll_interval: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("poll_interval must be positive: %s", cfg.Tracker.PollInterval)
	}

	if _, err := cfg.Tracker.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Tracker.Timezone, err)
	}

	if cfg.Tracker.RetentionDays < 7 {
		return fmt.Errorf("retention_days must be at least 7: %d", cfg.Tracker.RetentionDays)
	}

	if cfg.Tracker.TokenKey == "" {
		return fmt.Errorf("token_key is required")
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
	}

	return nil
}
