// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	Addr               string        `mapstructure:"ADDR"`
	DBURL              string        `mapstructure:"DB_URL"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	AppURL             string        `mapstructure:"APP_URL"`
	GitHubClientID     string        `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `mapstructure:"GITHUB_CLIENT_SECRET"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`
	SyncWindowDays     int           `mapstructure:"SYNC_WINDOW_DAYS"`
	MigrationsDir      string        `mapstructure:"MIGRATIONS_DIR"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ADDR", ":8080")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("APP_URL", "http://localhost:3000")
	viper.SetDefault("SESSION_TTL", "720h")
	viper.SetDefault("SYNC_WINDOW_DAYS", 30)
	viper.SetDefault("MIGRATIONS_DIR", "migrations")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.GitHubClientID == "" {
		return nil, errors.New("GITHUB_CLIENT_ID is a required configuration field")
	}
	if cfg.GitHubClientSecret == "" {
		return nil, errors.New("GITHUB_CLIENT_SECRET is a required configuration field")
	}
	if cfg.SyncWindowDays <= 0 {
		return nil, errors.New("SYNC_WINDOW_DAYS must be a positive number of days")
	}

	return &cfg, nil
}
