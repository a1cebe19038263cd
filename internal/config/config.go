package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Risk     Risk     `mapstructure:"risk"`
	Reports  Reports  `mapstructure:"reports"`
}

// Server holds the configuration for the HTTP API.
type Server struct {
	Port           int     `mapstructure:"port"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Risk holds engine-wide risk defaults applied when a user has not saved
// their own preferences.
type Risk struct {
	PipValuePerLot float64 `mapstructure:"pip_value_per_lot"`
	Enforcement    string  `mapstructure:"enforcement"`
}

// Reports holds settings for the read-side report cache.
type Reports struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
	InsightWindow   int `mapstructure:"insight_window"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.rate_limit", 20)      // requests per second
	viper.SetDefault("server.rate_limit_burst", 5) // burst size
	viper.SetDefault("database.dsn", "journal.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("risk.pip_value_per_lot", 10)
	viper.SetDefault("risk.enforcement", "warn")
	viper.SetDefault("reports.cache_ttl_seconds", 60)
	viper.SetDefault("reports.insight_window", 30)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
