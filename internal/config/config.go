package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	Clickhouse Clickhouse `mapstructure:"clickhouse"`
	Logger     Logger     `mapstructure:"logger"`
}

// Server holds the configuration for the HTTP server.
type Server struct {
	Addr            string `mapstructure:"addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // seconds
}

// Database holds the configuration for PostgreSQL. UseMemory swaps every
// store for the in-memory implementations; useful for local runs and tests.
type Database struct {
	DSN       string `mapstructure:"dsn"`
	UseMemory bool   `mapstructure:"use_memory"`
}

// Clickhouse holds the configuration for the snapshot history sink. An
// empty DSN disables snapshots.
type Clickhouse struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.shutdown_timeout", 10)
	viper.SetDefault("database.use_memory", false)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")

	err = viper.ReadInConfig()
	if err != nil {
		// Defaults plus environment are enough to run with use_memory.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
