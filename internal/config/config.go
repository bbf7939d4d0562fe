// Package config provides configuration loading for the tabula CLI and
// gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	// Endpoint is the gateway URL used by CLI commands.
	Endpoint string `mapstructure:"endpoint"`

	// Auth configuration
	Auth AuthConfig `mapstructure:"auth"`

	// Gemini configuration
	Gemini GeminiConfig `mapstructure:"gemini"`

	// Database configuration (for gateway history)
	Database DatabaseConfig `mapstructure:"database"`

	// Engines configuration
	Engines EnginesConfig `mapstructure:"engines"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Server configuration (for gateway)
	Server ServerConfig `mapstructure:"server"`

	// Session configuration
	Session SessionConfig `mapstructure:"session"`
}

// AuthConfig holds authentication configuration. An empty token runs the
// gateway open, which suits local use.
type AuthConfig struct {
	Token string `mapstructure:"token"`
}

// GeminiConfig holds the Gemini generator configuration. An empty API key
// selects the baseline generator.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// DatabaseConfig holds history storage configuration. Driver is
// "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`

	// Path is the sqlite database file, used when Driver is "sqlite".
	Path string `mapstructure:"path"`
}

// DSN builds the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// EnginesConfig holds execution engine configurations.
type EnginesConfig struct {
	DuckDB EngineConfig `mapstructure:"duckdb"`
	SQLite EngineConfig `mapstructure:"sqlite"`
}

// EngineConfig enables one engine.
type EngineConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"readTimeout"`
	WriteTimeout string `mapstructure:"writeTimeout"`
}

// SessionConfig holds browser session configuration.
type SessionConfig struct {
	TTL string `mapstructure:"ttl"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:8080",
		Auth: AuthConfig{
			Token: "",
		},
		Gemini: GeminiConfig{
			APIKey: "",
			Model:  "gemini-2.5-flash",
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Host:     "localhost",
			Port:     5432,
			User:     "tabula",
			Password: "tabula_dev",
			Name:     "tabula",
			SSLMode:  "disable",
			Path:     "tabula_history.db",
		},
		Engines: EnginesConfig{
			DuckDB: EngineConfig{Enabled: true},
			SQLite: EngineConfig{Enabled: true},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  "30s",
			WriteTimeout: "30s",
		},
		Session: SessionConfig{
			TTL: "1h",
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".tabula"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("TABULA")
	// Nested keys map to env vars with underscores, so database.driver
	// resolves from TABULA_DATABASE_DRIVER.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env and defaults carry a bare setup.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", "http://localhost:8080")
	v.SetDefault("auth.token", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tabula")
	v.SetDefault("database.password", "tabula_dev")
	v.SetDefault("database.name", "tabula")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "tabula_history.db")
	v.SetDefault("engines.duckdb.enabled", true)
	v.SetDefault("engines.sqlite.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("session.ttl", "1h")
}
