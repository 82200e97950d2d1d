// Package config loads settings from defaults, an optional YAML file, .env
// files and the environment.
//
// Environment variables use the POTHOLES_ prefix with dots and dashes mapped
// to underscores (import.csv_file -> POTHOLES_IMPORT_CSV_FILE). DATABASE_URL is
// honored for database.url, matching the deployment settings of the web app.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/roach88/potholes/internal/csvsource"
	"github.com/roach88/potholes/internal/importer"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "POTHOLES"

// DefaultEnvFiles are loaded in order; existing environment variables win.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config is the validated application configuration.
type Config struct {
	BaseDir  string         `mapstructure:"base_dir"`
	Database DatabaseConfig `mapstructure:"database"`
	Import   ImportConfig   `mapstructure:"import"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects the store. URL (PostgreSQL) takes precedence over
// Path (SQLite).
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	URL  string `mapstructure:"url"`
}

// ImportConfig configures frames reimport.
type ImportConfig struct {
	CSVFile       string `mapstructure:"csv_file"`
	Threshold     int    `mapstructure:"threshold"`
	MaxFieldSize  int    `mapstructure:"max_field_size"`
	ProgressEvery int    `mapstructure:"progress_every"`
}

// ServerConfig configures the home page server.
type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	StaticRoot string `mapstructure:"static_root"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so environment variables
// are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_dir", ".")
	v.SetDefault("database.path", "db.sqlite3")
	v.SetDefault("database.url", "")
	v.SetDefault("import.csv_file", "sample_data.csv")
	v.SetDefault("import.threshold", importer.DefaultTruncationThreshold)
	v.SetDefault("import.max_field_size", csvsource.DefaultMaxFieldSize)
	v.SetDefault("import.progress_every", importer.DefaultProgressEvery)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.static_root", "staticfiles")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration into v and returns the validated result.
// An explicit configFile must exist; otherwise potholes.yaml in the working
// directory is read when present.
func Load(v *viper.Viper, configFile string, envFiles ...string) (*Config, error) {
	LoadEnvFiles(envFiles...)

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind database.url: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("potholes")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFiles loads each existing file into the process environment without
// overriding variables that are already set. Missing files are ignored. With
// no arguments DefaultEnvFiles are used.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Import.Threshold <= 0 {
		return fmt.Errorf("import.threshold must be positive, got %d", c.Import.Threshold)
	}
	if c.Import.MaxFieldSize <= 0 {
		return fmt.Errorf("import.max_field_size must be positive, got %d", c.Import.MaxFieldSize)
	}
	if c.Import.ProgressEvery <= 0 {
		return fmt.Errorf("import.progress_every must be positive, got %d", c.Import.ProgressEvery)
	}
	if c.Database.URL == "" && c.Database.Path == "" {
		return errors.New("database.path or database.url is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
