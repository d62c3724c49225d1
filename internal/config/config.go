// Package config loads kraken settings from defaults, an optional TOML file
// and KRAKEN_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"krakenexport/internal/blob"
	"krakenexport/internal/logger"
	"krakenexport/pkg/plate"
)

// EnvPrefix is prepended to every environment override, e.g. KRAKEN_OUTPUT_DIR.
const EnvPrefix = "KRAKEN"

// LegacyDSNEnv is the connection string variable older deployments export.
const LegacyDSNEnv = "KRAKEN_DB_CONNECTION"

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultSeededWells = 92
	defaultEmptyWells  = 88
)

// Config is the resolved application configuration.
type Config struct {
	Database DatabaseConfig
	Output   OutputConfig
	Log      LogConfig
	Wells    WellsConfig
	Metrics  MetricsConfig
}

// DatabaseConfig points at the LIMS.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// OutputConfig selects where the master-plate document is written.
type OutputConfig struct {
	Driver string
	Dir    string
	S3     S3Config
}

// S3Config holds bucket coordinates for the s3 output driver. Credentials
// fall back to the default AWS chain when unset.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// WellsConfig carries the per-plate well counts used to derive positions.
type WellsConfig struct {
	SeededPerPlate int
	EmptyPerPlate  int
}

// MetricsConfig enables the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string
}

// Load reads configuration.
// Priority (highest to lowest):
// 1. Environment variables with KRAKEN_ prefix (e.g., KRAKEN_DATABASE_DSN)
// 2. The TOML file at path, or kraken.toml in the working directory
// 3. Built-in defaults
//
// An explicit path that does not exist is an error; a missing kraken.toml is not.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kraken")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", LegacyDSNEnv); err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Output: OutputConfig{
			Driver: v.GetString("output.driver"),
			Dir:    v.GetString("output.dir"),
			S3: S3Config{
				Bucket:          v.GetString("output.s3.bucket"),
				Region:          v.GetString("output.s3.region"),
				Endpoint:        v.GetString("output.s3.endpoint"),
				Prefix:          v.GetString("output.s3.prefix"),
				PathStyle:       v.GetBool("output.s3.path_style"),
				AccessKeyID:     v.GetString("output.s3.access_key_id"),
				SecretAccessKey: v.GetString("output.s3.secret_access_key"),
			},
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Wells: WellsConfig{
			SeededPerPlate: v.GetInt("wells.seeded_per_plate"),
			EmptyPerPlate:  v.GetInt("wells.empty_per_plate"),
		},
		Metrics: MetricsConfig{
			Textfile: v.GetString("metrics.textfile"),
		},
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without consulting files or env.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	cfg.Output.Driver = strings.ToLower(strings.TrimSpace(cfg.Output.Driver))
	if cfg.Output.Driver == "" {
		cfg.Output.Driver = string(blob.DriverFilesystem)
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	if cfg.Output.S3.Region == "" {
		cfg.Output.S3.Region = "us-east-1"
	}
	def := logger.DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Format
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = def.Output
	}
	if cfg.Wells.SeededPerPlate == 0 {
		cfg.Wells.SeededPerPlate = defaultSeededWells
	}
	if cfg.Wells.EmptyPerPlate == 0 {
		cfg.Wells.EmptyPerPlate = defaultEmptyWells
	}
}

// Validate checks driver names and well counts.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	switch blob.Driver(c.Output.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Output.S3.Bucket == "" {
			return fmt.Errorf("output.s3.bucket is required when output.driver=s3")
		}
	default:
		return fmt.Errorf("output.driver must be fs, s3 or memory, got %q", c.Output.Driver)
	}
	if err := validateWells("wells.seeded_per_plate", c.Wells.SeededPerPlate); err != nil {
		return err
	}
	return validateWells("wells.empty_per_plate", c.Wells.EmptyPerPlate)
}

func validateWells(key string, n int) error {
	if n < 1 || n > plate.Density {
		return fmt.Errorf("%s must be between 1 and %d, got %d", key, plate.Density, n)
	}
	return nil
}

// Blob converts the output section into a blob store configuration.
func (c *Config) Blob() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Output.Driver),
		Dir:    c.Output.Dir,
		S3: blob.S3Config{
			Bucket:          c.Output.S3.Bucket,
			Region:          c.Output.S3.Region,
			Endpoint:        c.Output.S3.Endpoint,
			Prefix:          c.Output.S3.Prefix,
			PathStyle:       c.Output.S3.PathStyle,
			AccessKeyID:     c.Output.S3.AccessKeyID,
			SecretAccessKey: c.Output.S3.SecretAccessKey,
		},
	}
}

// Logger converts the log section into a logger configuration.
func (c *Config) Logger() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	cfg.Output = c.Log.Output
	return cfg
}
