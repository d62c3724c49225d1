package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krakenexport/internal/blob"
)

// isolate runs the test from an empty directory so a stray kraken.toml is never picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "kraken.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Empty(t, cfg.Database.DSN)
	assert.Equal(t, "fs", cfg.Output.Driver)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, 92, cfg.Wells.SeededPerPlate)
	assert.Equal(t, 88, cfg.Wells.EmptyPerPlate)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileThenEnvPriority(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
[database]
driver = "sqlite"
dsn = "file:lims.db"

[output]
dir = "/srv/kraken"

[wells]
seeded_per_plate = 94

[log]
format = "json"
`)
	t.Setenv("KRAKEN_OUTPUT_DIR", "/tmp/out")
	t.Setenv("KRAKEN_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file:lims.db", cfg.Database.DSN)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir, "env beats file")
	assert.Equal(t, 94, cfg.Wells.SeededPerPlate)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_LegacyConnectionVariable(t *testing.T) {
	isolate(t)
	t.Setenv(LegacyDSNEnv, "postgres://legacy/lims")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://legacy/lims", cfg.Database.DSN)

	t.Setenv("KRAKEN_DATABASE_DSN", "postgres://new/lims")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://new/lims", cfg.Database.DSN, "prefixed variable wins over the legacy one")
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[output]\ndriver = \"memory\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Output.Driver)

	_, err = Load(filepath.Join(dir, "absent.toml"))
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "[database\ndriver=")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown db driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"unknown output driver", func(c *Config) { c.Output.Driver = "ftp" }, "output.driver"},
		{"s3 without bucket", func(c *Config) { c.Output.Driver = "s3" }, "output.s3.bucket"},
		{"s3 with bucket", func(c *Config) { c.Output.Driver = "s3"; c.Output.S3.Bucket = "b" }, ""},
		{"too many wells", func(c *Config) { c.Wells.SeededPerPlate = 97 }, "wells.seeded_per_plate"},
		{"negative wells", func(c *Config) { c.Wells.EmptyPerPlate = -1 }, "wells.empty_per_plate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("KRAKEN_OUTPUT_DRIVER", "s3")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("KRAKEN_OUTPUT_S3_BUCKET", "plates")
	t.Setenv("KRAKEN_OUTPUT_S3_PATH_STYLE", "true")
	cfg, err := Load("")
	require.NoError(t, err)
	b := cfg.Blob()
	assert.Equal(t, blob.DriverS3, b.Driver)
	assert.Equal(t, "plates", b.S3.Bucket)
	assert.True(t, b.S3.PathStyle)
	assert.Equal(t, "us-east-1", b.S3.Region)
}

func TestLoggerConversion(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	lc := cfg.Logger()
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, "console", lc.Format)
	assert.NotEmpty(t, lc.TimeFormat)
}
