package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Reports.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Reports.GenerateTimeout)
	assert.Equal(t, "data/artifacts", cfg.Storage.ArtifactsDir)
	assert.Equal(t, "json", cfg.Logging.Format)
	require.NoError(t, cfg.validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"bad read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "read timeout"},
		{"no origins", func(c *Config) { c.Security.AllowedOrigins = nil }, "allowed origin"},
		{"negative workers", func(c *Config) { c.Reports.Workers = -1 }, "workers"},
		{"zero generate timeout", func(c *Config) { c.Reports.GenerateTimeout = 0 }, "generate timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNormalizesLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestMergeConfigsEnvWins(t *testing.T) {
	fileCfg := *Default()
	fileCfg.Server.Port = 9000
	fileCfg.Storage.DataDir = "/var/lib/clinicore"

	envCfg := Config{}
	envCfg.Server.Port = 8081

	merged := mergeConfigs(fileCfg, envCfg)
	assert.Equal(t, 8081, merged.Server.Port)
	assert.Equal(t, "/var/lib/clinicore", merged.Storage.DataDir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
storage:
  data_dir: /tmp/clinicore
reports:
  workers: 8
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := loadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/clinicore", cfg.Storage.DataDir)
	assert.Equal(t, 8, cfg.Reports.Workers)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Storage.ArtifactsDir = filepath.Join(dir, "data", "artifacts")
	cfg.Storage.DatabasePath = filepath.Join(dir, "data", "reports.db")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Storage.ArtifactsDir)
}
