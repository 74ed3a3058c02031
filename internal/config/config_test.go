package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bikedash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsMatchDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"BIKEDASH_SERVER_PORT":              "9090",
				"BIKEDASH_DATASET_FILE":             "/srv/rentals.csv",
				"BIKEDASH_DATASET_PROFILE":          "y",
				"BIKEDASH_DATASET_WATCH":            "false",
				"BIKEDASH_SECURITY_ALLOWED_ORIGINS": "http://a.test,http://b.test",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "/srv/rentals.csv", cfg.Dataset.Path)
				assert.Equal(t, "y", cfg.Dataset.Profile)
				assert.False(t, cfg.Dataset.Watch)
				assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
			},
		},
		{
			name: "file fills values the environment left unset",
			file: `
server:
  port: 7070
  read_timeout: 5s
dataset:
  path: data/day.csv
  profile: plain
telemetry:
  trace_exporter: stdout
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, "data/day.csv", cfg.Dataset.Path)
				assert.Equal(t, "plain", cfg.Dataset.Profile)
				assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
			},
		},
		{
			name: "environment wins over file",
			env:  map[string]string{"BIKEDASH_SERVER_PORT": "6060"},
			file: "server:\n  port: 7070\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6060, cfg.Server.Port)
			},
		},
		{
			name: "file false and zero values override defaults",
			file: `
security:
  enable_cors: false
  rate_limit:
    enabled: false
    burst: 0
dataset:
  watch: false
telemetry:
  sample_ratio: 0
logging:
  level:
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Security.EnableCORS)
				assert.False(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 0, cfg.Security.RateLimit.Burst)
				assert.False(t, cfg.Dataset.Watch)
				assert.Equal(t, 0.0, cfg.Telemetry.SampleRatio)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)
			},
		},
		{
			name: "environment wins over file false",
			env: map[string]string{
				"BIKEDASH_DATASET_WATCH": "true",
				"BIKEDASH_DATASET_FILE":  "/srv/rentals.csv",
			},
			file: "dataset:\n  watch: false\n  path: data/day.csv\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Dataset.Watch)
				assert.Equal(t, "/srv/rentals.csv", cfg.Dataset.Path)
			},
		},
		{
			name:    "unknown profile",
			env:     map[string]string{"BIKEDASH_DATASET_PROFILE": "z"},
			wantErr: "unknown dataset profile",
		},
		{
			name:    "invalid port",
			env:     map[string]string{"BIKEDASH_SERVER_PORT": "70000"},
			wantErr: "invalid server port",
		},
		{
			name:    "empty dataset path",
			env:     map[string]string{"BIKEDASH_DATASET_FILE": " "},
			wantErr: "dataset path must not be empty",
		},
		{
			name:    "unknown trace exporter",
			file:    "telemetry:\n  trace_exporter: jaeger\n",
			wantErr: "unsupported trace exporter",
		},
		{
			name:    "malformed env duration",
			env:     map[string]string{"BIKEDASH_SERVER_READ_TIMEOUT": "soon"},
			wantErr: "failed to load config from env",
		},
		{
			name:    "malformed yaml",
			file:    "server: [port\n",
			wantErr: "failed to load config from",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var path string
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "zero write timeout",
			mutate:  func(c *Config) { c.Server.WriteTimeout = 0 },
			wantErr: "write timeout",
		},
		{
			name:    "cors without origins",
			mutate:  func(c *Config) { c.Security.AllowedOrigins = nil },
			wantErr: "allowed origin",
		},
		{
			name:    "rate limit without burst",
			mutate:  func(c *Config) { c.Security.RateLimit.Burst = 0 },
			wantErr: "rate limit",
		},
		{
			name:    "unknown log output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: "logging output",
		},
		{
			name:    "watch without debounce",
			mutate:  func(c *Config) { c.Dataset.WatchDebounce = 0 },
			wantErr: "debounce",
		},
		{
			name:    "sample ratio out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRatio = 1.5 },
			wantErr: "sample ratio",
		},
		{
			name:    "unknown metric exporter",
			mutate:  func(c *Config) { c.Telemetry.MetricExporter = "otlp" },
			wantErr: "metric exporter",
		},
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

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.BaseDir = base
	cfg.Dataset.Path = "/abs/all_data.csv"

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, base, paths.BaseDir)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "exports"), paths.ExportsDir)
	assert.Equal(t, filepath.Join(base, "logs", "bikedash.log"), paths.LogFile)
	assert.Equal(t, filepath.Clean("/abs/all_data.csv"), paths.DatasetFile)
	assert.Equal(t, filepath.Join(base, "exports", "daily.csv"), paths.ExportPath("../daily.csv"))

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.ExportsDir)
	assert.DirExists(t, paths.LogsDir)
}

func TestResolvePathsDefaultsToWorkingDir(t *testing.T) {
	cfg := Default()
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "data", "all_data.csv"), paths.DatasetFile)
}
