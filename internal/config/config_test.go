package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the path resolution at a temp dir so a defaults.json next to
// the test binary never leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATAMOD_PATHS_EXECUTABLE_DIR", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultOperationTimeout, cfg.Server.OperationTimeout)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, float64(DefaultRateLimit), cfg.Security.RateLimit.RPS)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DefaultExportsDir, cfg.Paths.ExportsDir)
	assert.True(t, cfg.Telemetry.EnableMetrics)
	assert.False(t, cfg.Telemetry.EnableTracing)

	assert.Equal(t, 300, cfg.Defaults.ChartDPI)
	assert.Equal(t, 10, cfg.Defaults.HistoryDepth)
	assert.Equal(t, 6, cfg.Defaults.DefaultDecimalPlaces)
	assert.Equal(t, "xlsx", cfg.Defaults.DefaultSaveFormat)

	require.NoError(t, cfg.Validate())
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		fileContent string
		setup       func(t *testing.T, base string)
		wantErr     bool
		validateCfg func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults only",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, DefaultChartDPI, cfg.Defaults.ChartDPI)
			},
		},
		{
			name: "file overrides defaults",
			fileContent: `
server:
  port: 9090
  read_timeout: 30s
logging:
  level: debug
defaults:
  chart_dpi: 150
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 150, cfg.Defaults.ChartDPI)
				assert.Equal(t, DefaultHistoryDepth, cfg.Defaults.HistoryDepth)
			},
		},
		{
			name:        "environment overrides file",
			fileContent: "server:\n  port: 9090\n",
			setup: func(t *testing.T, base string) {
				t.Setenv("DATAMOD_SERVER_PORT", "7070")
				t.Setenv("DATAMOD_DEFAULTS_HISTORY_DEPTH", "25")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 25, cfg.Defaults.HistoryDepth)
			},
		},
		{
			name: "defaults document overlays defaults section",
			setup: func(t *testing.T, base string) {
				writeFile(t, filepath.Join(base, DefaultConfigDir, DefaultsFileName),
					`{"chart_dpi": 600, "default_save_format": "csv", "csv_bom": false}`)
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 600, cfg.Defaults.ChartDPI)
				assert.Equal(t, "csv", cfg.Defaults.DefaultSaveFormat)
				assert.False(t, cfg.Defaults.CSVBOM)
				assert.Equal(t, DefaultMaxRows, cfg.Defaults.MaxRows)
			},
		},
		{
			name: "environment overrides defaults document",
			setup: func(t *testing.T, base string) {
				shipped, err := os.ReadFile(filepath.Join("..", "..", "configs", DefaultsFileName))
				require.NoError(t, err)
				writeFile(t, filepath.Join(base, DefaultConfigDir, DefaultsFileName), string(shipped))
				t.Setenv("DATAMOD_DEFAULTS_HISTORY_DEPTH", "25")
				t.Setenv("DATAMOD_DEFAULTS_CHART_DPI", "150")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 25, cfg.Defaults.HistoryDepth)
				assert.Equal(t, 150, cfg.Defaults.ChartDPI)
				assert.Equal(t, DefaultMaxRows, cfg.Defaults.MaxRows)
			},
		},
		{
			name: "invalid defaults document",
			setup: func(t *testing.T, base string) {
				writeFile(t, filepath.Join(base, DefaultConfigDir, DefaultsFileName),
					`{"history_depth": 0}`)
			},
			wantErr: true,
		},
		{
			name:        "malformed file",
			fileContent: "server: [unclosed",
			wantErr:     true,
		},
		{
			name: "invalid port from environment",
			setup: func(t *testing.T, base string) {
				t.Setenv("DATAMOD_SERVER_PORT", "0")
			},
			wantErr: true,
		},
		{
			name: "unparseable environment value",
			setup: func(t *testing.T, base string) {
				t.Setenv("DATAMOD_SERVER_PORT", "eighty")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := isolate(t)
			if tt.setup != nil {
				tt.setup(t, base)
			}

			configFile := ""
			if tt.fileContent != "" {
				configFile = filepath.Join(t.TempDir(), "datamod.yaml")
				writeFile(t, configFile, tt.fileContent)
			}

			cfg, err := LoadFrom(configFile)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	isolate(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default", modify: func(c *Config) {}},
		{name: "port too high", modify: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "zero read timeout", modify: func(c *Config) { c.Server.ReadTimeout = 0 }, wantErr: true},
		{name: "no allowed origins", modify: func(c *Config) { c.Security.AllowedOrigins = nil }, wantErr: true},
		{name: "unknown log level", modify: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "unknown trace exporter", modify: func(c *Config) { c.Telemetry.TraceExporter = "jaeger" }, wantErr: true},
		{name: "sample ratio above one", modify: func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, wantErr: true},
		{name: "chart dpi too low", modify: func(c *Config) { c.Defaults.ChartDPI = 10 }, wantErr: true},
		{name: "decimal places above max", modify: func(c *Config) { c.Defaults.DefaultDecimalPlaces = 16 }, wantErr: true},
		{name: "unsupported save format", modify: func(c *Config) { c.Defaults.DefaultSaveFormat = "ods" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, filepath.Join(DefaultLogsDir, "app.log"), cfg.Logging.FilePath)
}

func TestConfigHelpers(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 9000
	cfg.Defaults.MaxFileSizeMB = 2

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, int64(2*1024*1024), cfg.MaxFileSizeBytes())
}

func TestLoadAppDefaults(t *testing.T) {
	base := DefaultAppDefaults()

	t.Run("missing file returns base", func(t *testing.T) {
		got, err := LoadAppDefaults(filepath.Join(t.TempDir(), DefaultsFileName), base)
		require.NoError(t, err)
		assert.Equal(t, base, got)
	})

	t.Run("partial document overlays base", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), DefaultsFileName)
		writeFile(t, path, `{"max_rows": 5000, "timestamp_filenames": true}`)

		got, err := LoadAppDefaults(path, base)
		require.NoError(t, err)
		assert.Equal(t, 5000, got.MaxRows)
		assert.True(t, got.TimestampFilenames)
		assert.Equal(t, base.ChartDPI, got.ChartDPI)
	})

	t.Run("invalid value keeps base", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), DefaultsFileName)
		writeFile(t, path, `{"chart_dpi": 5}`)

		got, err := LoadAppDefaults(path, base)
		assert.Error(t, err)
		assert.Equal(t, base, got)
	})

	t.Run("malformed document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), DefaultsFileName)
		writeFile(t, path, `{"chart_dpi": `)

		_, err := LoadAppDefaults(path, base)
		assert.Error(t, err)
	})
}

func TestLoadUnitFactors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		factors, err := LoadUnitFactors(filepath.Join(t.TempDir(), UnitsFileName))
		require.NoError(t, err)
		assert.Nil(t, factors)
	})

	t.Run("empty factors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), UnitsFileName)
		writeFile(t, path, `{"units": ["second"], "factors": {}}`)

		_, err := LoadUnitFactors(path)
		assert.Error(t, err)
	})

	t.Run("shipped document has every directed pair", func(t *testing.T) {
		factors, err := LoadUnitFactors(filepath.Join("..", "..", DefaultConfigDir, UnitsFileName))
		require.NoError(t, err)

		units := []string{"second", "minute", "hour", "day"}
		pairs := 0
		for _, from := range units {
			for _, to := range units {
				if from == to {
					continue
				}
				factor, ok := factors[from][to]
				require.True(t, ok, "missing %s -> %s", from, to)
				assert.Greater(t, factor, 0.0)
				pairs++
			}
		}
		assert.Equal(t, 12, pairs)
		assert.Equal(t, 86400.0, factors["day"]["second"])
		assert.InDelta(t, 1.0, factors["hour"]["minute"]*factors["minute"]["hour"], 1e-12)
	})
}
