package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/logging"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost:8080", config.Server.Addr())
	assert.Equal(t, []string{"./components", "./views"}, config.Components.ScanPaths)
	assert.Equal(t, []string{"*_test.rsx", "*.bak", "node_modules"}, config.Components.ExcludePatterns)
	assert.Equal(t, "views", config.Generate.Package)
	assert.True(t, config.Development.HotReload)
	assert.True(t, config.Development.ErrorOverlay)
	assert.True(t, config.Development.MockProps)
	assert.Equal(t, 100*time.Millisecond, config.Development.Debounce)
	assert.Equal(t, LogConfig{Level: "info", Format: "text"}, config.Log)
}

func TestLoadFrom_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gorsx.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 3000
  host: 0.0.0.0
components:
  scan_paths: [./ui, ./pages]
generate:
  package: ui
  output_dir: gen
development:
  hot_reload: false
  debounce: 250ms
log:
  level: debug
  format: json
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	config, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", config.Server.Addr())
	assert.Equal(t, []string{"./ui", "./pages"}, config.Components.ScanPaths)
	assert.Equal(t, GenerateConfig{Package: "ui", OutputDir: "gen"}, config.Generate)
	assert.False(t, config.Development.HotReload)
	assert.True(t, config.Development.ErrorOverlay)
	assert.Equal(t, 250*time.Millisecond, config.Development.Debounce)

	lc, err := config.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestLoadFrom_CommaSeparatedSlices(t *testing.T) {
	v := viper.New()
	v.Set("components.scan_paths", "./a, ./b")
	v.Set("server.allowed_origins", []string{"http://x.test,http://y.test"})

	config, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"./a", "./b"}, config.Components.ScanPaths)
	assert.Equal(t, []string{"http://x.test", "http://y.test"}, config.Server.AllowedOrigins)
}

func TestLoadFrom_Env(t *testing.T) {
	t.Setenv("GORSX_SERVER_PORT", "9999")

	v := viper.New()
	v.SetEnvPrefix("GORSX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 9999, config.Server.Port)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"port not a number", "server.port", "invalid_port"},
		{"port out of range", "server.port", 70000},
		{"host with metacharacters", "server.host", "localhost;rm"},
		{"empty scan paths", "components.scan_paths", []string{}},
		{"scan path with metacharacters", "components.scan_paths", []string{"./a|b"}},
		{"bad exclude pattern", "components.exclude_patterns", []string{"[x"}},
		{"bad package", "generate.package", "my-views"},
		{"negative debounce", "development.debounce", "-1s"},
		{"unknown log level", "log.level", "loud"},
		{"unknown log format", "log.format", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			config, err := LoadFrom(v)

			require.Error(t, err)
			assert.Nil(t, config)
			assert.True(t, errors.HasErrorCode(err, errors.ErrCodeConfigInvalid))
		})
	}
}
