// Package config loads gorsx settings with Viper from .gorsx.yml,
// GORSX_ environment variables and command-line flags.
package config

import (
	"fmt"
	"go/token"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/logging"
)

// Config is the complete configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server" json:"server"`
	Components  ComponentsConfig  `mapstructure:"components" yaml:"components" json:"components"`
	Generate    GenerateConfig    `mapstructure:"generate" yaml:"generate" json:"generate"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development" json:"development"`
	Log         LogConfig         `mapstructure:"log" yaml:"log" json:"log"`
	TargetFiles []string          `mapstructure:"-" yaml:"-" json:"-"` // CLI arguments, not from config file
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port" json:"port"`
	Host           string   `mapstructure:"host" yaml:"host" json:"host"`
	Open           bool     `mapstructure:"open" yaml:"open" json:"open"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type ComponentsConfig struct {
	ScanPaths       []string `mapstructure:"scan_paths" yaml:"scan_paths" json:"scan_paths"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns" json:"exclude_patterns"`
}

type GenerateConfig struct {
	Package   string `mapstructure:"package" yaml:"package" json:"package"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	Runtime   string `mapstructure:"runtime" yaml:"runtime" json:"runtime"`
}

type DevelopmentConfig struct {
	HotReload    bool          `mapstructure:"hot_reload" yaml:"hot_reload" json:"hot_reload"`
	ErrorOverlay bool          `mapstructure:"error_overlay" yaml:"error_overlay" json:"error_overlay"`
	MockProps    bool          `mapstructure:"mock_props" yaml:"mock_props" json:"mock_props"`
	Debounce     time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.open", false)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("components.scan_paths", []string{"./components", "./views"})
	v.SetDefault("components.exclude_patterns", []string{"*_test.rsx", "*.bak", "node_modules"})
	v.SetDefault("generate.package", "views")
	v.SetDefault("generate.output_dir", "")
	v.SetDefault("generate.runtime", "")
	v.SetDefault("development.hot_reload", true)
	v.SetDefault("development.error_overlay", true)
	v.SetDefault("development.mock_props", true)
	v.SetDefault("development.debounce", 100*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from the global Viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "decoding configuration")
	}

	// Slices given as a comma-separated flag or env value arrive as one string.
	config.Components.ScanPaths = splitPaths(v.GetStringSlice("components.scan_paths"))
	config.Components.ExcludePatterns = splitPaths(v.GetStringSlice("components.exclude_patterns"))
	config.Server.AllowedOrigins = splitPaths(v.GetStringSlice("server.allowed_origins"))

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func splitPaths(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// LoggerConfig converts the log section to a logger configuration.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "log.level")
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Log.Format
	return lc, nil
}

// validateConfig checks every section and reports the first problem.
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return invalid("server", err)
	}
	if err := validateComponentsConfig(&config.Components); err != nil {
		return invalid("components", err)
	}
	if err := validateGenerateConfig(&config.Generate); err != nil {
		return invalid("generate", err)
	}
	if config.Development.Debounce < 0 {
		return invalid("development", fmt.Errorf("debounce must not be negative"))
	}
	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return invalid("log", err)
	}
	if f := config.Log.Format; f != "text" && f != "json" {
		return invalid("log", fmt.Errorf("format must be text or json, got %q", f))
	}
	return nil
}

func invalid(section string, err error) error {
	return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "invalid configuration").
		WithContext("section", section)
}

func validateServerConfig(config *ServerConfig) error {
	// 0 lets the system pick a port
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}
	if strings.ContainsAny(config.Host, ";&|$`()<>\"'\\ /") {
		return fmt.Errorf("invalid host %q", config.Host)
	}
	return nil
}

func validateComponentsConfig(config *ComponentsConfig) error {
	if len(config.ScanPaths) == 0 {
		return fmt.Errorf("scan_paths must not be empty")
	}
	for _, path := range config.ScanPaths {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid scan path '%s': %w", path, err)
		}
	}
	for _, pattern := range config.ExcludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}
	return nil
}

func validateGenerateConfig(config *GenerateConfig) error {
	if !token.IsIdentifier(config.Package) {
		return fmt.Errorf("package %q is not a Go identifier", config.Package)
	}
	if config.OutputDir != "" {
		if err := validatePath(config.OutputDir); err != nil {
			return fmt.Errorf("invalid output_dir '%s': %w", config.OutputDir, err)
		}
	}
	return nil
}

// validatePath rejects empty paths and shell metacharacters.
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}
	if strings.ContainsAny(path, ";&|$`<>\"'") {
		return fmt.Errorf("path contains a shell metacharacter")
	}
	return nil
}
