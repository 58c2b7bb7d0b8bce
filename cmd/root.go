// Package cmd provides the gorsx command-line interface.
//
// Configuration System:
//
//	Settings come from several sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. Individual environment variables (GORSX_SERVER_PORT, etc.)
//	3. The configuration file: --config, then GORSX_CONFIG_FILE, then .gorsx.yml
//	4. Built-in defaults - lowest priority
//
// Environment Variables:
//
//	GORSX_CONFIG_FILE: Path to custom configuration file
//	GORSX_SERVER_PORT: Override server port
//	GORSX_COMPONENTS_SCAN_PATHS: Comma-separated template directories
//	GORSX_DEVELOPMENT_HOT_RELOAD: Enable/disable hot reload
//	And the rest following the GORSX_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/gorsx/internal/config"
	"github.com/conneroisu/gorsx/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gorsx",
	Short: "Compile and preview RSX markup templates",
	Long: `gorsx compiles .rsx templates, a JSX-like markup where lowercase tags are
HTML elements and capitalized tags are components, into HTML or Go code.

Quick Start:
  gorsx render views/home.rsx      Render a template to HTML
  gorsx check                      Validate every template
  gorsx generate views/*.rsx       Generate Go components
  gorsx serve                      Start the preview server with live reload

Command Aliases (for faster typing):
  render (r), check (c), generate (gen), list (l), watch (w), serve (s)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .gorsx.yml, can also use GORSX_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	bindFlag(rootCmd, "log-level", "log.level")
	bindFlag(rootCmd, "log-format", "log.format")
}

// initConfig points viper at the configuration file and environment.
//
// Configuration file priority (highest to lowest):
//  1. --config flag
//  2. GORSX_CONFIG_FILE environment variable
//  3. .gorsx.yml in the current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("GORSX_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".gorsx")
	}

	// GORSX_SERVER_PORT -> server.port
	viper.SetEnvPrefix("GORSX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, b := range flagBindings {
		f := b.cmd.Flags().Lookup(b.flag)
		if f == nil {
			f = b.cmd.PersistentFlags().Lookup(b.flag)
		}
		if f != nil {
			_ = viper.BindPFlag(b.key, f)
		}
	}
}

type flagBinding struct {
	cmd       *cobra.Command
	flag, key string
}

// flagBindings are applied on every run so that a set flag overrides the
// configuration file and environment.
var flagBindings []flagBinding

// bindFlag makes flag of cmd override the configuration key.
func bindFlag(cmd *cobra.Command, flag, key string) {
	flagBindings = append(flagBindings, flagBinding{cmd: cmd, flag: flag, key: key})
}

// loadConfig reads the configuration file, if any, and returns the
// validated configuration with a logger built from it.
func loadConfig(ctx context.Context) (*config.Config, logging.Logger, error) {
	if err := viper.ReadInConfig(); err != nil {
		// Only a missing default file is fine; an explicit --config must exist.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger(lc)
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug(ctx, "using config file", "path", used)
	}
	return cfg, logger, nil
}
