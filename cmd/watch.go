package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/gorsx/internal/config"
	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/logging"
	"github.com/conneroisu/gorsx/internal/scanner"
	"github.com/conneroisu/gorsx/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Recompile templates when they change",
	Long: `Watch the scan paths and recompile every template when a .rsx file changes,
reporting problems as they appear. This is useful when you want fast
feedback without the preview server.

Examples:
  gorsx watch                      # Check on every change
  gorsx watch --generate           # Also regenerate Go files for changed templates
  gorsx watch --command "go test ./..."  # Run a command after each successful build`,
	RunE: runWatch,
}

var (
	watchGenerate bool
	watchCommand  string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchGenerate, "generate", "g", false, "Regenerate Go files for changed templates")
	watchCmd.Flags().StringVarP(&watchCommand, "command", "c", "", "Command to run after each successful build")
	AddFlagValidation(watchCmd, "command", func(s string) error {
		if s == "" {
			return nil
		}
		_, err := parseCustomCommand(s)
		return err
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger = logger.WithComponent("watch")
	out := cmd.OutOrStdout()

	fw, err := watcher.NewFileWatcher(cfg.Development.Debounce, logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	sc := scanner.NewComponentScanner(cfg.Components.ExcludePatterns)
	fw.AddFilter(watcher.AnyFilter(watcher.RSXFilter, watcher.ConfigFilter))
	fw.AddFilter(watcher.NoVendorFilter)
	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(func(path string) bool { return !sc.Excluded(path) })
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		fmt.Fprintf(out, "%d file(s) changed\n", len(events))
		if configChanged(events) {
			next, _, err := loadConfig(ctx)
			if err != nil {
				logger.Error(ctx, err, "reloading configuration")
				return nil
			}
			cfg = next
			fmt.Fprintln(out, "Configuration reloaded")
		}
		if !watchBuild(ctx, out, cfg, logger) {
			return nil
		}
		if watchGenerate {
			for _, e := range events {
				if e.Type == watcher.EventTypeDeleted || e.Type == watcher.EventTypeRenamed || !watcher.RSXFilter(e.Path) {
					continue
				}
				dest, err := generateAndWrite(cfg, e.Path)
				if err != nil {
					logger.Error(ctx, err, "generate failed", "template", e.Path)
					continue
				}
				fmt.Fprintf(out, "Generated %s\n", dest)
			}
		}
		if watchCommand != "" {
			if err := runCustomCommand(ctx, out, watchCommand); err != nil {
				logger.Error(ctx, err, "command failed", "command", watchCommand)
			}
		}
		return nil
	})

	paths, _ := scanner.ExistingPaths(cfg.Components.ScanPaths)
	if len(paths) == 0 {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"none of the scan paths exist: "+strings.Join(cfg.Components.ScanPaths, ", "))
	}
	for _, p := range paths {
		if err := fw.AddRecursive(p); err != nil {
			logger.Warn(ctx, err, "cannot watch path", "path", p)
			continue
		}
		fmt.Fprintf(out, "Watching %s\n", p)
	}

	if used := viper.ConfigFileUsed(); used != "" {
		if err := fw.AddPath(filepath.Dir(used)); err != nil {
			logger.Warn(ctx, err, "cannot watch config file", "path", used)
		}
	}

	watchBuild(ctx, out, cfg, logger)
	fw.Start(ctx)
	fmt.Fprintln(out, "Watching for changes... (Press Ctrl+C to stop)")

	<-ctx.Done()
	return nil
}

// configChanged reports whether any event touched a config file.
func configChanged(events []watcher.ChangeEvent) bool {
	for _, e := range events {
		if watcher.ConfigFilter(e.Path) {
			return true
		}
	}
	return false
}

// watchBuild compiles the project and prints the outcome. It reports
// whether every template compiled.
func watchBuild(ctx context.Context, out io.Writer, cfg *config.Config, logger logging.Logger) bool {
	p, err := buildProject(ctx, cfg, logger, nil, nil)
	if err != nil {
		logger.Error(ctx, err, "scan failed")
		return false
	}
	diagnostics := p.diagnostics().GetErrors()
	if len(diagnostics) == 0 {
		fmt.Fprintf(out, "%d template(s) OK\n", len(p.templates))
		return true
	}
	for _, d := range diagnostics {
		fmt.Fprintf(out, "%s:%d:%d: %s\n", d.File, d.Line, d.Column, d.Message)
	}
	return false
}

func generateAndWrite(cfg *config.Config, path string) (string, error) {
	name, data, err := generateGo(cfg, path)
	if err != nil {
		return "", err
	}
	dest := outputPath(cfg, path, name)
	return dest, writeFile(dest, data)
}

// allowedCommands are the programs --command may start.
var allowedCommands = map[string]bool{
	"go":    true,
	"templ": true,
	"make":  true,
	"npm":   true,
	"pnpm":  true,
	"yarn":  true,
	"echo":  true,
}

// parseCustomCommand splits command into program and arguments, rejecting
// programs outside allowedCommands and shell metacharacters.
func parseCustomCommand(command string) ([]string, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	program := filepath.Base(parts[0])
	if program != parts[0] || !allowedCommands[program] {
		return nil, fmt.Errorf("command %q is not allowed", parts[0])
	}
	for _, arg := range parts[1:] {
		if strings.ContainsAny(arg, ";&|`$<>\\") {
			return nil, fmt.Errorf("argument %q contains shell metacharacters", arg)
		}
	}
	return parts, nil
}

func runCustomCommand(ctx context.Context, out io.Writer, command string) error {
	parts, err := parseCustomCommand(command)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Running %s\n", command)
	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdout = out
	c.Stderr = os.Stderr
	return c.Run()
}
