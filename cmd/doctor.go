package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/conneroisu/gorsx/internal/config"
	"github.com/conneroisu/gorsx/internal/logging"
	"github.com/conneroisu/gorsx/internal/scanner"
	"github.com/conneroisu/gorsx/internal/version"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the project setup",
	Long: `Diagnose the project and development environment. The doctor command checks:

- The configuration file and its values
- Scan paths and the templates found in them
- Whether every template compiles
- The Go toolchain needed for generated code
- Whether the preview server port is free
- Whether the generate output directory is writable

Examples:
  gorsx doctor                    # Full diagnosis as a table
  gorsx doctor -o json            # Output as JSON for tooling`,
	RunE: runDoctor,
}

var doctorFormat string

// DiagnosticResult represents the result of a diagnostic check
type DiagnosticResult struct {
	Name       string         `json:"name" yaml:"name"`
	Category   string         `json:"category" yaml:"category"`
	Status     string         `json:"status" yaml:"status"` // "ok", "warning", "error", "info"
	Message    string         `json:"message" yaml:"message"`
	Suggestion string         `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// DoctorReport represents the complete diagnostic report
type DoctorReport struct {
	Timestamp   time.Time          `json:"timestamp" yaml:"timestamp"`
	Environment map[string]string  `json:"environment" yaml:"environment"`
	Results     []DiagnosticResult `json:"results" yaml:"results"`
	Summary     ReportSummary      `json:"summary" yaml:"summary"`
}

// ReportSummary provides an overview of diagnostic results
type ReportSummary struct {
	Total    int `json:"total" yaml:"total"`
	OK       int `json:"ok" yaml:"ok"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
	Info     int `json:"info" yaml:"info"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	addOutputFlag(doctorCmd, &doctorFormat, reportFormats)
}

// doctorCheck inspects one aspect of the setup. cfg is nil when the
// configuration failed to load.
type doctorCheck func(ctx context.Context, cfg *config.Config, logger logging.Logger) DiagnosticResult

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, cfgErr := loadConfig(ctx)
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	report := &DoctorReport{
		Timestamp:   time.Now(),
		Environment: gatherEnvironmentInfo(),
		Results:     []DiagnosticResult{checkConfiguration(cfgErr)},
	}
	if cfg != nil {
		for _, check := range []doctorCheck{
			checkScanPaths,
			checkTemplates,
			checkGoToolchain,
			checkPortAvailability,
			checkOutputDir,
		} {
			report.Results = append(report.Results, check(ctx, cfg, logger))
		}
	}
	report.Summary = calculateSummary(report.Results)

	if err := outputReport(cmd.OutOrStdout(), report, doctorFormat); err != nil {
		return fmt.Errorf("failed to output report: %w", err)
	}
	if report.Summary.Errors > 0 {
		return fmt.Errorf("%d check(s) failed", report.Summary.Errors)
	}
	return nil
}

func gatherEnvironmentInfo() map[string]string {
	env := map[string]string{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"go_version": runtime.Version(),
		"gorsx":      version.GetBuildInfo().Short(),
	}
	if wd, err := os.Getwd(); err == nil {
		env["working_dir"] = wd
	}
	return env
}

func checkConfiguration(cfgErr error) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Configuration",
		Category: "Configuration",
		Status:   "ok",
	}

	if cfgErr != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Configuration has errors: %v", cfgErr)
		result.Suggestion = "Fix the values named above in .gorsx.yml or the GORSX_ environment variables"
		return result
	}

	used := viper.ConfigFileUsed()
	if used == "" {
		result.Status = "info"
		result.Message = "No .gorsx.yml found, using defaults"
		result.Suggestion = "Create .gorsx.yml to set scan paths and generate options"
		return result
	}
	result.Message = "Configuration file is valid"
	result.Details = map[string]any{"file": used}
	return result
}

func checkScanPaths(_ context.Context, cfg *config.Config, _ logging.Logger) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Scan Paths",
		Category: "Templates",
		Status:   "ok",
	}

	existing, missing := scanner.ExistingPaths(cfg.Components.ScanPaths)
	result.Details = map[string]any{"existing": existing, "missing": missing}
	switch {
	case len(existing) == 0:
		result.Status = "error"
		result.Message = "None of the scan paths exist: " + strings.Join(cfg.Components.ScanPaths, ", ")
		result.Suggestion = "Create a template directory or set components.scan_paths"
	case len(missing) > 0:
		result.Status = "warning"
		result.Message = "Some scan paths do not exist: " + strings.Join(missing, ", ")
		result.Suggestion = "Remove them from components.scan_paths"
	default:
		result.Message = "All scan paths exist"
	}
	return result
}

func checkTemplates(ctx context.Context, cfg *config.Config, logger logging.Logger) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Templates",
		Category: "Templates",
		Status:   "ok",
	}

	p, err := buildProject(ctx, cfg, logger, nil, nil)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Scanning failed: %v", err)
		return result
	}

	diagnostics := p.diagnostics().GetErrors()
	result.Details = map[string]any{
		"found":    len(p.sources),
		"compiled": len(p.templates),
		"problems": len(diagnostics),
	}
	switch {
	case len(diagnostics) > 0:
		result.Status = "error"
		result.Message = fmt.Sprintf("%d of %d template(s) failed to compile", len(p.sources)-len(p.templates), len(p.sources))
		result.Suggestion = "Run 'gorsx check' for details"
	case len(p.sources) == 0:
		result.Status = "warning"
		result.Message = "No .rsx templates found"
		result.Suggestion = "Add templates to one of the scan paths"
	default:
		result.Message = fmt.Sprintf("%d template(s) compile", len(p.templates))
	}
	return result
}

func checkGoToolchain(ctx context.Context, _ *config.Config, _ logging.Logger) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Go Toolchain",
		Category: "Tools",
		Status:   "ok",
	}

	goPath, err := exec.LookPath("go")
	if err != nil {
		result.Status = "info"
		result.Message = "go is not on PATH"
		result.Suggestion = "Install Go to compile the output of 'gorsx generate'"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, goPath, "version").Output()
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("go version failed: %v", err)
		return result
	}
	result.Message = strings.TrimSpace(string(out))
	result.Details = map[string]any{"path": goPath}
	return result
}

func checkPortAvailability(_ context.Context, cfg *config.Config, _ logging.Logger) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Port Availability",
		Category: "Network",
		Status:   "ok",
	}

	addr := cfg.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%s is in use", addr)
		result.Suggestion = "Use another port: gorsx serve --port <port>"
		return result
	}
	_ = ln.Close()
	result.Message = fmt.Sprintf("%s is available", addr)
	return result
}

func checkOutputDir(_ context.Context, cfg *config.Config, _ logging.Logger) DiagnosticResult {
	result := DiagnosticResult{
		Name:     "Generate Output",
		Category: "Configuration",
		Status:   "ok",
	}

	dir := cfg.Generate.OutputDir
	if dir == "" {
		result.Status = "info"
		result.Message = "Generated files are written next to their templates"
		return result
	}

	// The directory may not exist yet; its nearest existing parent must be writable.
	probeDir := dir
	for {
		if _, err := os.Stat(probeDir); err == nil {
			break
		}
		parent := filepath.Dir(probeDir)
		if parent == probeDir {
			break
		}
		probeDir = parent
	}
	f, err := os.CreateTemp(probeDir, ".gorsx-doctor-*")
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("%s is not writable: %v", dir, err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	result.Message = fmt.Sprintf("%s is writable", dir)
	return result
}

func calculateSummary(results []DiagnosticResult) ReportSummary {
	summary := ReportSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case "ok":
			summary.OK++
		case "warning":
			summary.Warnings++
		case "error":
			summary.Errors++
		case "info":
			summary.Info++
		}
	}
	return summary
}

func outputReport(w io.Writer, report *DoctorReport, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return displayReport(w, report)
	}
}

var statusIcons = map[string]string{
	"ok":      "✅",
	"warning": "⚠️ ",
	"error":   "❌",
	"info":    "ℹ️ ",
}

func displayReport(w io.Writer, report *DoctorReport) error {
	fmt.Fprintln(w, "gorsx doctor")
	fmt.Fprintln(w, "============")
	for _, r := range report.Results {
		fmt.Fprintf(w, "%s %s: %s\n", statusIcons[r.Status], r.Name, r.Message)
		if r.Suggestion != "" {
			fmt.Fprintf(w, "   -> %s\n", r.Suggestion)
		}
	}
	s := report.Summary
	_, err := fmt.Fprintf(w, "\n%d checks: %d ok, %d warnings, %d errors, %d info\n",
		s.Total, s.OK, s.Warnings, s.Errors, s.Info)
	return err
}
