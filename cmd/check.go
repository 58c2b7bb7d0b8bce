package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/gorsx/internal/errors"
)

var checkCmd = &cobra.Command{
	Use:     "check [paths...]",
	Aliases: []string{"c"},
	Short:   "Validate templates without rendering them",
	Long: `Parse, validate and compile templates and report every problem found.

Directory arguments replace the configured scan paths. File arguments are
checked together with the scan paths so the components they use resolve.
The command exits non-zero when any template fails.

Examples:
  gorsx check                     # Check the configured scan paths
  gorsx check views               # Check one directory
  gorsx check views/home.rsx      # Check one file
  gorsx check -o json             # Report as JSON for tooling`,
	RunE: runCheck,
}

var checkFormat string

// CheckReport is the machine-readable result of check.
type CheckReport struct {
	Templates   int                 `json:"templates" yaml:"templates"`
	Failed      int                 `json:"failed" yaml:"failed"`
	Diagnostics []errors.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addOutputFlag(checkCmd, &checkFormat, reportFormats)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	dirs, files := splitArgs(args)
	p, err := buildProject(ctx, cfg, logger, dirs, files)
	if err != nil {
		return err
	}

	diagnostics := p.diagnostics().GetErrors()
	report := CheckReport{
		Templates:   len(p.sources),
		Failed:      len(p.sources) - len(p.templates),
		Diagnostics: diagnostics,
	}
	if report.Diagnostics == nil {
		report.Diagnostics = []errors.Diagnostic{}
	}

	out := cmd.OutOrStdout()
	switch checkFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	case "yaml":
		err = yaml.NewEncoder(out).Encode(report)
	default:
		err = printCheckTable(out, report, p)
	}
	if err != nil {
		return err
	}

	if len(diagnostics) > 0 {
		return fmt.Errorf("%d problem(s) in %d template(s)", len(diagnostics), report.Failed)
	}
	return nil
}

func printCheckTable(out io.Writer, report CheckReport, p *project) error {
	if len(report.Diagnostics) == 0 {
		_, err := fmt.Fprintf(out, "%d template(s) OK\n", report.Templates)
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOCATION\tCOMPONENT\tCODE\tMESSAGE")
	for _, d := range report.Diagnostics {
		fmt.Fprintf(w, "%s:%d:%d\t%s\t%s\t%s\n", d.File, d.Line, d.Column, d.Component, d.Code, d.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	ctx := &errors.SuggestionContext{KnownComponents: p.registry.Names()}
	for _, e := range errors.Split(p.err) {
		if s := errors.Suggest(e, ctx); len(s) > 0 {
			fmt.Fprintln(out, "\n"+errors.FormatSuggestions(e.Error(), s))
		}
	}
	return nil
}
