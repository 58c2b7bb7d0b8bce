package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/gorsx/internal/registry"
	"github.com/conneroisu/gorsx/pkg/component"
)

var listCmd = &cobra.Command{
	Use:     "list [dirs...]",
	Aliases: []string{"l"},
	Short:   "List all discovered components",
	Long: `List the templates found in the scan paths with their metadata.
Templates that fail to compile are left out and reported as a warning.

Examples:
  gorsx list                      # List all components in table format
  gorsx list -o json              # Output as JSON
  gorsx list -p                   # Include component properties
  gorsx list -d                   # Include dependencies and dependents
  gorsx list -pd -o yaml          # Everything, as YAML`,
	RunE: runList,
}

var (
	listFormat    string
	listWithDeps  bool
	listWithProps bool
)

// ComponentListing is one row of list output.
type ComponentListing struct {
	Name         string           `json:"name" yaml:"name"`
	File         string           `json:"file" yaml:"file"`
	Hash         string           `json:"hash" yaml:"hash"`
	Props        []component.Prop `json:"props,omitempty" yaml:"props,omitempty"`
	Dependencies []string         `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	UsedBy       []string         `json:"used_by,omitempty" yaml:"used_by,omitempty"`
}

func init() {
	rootCmd.AddCommand(listCmd)

	addOutputFlag(listCmd, &listFormat, reportFormats)
	listCmd.Flags().BoolVarP(&listWithDeps, "with-deps", "d", false, "Include component dependencies")
	listCmd.Flags().BoolVarP(&listWithProps, "with-props", "p", false, "Include component properties")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	p, err := buildProject(ctx, cfg, logger, args, nil)
	if err != nil {
		return err
	}
	if p.err != nil {
		logger.Warn(ctx, p.err, "some templates failed to compile")
	}

	listings := listComponents(p.registry, listWithProps, listWithDeps)

	out := cmd.OutOrStdout()
	switch listFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(listings)
	case "yaml":
		return yaml.NewEncoder(out).Encode(listings)
	default:
		return printListTable(out, listings)
	}
}

func listComponents(reg *registry.ComponentRegistry, withProps, withDeps bool) []ComponentListing {
	analyzer := registry.NewDependencyAnalyzer(reg)
	listings := make([]ComponentListing, 0, reg.Count())
	for _, info := range reg.GetAll() {
		l := ComponentListing{Name: info.Name, File: info.FilePath, Hash: info.Hash}
		if withProps {
			l.Props = info.Schema.Props
		}
		if withDeps {
			l.Dependencies = info.Dependencies
			for _, d := range analyzer.GetDependents(info.Name) {
				l.UsedBy = append(l.UsedBy, d.Name)
			}
		}
		listings = append(listings, l)
	}
	return listings
}

func printListTable(out io.Writer, listings []ComponentListing) error {
	if len(listings) == 0 {
		_, err := fmt.Fprintln(out, "No components found")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := []string{"NAME", "FILE"}
	if listWithProps {
		header = append(header, "PROPS")
	}
	if listWithDeps {
		header = append(header, "USES", "USED BY")
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, l := range listings {
		row := []string{l.Name, l.File}
		if listWithProps {
			row = append(row, propSummary(l.Props))
		}
		if listWithDeps {
			row = append(row, orDash(strings.Join(l.Dependencies, ", ")), orDash(strings.Join(l.UsedBy, ", ")))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\nTotal: %d components\n", len(listings))
	return err
}

// propSummary renders props as "title*, tone=info"; * marks required.
func propSummary(props []component.Prop) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		switch {
		case p.HasDefault:
			parts = append(parts, fmt.Sprintf("%s=%v", p.Name, p.Default))
		case p.Required:
			parts = append(parts, p.Name+"*")
		default:
			parts = append(parts, p.Name)
		}
	}
	return orDash(strings.Join(parts, ", "))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
