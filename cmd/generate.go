package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/gorsx/internal/codegen"
	"github.com/conneroisu/gorsx/internal/config"
	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/logging"
)

var generateCmd = &cobra.Command{
	Use:     "generate <file...>",
	Aliases: []string{"gen"},
	Short:   "Generate Go components or Markdown docs from templates",
	Long: `Generate a Go source file for each template. The generated file declares
a component.Component built from node, attr and component calls, so the
template costs nothing to parse at run time. Embedded expressions are Go.

With --format docs a Markdown page describing each template's props is
written instead.

Files are written next to their template unless --out (or
generate.output_dir) names a directory.

Examples:
  gorsx generate views/card.rsx                  # Writes views/card_rsx.go
  gorsx generate views/*.rsx --package ui --out ui
  gorsx generate views/card.rsx --format docs --out docs`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var (
	generatePackage string
	generateOut     string
	generateFormat  string
	generateDryRun  bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generatePackage, "package", "p", "", "Package name of generated files (default generate.package)")
	generateCmd.Flags().StringVar(&generateOut, "out", "", "Output directory (default generate.output_dir, else next to the template)")
	generateCmd.Flags().StringVarP(&generateFormat, "format", "f", "go", "What to generate (go|docs)")
	generateCmd.Flags().BoolVarP(&generateDryRun, "dry-run", "n", false, "Print generated files instead of writing them")
	AddFlagValidation(generateCmd, "format", ValidateChoice([]string{"go", "docs"}))

	bindFlag(generateCmd, "package", "generate.package")
	bindFlag(generateCmd, "out", "generate.output_dir")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger = logger.WithComponent("generate")

	var errs []error
	for _, path := range args {
		var name string
		var data []byte
		if generateFormat == "docs" {
			name, data, err = generateDocs(cmd, cfg, logger, path)
		} else {
			name, data, err = generateGo(cfg, path)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if generateDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "// %s\n%s\n", name, data)
			continue
		}
		dest := outputPath(cfg, path, name)
		if err := writeFile(dest, data); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info(ctx, "generated", "template", path, "file", dest)
		fmt.Fprintln(cmd.OutOrStdout(), dest)
	}
	return errors.CombineErrors(errs...)
}

func generateGo(cfg *config.Config, path string) (string, []byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "reading template").WithLocation(path, 0, 0)
	}
	res, err := codegen.Generate(path, src, codegen.Options{
		Package: cfg.Generate.Package,
		Runtime: cfg.Generate.Runtime,
	})
	if err != nil {
		return "", nil, err
	}
	return res.FileName, res.Source, nil
}

// generateDocs compiles path with the scan paths so the components it
// uses resolve, then documents it.
func generateDocs(cmd *cobra.Command, cfg *config.Config, logger logging.Logger, path string) (string, []byte, error) {
	p, err := buildProject(cmd.Context(), cfg, logger, nil, []string{path})
	if err != nil {
		return "", nil, err
	}
	t := p.template(path)
	if t == nil {
		if p.err != nil {
			return "", nil, p.err
		}
		return "", nil, errors.NewIOError(errors.ErrCodeFileNotFound, "template not compiled: "+path, nil)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return base + ".md", []byte(codegen.Docs(t)), nil
}

func outputPath(cfg *config.Config, template, name string) string {
	if dir := cfg.Generate.OutputDir; dir != "" {
		return filepath.Join(dir, name)
	}
	return filepath.Join(filepath.Dir(template), name)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeInvalidPath, "creating output directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeInvalidPath, "writing "+path)
	}
	return nil
}
