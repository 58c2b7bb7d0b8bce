package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/renderer"
	"github.com/conneroisu/gorsx/pkg/component"
)

var renderCmd = &cobra.Command{
	Use:     "render [file]",
	Aliases: []string{"r"},
	Short:   "Render a template to HTML",
	Long: `Render a template, or any component found in the scan paths, to HTML.

The file is compiled together with the configured scan paths so that the
components it uses resolve. Props come from a YAML or JSON data file and
are converted to the types the template declares.

Examples:
  gorsx render views/home.rsx                     # Render to stdout
  gorsx render views/card.rsx --data card.yaml    # Render with props
  gorsx render --component Card --mock            # Render a scanned component with mock props
  gorsx render views/home.rsx -O public/index.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

var (
	renderData      string
	renderComponent string
	renderMock      bool
	renderOut       string
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderData, "data", "d", "", "Props file (YAML or JSON)")
	renderCmd.Flags().StringVarP(&renderComponent, "component", "c", "", "Component to render (default: the file's component)")
	renderCmd.Flags().BoolVarP(&renderMock, "mock", "m", false, "Fill missing required props with mock values")
	renderCmd.Flags().StringVarP(&renderOut, "out", "O", "", "Write HTML to a file instead of stdout")
	AddFlagValidation(renderCmd, "data", ValidateFileExists)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if len(args) == 0 && renderComponent == "" {
		return fmt.Errorf("render needs a file or --component")
	}

	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	props, err := ParseProps(renderData)
	if err != nil {
		return err
	}

	p, err := buildProject(ctx, cfg, logger, nil, args)
	if err != nil {
		return err
	}

	name := renderComponent
	if name == "" {
		name = component.NameFromPath(args[0])
		if t := p.template(args[0]); t != nil {
			name = t.Name
		}
	}

	if _, ok := p.registry.Get(name); !ok {
		// The requested component failed to compile; report why.
		if p.err != nil {
			return p.err
		}
		return errors.ErrUnknownComponent(name)
	}
	if p.err != nil {
		logger.Warn(ctx, p.err, "some templates failed to compile")
	}

	var w io.Writer = cmd.OutOrStdout()
	if renderOut != "" {
		f, err := os.Create(renderOut)
		if err != nil {
			return errors.WrapIO(err, errors.ErrCodeInvalidPath, "creating "+renderOut)
		}
		defer f.Close()
		w = f
	}

	r := renderer.NewComponentRenderer(p.registry, logger)
	if err := r.RenderTo(ctx, w, name, props, renderer.Options{Mock: renderMock}); err != nil {
		return err
	}
	if renderOut == "" {
		_, err = fmt.Fprintln(w)
		return err
	}
	return nil
}
