package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/conneroisu/gorsx/internal/config"
	"github.com/conneroisu/gorsx/internal/engine"
	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/logging"
	"github.com/conneroisu/gorsx/internal/registry"
	"github.com/conneroisu/gorsx/internal/scanner"
)

// project is one compiled set of templates.
type project struct {
	registry  *registry.ComponentRegistry
	templates []*engine.Template
	sources   []engine.Source
	// err combines every scan and compile failure; templates that compiled
	// are still registered.
	err error
}

// splitArgs separates directory arguments from file arguments.
func splitArgs(args []string) (dirs, files []string) {
	for _, a := range args {
		if info, err := os.Stat(a); err == nil && info.IsDir() {
			dirs = append(dirs, a)
			continue
		}
		files = append(files, a)
	}
	return dirs, files
}

// buildProject scans dirs, or the configured scan paths when dirs is empty,
// adds files and compiles everything into one registry.
func buildProject(ctx context.Context, cfg *config.Config, logger logging.Logger, dirs, files []string) (*project, error) {
	if len(dirs) == 0 {
		var missing []string
		dirs, missing = scanner.ExistingPaths(cfg.Components.ScanPaths)
		for _, p := range missing {
			logger.Debug(ctx, "scan path does not exist", "path", p)
		}
	}

	sc := scanner.NewComponentScanner(cfg.Components.ExcludePatterns)
	res, err := sc.Scan(ctx, dirs)
	if res == nil {
		return nil, err
	}
	errs := []error{err}

	sources := res.Sources
	for _, f := range files {
		if hasSource(sources, f) {
			continue
		}
		src, err := sc.ScanFile(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}

	reg := registry.NewComponentRegistry()
	templates, err := engine.Build(ctx, reg, sources, engine.WithLogger(logger))
	errs = append(errs, err)

	return &project{
		registry:  reg,
		templates: templates,
		sources:   sources,
		err:       errors.CombineErrors(errs...),
	}, nil
}

func hasSource(sources []engine.Source, path string) bool {
	path = filepath.Clean(path)
	for _, s := range sources {
		if filepath.Clean(s.Path) == path {
			return true
		}
	}
	return false
}

// template returns the compiled template read from path.
func (p *project) template(path string) *engine.Template {
	path = filepath.Clean(path)
	for _, t := range p.templates {
		if filepath.Clean(t.Path) == path {
			return t
		}
	}
	return nil
}

// diagnostics returns the failures of the build as diagnostics.
func (p *project) diagnostics() *errors.ErrorCollector {
	collector := errors.NewErrorCollector()
	for _, e := range errors.Split(p.err) {
		collector.AddError(e)
	}
	return collector
}
