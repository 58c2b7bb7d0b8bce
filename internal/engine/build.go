package engine

import (
	"context"
	"fmt"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/logging"
	"github.com/conneroisu/gorsx/internal/registry"
	"github.com/conneroisu/gorsx/pkg/component"
)

// Source is one template file.
type Source struct {
	Path    string
	Content []byte
}

// Build compiles sources into templates and registers each one in reg
// under its component name, dependencies first, so templates can use one
// another as tags. Components already in reg are available to every
// template. reg is frozen when Build returns.
//
// Build keeps going after a failure: it returns every template that
// compiled together with the combined errors of those that did not.
// Templates that depend on a failed template are skipped without a
// separate error. Each dependency cycle is reported once and its members
// fail; the rest of the sources still build.
func Build(ctx context.Context, reg *registry.ComponentRegistry, sources []Source, opts ...Option) ([]*Template, error) {
	defer reg.Freeze()

	e := New(reg, opts...)
	op := logging.StartOperation(e.logger, "build")

	var errs []error
	parsed := make(map[string]*parsedSource, len(sources))
	graph := make(map[string][]string, len(sources))
	for _, src := range sources {
		ps, err := parseSource(src.Path, src.Content)
		if err != nil {
			errs = append(errs, errors.EnhanceError(err, component.NameFromPath(src.Path), src.Path))
			continue
		}
		if prev, dup := parsed[ps.name]; dup {
			errs = append(errs, errors.NewValidationError(
				errors.ErrCodeDuplicateName,
				fmt.Sprintf("component %q is defined by both %s and %s", ps.name, prev.path, ps.path),
			).WithComponent(ps.name).WithLocation(ps.path, 0, 0))
			continue
		}
		parsed[ps.name] = ps
		graph[ps.name] = ps.deps
	}

	failed := make(map[string]bool)
	acyclic, cycles := registry.RemoveCycles(graph)
	for _, cycle := range cycles {
		first := parsed[cycle[0]]
		errs = append(errs, registry.CycleError(cycle).WithLocation(first.path, 0, 0))
		for _, name := range cycle {
			failed[name] = true
		}
	}

	order, err := registry.BuildOrder(acyclic)
	if err != nil {
		errs = append(errs, err)
		op.EndWithError(ctx, err)
		return nil, errors.CombineErrors(errs...)
	}

	templates := make([]*Template, 0, len(order))
	for _, name := range order {
		ps := parsed[name]
		if dependsOnFailed(ps.deps, failed) {
			failed[name] = true
			continue
		}
		t, err := e.compileParsed(ps)
		if err == nil {
			err = reg.Register(&registry.ComponentInfo{
				Name:         t.Name,
				FilePath:     t.Path,
				Hash:         t.Hash,
				Schema:       t.Schema(),
				Dependencies: t.Dependencies(),
				Component:    t,
			})
		}
		if err != nil {
			failed[name] = true
			errs = append(errs, errors.EnhanceError(err, name, ps.path))
			continue
		}
		templates = append(templates, t)
	}

	op.End(ctx, "templates", len(templates), "errors", len(errs))
	return templates, errors.CombineErrors(errs...)
}

func dependsOnFailed(deps []string, failed map[string]bool) bool {
	for _, d := range deps {
		if failed[d] {
			return true
		}
	}
	return false
}
