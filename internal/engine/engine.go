// Package engine compiles .rsx templates into components.
//
// A template is markup with optional YAML front matter that names it and
// declares its props. Every embedded expression is compiled once with
// expr-lang when the template is compiled; executing a template only
// runs the compiled programs against the bound props. Component tags are
// resolved and their attribute names checked at compile time, so an
// unknown component or attribute never reaches execution.
//
// Two built-in tags cover control flow:
//
//	<Show when={cond}>shown<Else>otherwise</Else></Show>
//	<For each={items} as="item" index="i">{i}: {item}</For>
package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/conneroisu/gorsx/internal/logging"
	"github.com/conneroisu/gorsx/pkg/attr"
	"github.com/conneroisu/gorsx/pkg/component"
	"github.com/conneroisu/gorsx/pkg/node"
)

// Resolver finds the component bound to a tag name.
type Resolver interface {
	Lookup(name string) (component.Component, bool)
}

// Engine compiles templates against a set of components.
type Engine struct {
	resolver Resolver
	logger   logging.Logger
	options  []expr.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.WithComponent("engine")
		}
	}
}

// WithFunction makes fn callable from template expressions as name.
func WithFunction(name string, fn func(params ...any) (any, error)) Option {
	return func(e *Engine) {
		e.options = append(e.options, expr.Function(name, fn))
	}
}

// New creates an engine. A nil resolver knows no components.
func New(resolver Resolver, opts ...Option) *Engine {
	if resolver == nil {
		resolver = noComponents{}
	}
	e := &Engine{
		resolver: resolver,
		logger:   logging.NewNopLogger(),
		options: []expr.Option{
			expr.AllowUndefinedVariables(),
			expr.Function("raw", rawFunc),
			expr.Function("classes", classesFunc),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile parses, validates and compiles one template.
func (e *Engine) Compile(path string, src []byte) (*Template, error) {
	ps, err := parseSource(path, src)
	if err != nil {
		return nil, err
	}
	return e.compileParsed(ps)
}

// CompileString compiles in-memory markup named name.
func (e *Engine) CompileString(name, src string) (*Template, error) {
	return e.Compile(name, []byte(src))
}

func (e *Engine) compileParsed(ps *parsedSource) (*Template, error) {
	c := &compiler{engine: e, template: ps.name}
	body, err := c.children(rootChildren(ps.root))
	if err != nil {
		return nil, err
	}
	e.logger.Debug(context.Background(), "compiled template",
		"template", ps.name, "path", ps.path, "dependencies", ps.deps)
	return &Template{
		Name:        ps.name,
		Path:        ps.path,
		Hash:        ps.hash,
		Description: ps.front.Description,
		schema:      ps.front.Props,
		root:        ps.root,
		deps:        ps.deps,
		body:        body,
	}, nil
}

type noComponents struct{}

func (noComponents) Lookup(string) (component.Component, bool) { return nil, false }

// rawFunc marks a string as trusted HTML.
func rawFunc(params ...any) (any, error) {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(attr.Stringify(p))
	}
	return node.Raw{HTML: b.String()}, nil
}

// classesFunc joins class names. String arguments are kept when
// non-empty; map arguments contribute their truthy keys in sorted order.
func classesFunc(params ...any) (any, error) {
	var out []string
	for _, p := range params {
		switch v := p.(type) {
		case nil:
		case map[string]any:
			keys := make([]string, 0, len(v))
			for k, on := range v {
				if attr.Truthy(on) {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			out = append(out, keys...)
		case []any:
			nested, _ := classesFunc(v...)
			if s := nested.(string); s != "" {
				out = append(out, s)
			}
		default:
			if s := attr.Stringify(v); s != "" {
				out = append(out, s)
			}
		}
	}
	return strings.Join(out, " "), nil
}
