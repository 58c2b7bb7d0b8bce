// Package renderer renders registered components on their own, for
// previews and the render command.
//
// Props can come from query strings or data files, so the renderer
// converts raw values to each prop's declared type and, when asked, fills
// required props nobody supplied with sample values chosen from the
// prop's name and type.
package renderer

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/logging"
	"github.com/conneroisu/gorsx/internal/registry"
	"github.com/conneroisu/gorsx/pkg/component"
	"github.com/conneroisu/gorsx/pkg/node"
	"github.com/conneroisu/gorsx/pkg/render"
)

// ComponentRenderer renders components from a registry.
type ComponentRenderer struct {
	registry *registry.ComponentRegistry
	logger   logging.Logger
}

// Options controls a single render.
type Options struct {
	// Mock fills required props without a value with sample data.
	Mock bool
	// Children are passed to the component as its children.
	Children []node.Node
}

// NewComponentRenderer creates a renderer over reg.
func NewComponentRenderer(reg *registry.ComponentRegistry, logger logging.Logger) *ComponentRenderer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ComponentRenderer{
		registry: reg,
		logger:   logger.WithComponent("renderer"),
	}
}

// Tree binds props to the named component and returns the rendered tree.
func (r *ComponentRenderer) Tree(ctx context.Context, name string, props map[string]any, opts Options) (node.Node, error) {
	info, ok := r.registry.Get(name)
	if !ok {
		return nil, errors.ErrUnknownComponent(name)
	}

	values, err := Coerce(info.Component.Schema(), props)
	if err != nil {
		return nil, errors.EnhanceError(err, name, info.FilePath)
	}
	if opts.Mock {
		for k, v := range MockProps(info.Component.Schema()) {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}

	args := make([]component.Arg, 0, len(values))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		args = append(args, component.Arg{Name: k, Value: values[k]})
	}

	op := logging.StartOperation(r.logger, "render")
	tree, err := component.Bind(name, info.Component, args, opts.Children)
	if err != nil {
		err = errors.EnhanceError(err, name, info.FilePath)
		op.EndWithError(ctx, err)
		return nil, err
	}
	op.End(ctx, "component", name)
	return tree, nil
}

// RenderComponent renders the named component to HTML.
func (r *ComponentRenderer) RenderComponent(ctx context.Context, name string, props map[string]any, opts Options) (string, error) {
	tree, err := r.Tree(ctx, name, props, opts)
	if err != nil {
		return "", err
	}
	return render.Render(tree), nil
}

// RenderTo writes the named component as HTML to w.
func (r *ComponentRenderer) RenderTo(ctx context.Context, w io.Writer, name string, props map[string]any, opts Options) error {
	tree, err := r.Tree(ctx, name, props, opts)
	if err != nil {
		return err
	}
	if err := render.Write(w, tree); err != nil {
		return errors.WrapIO(err, errors.ErrCodeInternalError, "writing "+name)
	}
	return nil
}

// Coerce converts raw prop values to the types their props declare.
// Props without a type, and values for undeclared names, are passed
// through unchanged so binding can report them.
func Coerce(schema component.Schema, raw map[string]any) (component.Props, error) {
	out := make(component.Props, len(raw))
	for k, v := range raw {
		p, ok := schema.Lookup(k)
		if !ok || p.Type == "" {
			out[k] = v
			continue
		}
		converted, err := convert(p.Type, v)
		if err != nil {
			return nil, errors.NewBindingError(errors.ErrCodeEvalFailed,
				fmt.Sprintf("prop %q: cannot use %v as %s", k, v, p.Type)).
				WithContext("prop", k).WithContext("type", p.Type)
		}
		out[k] = converted
	}
	return out, nil
}

func convert(typ string, v any) (any, error) {
	switch strings.ReplaceAll(typ, " ", "") {
	case "string":
		return cast.ToStringE(v)
	case "int":
		return cast.ToIntE(v)
	case "int32":
		return cast.ToInt32E(v)
	case "int64":
		return cast.ToInt64E(v)
	case "float32":
		return cast.ToFloat32E(v)
	case "float64":
		return cast.ToFloat64E(v)
	case "bool":
		return cast.ToBoolE(v)
	case "[]string":
		if s, ok := v.(string); ok {
			return splitList(s), nil
		}
		return cast.ToStringSliceE(v)
	case "[]int":
		if s, ok := v.(string); ok {
			return cast.ToIntSliceE(splitList(s))
		}
		return cast.ToIntSliceE(v)
	case "[]any", "[]interface{}":
		if s, ok := v.(string); ok {
			return cast.ToSliceE(splitList(s))
		}
		return cast.ToSliceE(v)
	case "map[string]any", "map[string]interface{}":
		return cast.ToStringMapE(v)
	case "map[string]string":
		return cast.ToStringMapStringE(v)
	}
	return v, nil
}

// splitList splits a comma-separated query value.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// MockProps returns sample values for every required prop without a
// default.
func MockProps(schema component.Schema) component.Props {
	props := make(component.Props)
	for _, p := range schema.Props {
		if p.Required && !p.HasDefault {
			props[p.Name] = mockValue(p)
		}
	}
	return props
}

func mockValue(p component.Prop) any {
	switch strings.ReplaceAll(p.Type, " ", "") {
	case "int":
		return 42
	case "int32":
		return int32(42)
	case "int64":
		return int64(42)
	case "float32":
		return float32(4.2)
	case "float64":
		return 4.2
	case "bool":
		return true
	case "[]string", "[]any", "[]interface{}":
		items := []string{"Item 1", "Item 2", "Item 3"}
		if p.Type == "[]string" {
			return items
		}
		return []any{items[0], items[1], items[2]}
	case "map[string]any", "map[string]interface{}":
		return map[string]any{"key": "value"}
	}
	return mockString(p.Name)
}

// mockString picks a realistic sample string for a prop name.
func mockString(name string) string {
	switch strings.ToLower(name) {
	case "title", "heading":
		return "Sample Title"
	case "name", "username":
		return "John Doe"
	case "email":
		return "john@example.com"
	case "message", "content", "text", "body":
		return "This is sample content for the component preview."
	case "url", "link", "href", "src":
		return "https://example.com"
	case "variant", "type", "kind":
		return "primary"
	case "color":
		return "blue"
	case "size":
		return "medium"
	case "id":
		return "sample-id"
	}
	return "Sample " + cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}
