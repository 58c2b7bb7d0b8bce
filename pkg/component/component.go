// Package component defines the contract between a custom tag and the
// callable that renders it.
//
// A component declares a property schema. Binding checks the attributes
// supplied on a tag against that schema before anything is rendered:
// an attribute the schema does not declare, or a required property with
// neither a value nor a default, is a binding error and the component is
// never invoked. Children written between the open and close tags always
// arrive in the reserved children slot, already flattened.
package component

import (
	"context"
	"slices"

	"github.com/a-h/templ"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/pkg/node"
	"github.com/conneroisu/gorsx/pkg/render"
)

// ChildrenSlot is the reserved name under which children are exposed.
const ChildrenSlot = "children"

// Component is anything that can be bound to a custom tag.
type Component interface {
	Schema() Schema
	Render(props Props, children []node.Node) (node.Node, error)
}

// Func is the callable behind a Definition.
type Func func(props Props, children []node.Node) (node.Node, error)

// Definition is a named component built from a schema and a Func.
type Definition struct {
	name   string
	schema Schema
	fn     Func
}

// New returns a component named name.
func New(name string, schema Schema, fn Func) *Definition {
	return &Definition{name: name, schema: schema, fn: fn}
}

// Simple wraps a callable that cannot fail.
func Simple(name string, schema Schema, fn func(props Props, children []node.Node) node.Node) *Definition {
	return New(name, schema, func(props Props, children []node.Node) (node.Node, error) {
		return fn(props, children), nil
	})
}

// FromTempl wraps a templ component constructor. The templ output is
// inserted verbatim as a Raw node.
func FromTempl(name string, schema Schema, fn func(props Props, children []node.Node) templ.Component) *Definition {
	return New(name, schema, func(props Props, children []node.Node) (node.Node, error) {
		return render.FromTempl(context.Background(), fn(props, children))
	})
}

func (d *Definition) Name() string   { return d.name }
func (d *Definition) Schema() Schema { return d.schema }

func (d *Definition) Render(props Props, children []node.Node) (node.Node, error) {
	if d.fn == nil {
		return node.Nothing, nil
	}
	return d.fn(props, children)
}

// Arg is one attribute supplied on a component tag, in source order.
type Arg struct {
	Name  string
	Value any

	omit bool
}

// ArgIf returns an argument that is only supplied when cond holds, the
// binding form of a conditional attribute.
func ArgIf(cond bool, name string, value any) Arg {
	return Arg{Name: name, Value: value, omit: !cond}
}

// Check validates the attribute names supplied on a component tag against
// schema. It reports the first unknown attribute in source order, then the
// first missing required property in schema order.
func Check(name string, schema Schema, supplied []string) error {
	seen := make(map[string]bool, len(supplied))
	for _, attr := range supplied {
		if attr == ChildrenSlot {
			return errors.NewBindingError(
				errors.ErrCodeReservedName,
				"children cannot be passed as an attribute",
			).WithComponent(name).WithContext("prop", attr)
		}
		if _, ok := schema.Lookup(attr); !ok {
			return errors.ErrUnknownProp(name, attr)
		}
		seen[attr] = true
	}
	for _, p := range schema.Props {
		if p.Required && !p.HasDefault && !seen[p.Name] {
			return errors.ErrMissingProp(name, p.Name)
		}
	}
	return nil
}

// Bind validates args against the schema of c, fills in defaults and
// renders c. On a binding error c is not called. Duplicate args resolve
// to the last value written and args from a false ArgIf are ignored.
func Bind(name string, c Component, args []Arg, children []node.Node) (node.Node, error) {
	args = slices.DeleteFunc(slices.Clone(args), func(a Arg) bool { return a.omit })
	schema := c.Schema()
	supplied := make([]string, len(args))
	for i, a := range args {
		supplied[i] = a.Name
	}
	if err := Check(name, schema, supplied); err != nil {
		return nil, err
	}

	props := schema.Defaults()
	for _, a := range args {
		props[a.Name] = a.Value
	}

	out, err := c.Render(props, node.Flatten(children))
	if err != nil {
		return nil, errors.EnhanceError(err, name, "")
	}
	return node.Group(out), nil
}
