package engine

import (
	"fmt"
	"maps"
	"reflect"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/spf13/cast"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/markup"
	"github.com/conneroisu/gorsx/pkg/attr"
	"github.com/conneroisu/gorsx/pkg/component"
	"github.com/conneroisu/gorsx/pkg/node"
)

// execution is the state of one template run. env is never shared
// between runs.
type execution struct {
	env      map[string]any
	template string
}

func (x *execution) run(ce *compiledExpr) (any, error) {
	out, err := expr.Run(ce.prog, x.env)
	if err != nil {
		return nil, errors.WrapEvaluation(err, ce.src).
			WithLocation(ce.pos.Filename, ce.pos.Line, ce.pos.Column).
			WithComponent(x.template)
	}
	return out, nil
}

func (x *execution) with(vars map[string]any) *execution {
	env := maps.Clone(x.env)
	maps.Copy(env, vars)
	return &execution{env: env, template: x.template}
}

// program appends the nodes it produces to out.
type program interface {
	exec(x *execution, out []node.Node) ([]node.Node, error)
}

func execAll(x *execution, progs []program, out []node.Node) ([]node.Node, error) {
	var err error
	for _, p := range progs {
		if out, err = p.exec(x, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type textProgram string

func (t textProgram) exec(_ *execution, out []node.Node) ([]node.Node, error) {
	return append(out, node.Text{Value: string(t)}), nil
}

type commentProgram string

func (c commentProgram) exec(_ *execution, out []node.Node) ([]node.Node, error) {
	return append(out, node.Comment{Value: string(c)}), nil
}

type fragmentProgram []program

func (f fragmentProgram) exec(x *execution, out []node.Node) ([]node.Node, error) {
	return execAll(x, f, out)
}

// embeddedProgram splices the value of {expr}.
type embeddedProgram struct {
	expr *compiledExpr
}

func (e *embeddedProgram) exec(x *execution, out []node.Node) ([]node.Node, error) {
	v, err := x.run(e.expr)
	if err != nil {
		return nil, err
	}
	nodes, err := flatten(node.Embed(v))
	if err != nil {
		return nil, errors.WrapEvaluation(err, e.expr.src).
			WithLocation(e.expr.pos.Filename, e.expr.pos.Line, e.expr.pos.Column).
			WithComponent(x.template)
	}
	return append(out, nodes...), nil
}

// flatten is node.Flatten reporting values it cannot take, such as plain
// functions, as an error.
func flatten(v any) (nodes []node.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return node.Flatten(v), nil
}

type partProgram struct {
	literal string
	expr    *compiledExpr
}

type attrProgram struct {
	name  string
	kind  markup.AttrKind
	parts []partProgram
	cond  *compiledExpr
}

// value evaluates the attribute. present is false when a conditional
// attribute is switched off.
func (a *attrProgram) value(x *execution) (v any, present bool, err error) {
	switch a.kind {
	case markup.AttrBool:
		return true, true, nil
	case markup.AttrConditional:
		c, err := x.run(a.cond)
		if err != nil {
			return nil, false, err
		}
		if !attr.Truthy(c) {
			return nil, false, nil
		}
	}

	if len(a.parts) == 1 {
		if a.parts[0].expr == nil {
			return a.parts[0].literal, true, nil
		}
		v, err := x.run(a.parts[0].expr)
		return v, err == nil, err
	}
	values := make([]any, len(a.parts))
	for i, part := range a.parts {
		if part.expr == nil {
			values[i] = part.literal
			continue
		}
		if values[i], err = x.run(part.expr); err != nil {
			return nil, false, err
		}
	}
	return attr.Concat(values...), true, nil
}

// spec evaluates the attribute for an HTML element.
func (a *attrProgram) spec(x *execution) (attr.Spec, error) {
	v, present, err := a.value(x)
	if err != nil {
		return nil, err
	}
	switch a.kind {
	case markup.AttrLiteral:
		return attr.Literal{Name: a.name, Value: attr.Stringify(v)}, nil
	case markup.AttrInterpolated:
		return attr.Interpolated{Name: a.name, Parts: []any{v}}, nil
	case markup.AttrConditional:
		return attr.Conditional{Name: a.name, When: present, Value: v}, nil
	default:
		return attr.Dynamic{Name: a.name, Value: v}, nil
	}
}

type elementProgram struct {
	tag      string
	attrs    []*attrProgram
	children []program
}

func (e *elementProgram) exec(x *execution, out []node.Node) ([]node.Node, error) {
	specs := make([]attr.Spec, 0, len(e.attrs))
	for _, a := range e.attrs {
		s, err := a.spec(x)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	children, err := execAll(x, e.children, nil)
	if err != nil {
		return nil, err
	}
	return append(out, node.Element{Tag: e.tag, Attrs: attr.Resolve(specs...), Children: children}), nil
}

type componentProgram struct {
	name     string
	comp     component.Component
	attrs    []*attrProgram
	children []program
	pos      markup.Position
}

func (c *componentProgram) exec(x *execution, out []node.Node) ([]node.Node, error) {
	args := make([]component.Arg, 0, len(c.attrs))
	for _, a := range c.attrs {
		v, present, err := a.value(x)
		if err != nil {
			return nil, err
		}
		args = append(args, component.ArgIf(present, a.name, v))
	}
	children, err := execAll(x, c.children, nil)
	if err != nil {
		return nil, err
	}

	n, err := component.Bind(c.name, c.comp, args, children)
	if err != nil {
		if me, ok := errors.AsMarkupError(err); ok && me.Line == 0 {
			me.WithLocation(c.pos.Filename, c.pos.Line, c.pos.Column)
		}
		return nil, err
	}
	return append(out, node.Flatten(n)...), nil
}

type showProgram struct {
	when      *compiledExpr
	then      []program
	otherwise []program
}

func (s *showProgram) exec(x *execution, out []node.Node) ([]node.Node, error) {
	v, err := x.run(s.when)
	if err != nil {
		return nil, err
	}
	if attr.Truthy(v) {
		return execAll(x, s.then, out)
	}
	return execAll(x, s.otherwise, out)
}

type forProgram struct {
	each  *compiledExpr
	as    string
	index string
	body  []program
}

func (f *forProgram) exec(x *execution, out []node.Node) ([]node.Node, error) {
	v, err := x.run(f.each)
	if err != nil {
		return nil, err
	}
	inner := x.with(nil)
	err = iterate(v, func(key, item any) error {
		inner.env[f.as] = item
		if f.index != "" {
			inner.env[f.index] = key
		}
		out, err = execAll(inner, f.body, out)
		return err
	})
	if err != nil {
		if me, ok := errors.AsMarkupError(err); ok {
			return nil, me
		}
		return nil, errors.WrapEvaluation(err, f.each.src).
			WithLocation(f.each.pos.Filename, f.each.pos.Line, f.each.pos.Column).
			WithComponent(x.template)
	}
	return out, nil
}

// iterate calls fn for each element of v in order. Slices and arrays
// yield their indexes, maps yield keys in sorted order, and an integer n
// counts from 0 to n-1. nil yields nothing.
func iterate(v any, fn func(key, item any) error) error {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := fn(i, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return attr.Stringify(keys[i].Interface()) < attr.Stringify(keys[j].Interface())
		})
		for _, k := range keys {
			if err := fn(k.Interface(), rv.MapIndex(k).Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := cast.ToInt(v)
		for i := 0; i < n; i++ {
			if err := fn(i, i); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("cannot iterate over %T", v)
}
