// Package codegen turns .rsx templates into Go source.
//
// A generated file declares one package-level component per template,
// built with the node, attr and component packages, so a template
// compiled ahead of time renders exactly like one run by the engine.
// Embedded expressions in generated templates are Go expressions: they
// are checked with go/parser and copied into the output, and each
// declared prop is a local variable of its declared type (any when none
// is given). Component tags refer to Go identifiers in scope of the
// generated package, usually other generated templates.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/conneroisu/gorsx/internal/engine"
	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/markup"
	"github.com/conneroisu/gorsx/pkg/component"
)

// DefaultRuntime is the import path prefix of the runtime packages.
const DefaultRuntime = "github.com/conneroisu/gorsx/pkg"

// Options controls generation.
type Options struct {
	// Package is the package clause of the generated file.
	Package string
	// Runtime overrides DefaultRuntime.
	Runtime string
}

// Result is one generated file.
type Result struct {
	Name         string
	FileName     string
	Source       []byte
	Dependencies []string
}

// locals are identifiers the generated function body declares or uses,
// so props cannot take them.
var locals = map[string]bool{
	"props": true, "children": true, "err": true, "bind": true, "out": true,
	"node": true, "attr": true, "component": true,
}

var fileTemplate = template.Must(template.New("file").Parse(`// Code generated by gorsx from {{.Source}}. DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	"{{.}}"
{{- end}}
)

// {{.Name}} {{if .Description}}{{.Description}}{{else}}is generated from {{.Source}}.{{end}}
var {{.Name}} = component.New({{printf "%q" .Name}}, component.NewSchema(
{{- range .Props}}
	{{.}},
{{- end}}
), func(props component.Props, children []node.Node) (node.Node, error) {
{{- range .Locals}}
	{{.}}
{{- end}}
{{- if .Binds}}
	var err error
	bind := func(name string, c component.Component, args []component.Arg, kids ...any) node.Node {
		n, bindErr := component.Bind(name, c, args, node.Flatten(kids...))
		if bindErr != nil && err == nil {
			err = bindErr
		}
		return n
	}
	out := node.Group({{.Body}})
	if err != nil {
		return nil, err
	}
	return out, nil
{{- else}}
	return node.Group({{.Body}}), nil
{{- end}}
})
`))

type fileData struct {
	Source      string
	Package     string
	Imports     []string
	Name        string
	Description string
	Props       []string
	Locals      []string
	Binds       bool
	Body        string
}

// Generate produces a gofmt'd Go file for the template at path.
func Generate(path string, src []byte, opts Options) (*Result, error) {
	if opts.Package == "" {
		opts.Package = "views"
	}
	if opts.Runtime == "" {
		opts.Runtime = DefaultRuntime
	}
	if !token.IsIdentifier(opts.Package) {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid package name %q", opts.Package))
	}

	header, body := markup.SplitFrontMatter(src)
	fm, err := engine.ParseFrontMatter(path, header)
	if err != nil {
		return nil, err
	}
	root, err := markup.Parse(path, body)
	if err != nil {
		return nil, err
	}
	name := fm.Name
	if name == "" {
		name = component.NameFromPath(path)
	}
	if !token.IsIdentifier(name) {
		return nil, errors.NewValidationError(errors.ErrCodeReservedName,
			fmt.Sprintf("component name %q is not a Go identifier", name)).WithLocation(path, 1, 0)
	}

	g := &generator{path: path, component: name, used: map[string]bool{"component": true, "node": true}}
	data := fileData{
		Source:      filepath.ToSlash(path),
		Package:     opts.Package,
		Name:        name,
		Description: strings.Join(strings.Fields(fm.Description), " "),
	}
	for _, p := range fm.Props.Props {
		local, err := g.local(p)
		if err != nil {
			return nil, err
		}
		data.Props = append(data.Props, propLiteral(p))
		data.Locals = append(data.Locals, local...)
	}

	var children []string
	for _, c := range rootChildren(root) {
		code, err := g.child(c)
		if err != nil {
			return nil, err
		}
		children = append(children, code)
	}
	data.Body = strings.Join(children, ", ")
	data.Binds = g.binds

	for pkg := range g.used {
		data.Imports = append(data.Imports, opts.Runtime+"/"+pkg)
	}
	sort.Strings(data.Imports)

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, errors.WrapInternal(err, errors.ErrCodeInternalError, "executing file template")
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.WrapInternal(err, errors.ErrCodeInternalError,
			"formatting generated code for "+path)
	}

	return &Result{
		Name:         name,
		FileName:     FileName(path),
		Source:       formatted,
		Dependencies: g.deps(),
	}, nil
}

// FileName returns the name of the Go file generated for path:
// user_card.rsx becomes user_card_rsx.go.
func FileName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(strings.Map(func(r rune) rune {
		if r == '-' || r == '.' || r == ' ' {
			return '_'
		}
		return r
	}, base)) + "_rsx.go"
}

func rootChildren(root markup.Root) []markup.Child {
	switch r := root.(type) {
	case *markup.FragmentSpec:
		return r.Children
	case *markup.ElementSpec:
		return []markup.Child{r}
	}
	return nil
}

type generator struct {
	path      string
	component string
	used      map[string]bool
	binds     bool
	called    map[string]bool
}

func (g *generator) fail(err *errors.MarkupError, pos markup.Position) error {
	if err.Line == 0 {
		err = err.WithLocation(pos.Filename, pos.Line, pos.Column)
	}
	return err.WithComponent(g.component)
}

func (g *generator) deps() []string {
	out := make([]string, 0, len(g.called))
	for name := range g.called {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (g *generator) local(p component.Prop) ([]string, error) {
	if !token.IsIdentifier(p.Name) || locals[p.Name] {
		return nil, errors.NewValidationError(errors.ErrCodeReservedName,
			fmt.Sprintf("prop %q cannot be used as a Go variable", p.Name)).
			WithComponent(g.component).WithLocation(g.path, 1, 0)
	}
	if p.Type == "" {
		return []string{
			fmt.Sprintf("%s := props[%q]", p.Name, p.Name),
			"_ = " + p.Name,
		}, nil
	}
	if _, err := parser.ParseExpr(p.Type); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("prop %q has invalid type %q", p.Name, p.Type)).
			WithComponent(g.component).WithLocation(g.path, 1, 0)
	}
	return []string{
		fmt.Sprintf("%s, _ := props[%q].(%s)", p.Name, p.Name, p.Type),
		"_ = " + p.Name,
	}, nil
}

// expr checks that src is a Go expression.
func (g *generator) expr(src string, pos markup.Position) (string, error) {
	if _, err := parser.ParseExpr(src); err != nil {
		return "", g.fail(errors.NewEvaluationError(
			errors.ErrCodeInvalidExpression,
			fmt.Sprintf("invalid Go expression {%s}", src),
			err,
		), pos)
	}
	return "(" + src + ")", nil
}

func (g *generator) children(children []markup.Child) (string, error) {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		code, err := g.child(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, code)
	}
	return strings.Join(parts, ", "), nil
}

func (g *generator) child(c markup.Child) (string, error) {
	switch v := c.(type) {
	case *markup.TextLiteral:
		return strconv.Quote(v.Value), nil
	case *markup.CommentSpec:
		return fmt.Sprintf("node.Comment{Value: %q}", v.Value), nil
	case *markup.Embedded:
		e, err := g.expr(v.Expr, v.Pos)
		if err != nil {
			return "", err
		}
		return "node.Embed" + e, nil
	case *markup.FragmentSpec:
		body, err := g.children(v.Children)
		if err != nil {
			return "", err
		}
		return "node.Frag(" + body + ")", nil
	case *markup.ElementSpec:
		return g.element(v)
	}
	return "", errors.NewInternalError(errors.ErrCodeInternalError, fmt.Sprintf("unexpected markup node %T", c), nil)
}

func (g *generator) element(el *markup.ElementSpec) (string, error) {
	switch {
	case el.Tag == component.ShowTag:
		return g.show(el)
	case el.Tag == component.ForTag:
		return g.forLoop(el)
	case el.Tag == component.ElseTag:
		return "", g.fail(errors.ErrMalformedTag(el.Tag, "<Else> must be a direct child of <Show>"), el.Pos)
	case component.IsComponentTag(el.Tag):
		return g.call(el)
	}

	body, err := g.children(el.Children)
	if err != nil {
		return "", err
	}
	attrs := "nil"
	if len(el.Attrs) > 0 {
		specs := make([]string, 0, len(el.Attrs))
		for _, a := range el.Attrs {
			s, err := g.attrSpec(a)
			if err != nil {
				return "", err
			}
			specs = append(specs, s)
		}
		g.used["attr"] = true
		attrs = "attr.Resolve(" + strings.Join(specs, ", ") + ")"
	}
	if body == "" {
		return fmt.Sprintf("node.El(%q, %s)", el.Tag, attrs), nil
	}
	return fmt.Sprintf("node.El(%q, %s, %s)", el.Tag, attrs, body), nil
}

// parts returns Go code for each literal and embedded part of a.
func (g *generator) parts(a *markup.AttrSpec) ([]string, error) {
	parts := make([]string, 0, len(a.Parts))
	for _, p := range a.Parts {
		if !p.IsExpr {
			parts = append(parts, strconv.Quote(p.Literal))
			continue
		}
		e, err := g.expr(p.Expr, a.Pos)
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
	}
	return parts, nil
}

// value returns Go code for the value of an attribute.
func (g *generator) value(a *markup.AttrSpec) (string, error) {
	if a.Kind == markup.AttrBool {
		return "true", nil
	}
	parts, err := g.parts(a)
	if err != nil {
		return "", err
	}
	switch len(parts) {
	case 0:
		return `""`, nil
	case 1:
		return parts[0], nil
	}
	g.used["attr"] = true
	return "attr.Concat(" + strings.Join(parts, ", ") + ")", nil
}

func (g *generator) cond(a *markup.AttrSpec) (string, error) {
	c, err := g.expr(a.Cond, a.Pos)
	if err != nil {
		return "", err
	}
	g.used["attr"] = true
	return "attr.Truthy" + c, nil
}

func (g *generator) attrSpec(a *markup.AttrSpec) (string, error) {
	switch a.Kind {
	case markup.AttrLiteral:
		return fmt.Sprintf("attr.Literal{Name: %q, Value: %q}", a.Name, a.Value()), nil
	case markup.AttrInterpolated:
		parts, err := g.parts(a)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("attr.Interpolated{Name: %q, Parts: []any{%s}}", a.Name, strings.Join(parts, ", ")), nil
	}
	v, err := g.value(a)
	if err != nil {
		return "", err
	}
	switch a.Kind {
	case markup.AttrConditional:
		c, err := g.cond(a)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("attr.Conditional{Name: %q, When: %s, Value: %s}", a.Name, c, v), nil
	}
	return fmt.Sprintf("attr.Dynamic{Name: %q, Value: %s}", a.Name, v), nil
}

func (g *generator) call(el *markup.ElementSpec) (string, error) {
	if _, err := parser.ParseExpr(el.Tag); err != nil {
		return "", g.fail(errors.ErrMalformedTag(el.Tag, "component tag is not a Go identifier"), el.Pos)
	}
	names := make([]string, len(el.Attrs))
	args := make([]string, 0, len(el.Attrs))
	for i, a := range el.Attrs {
		names[i] = a.Name
		v, err := g.value(a)
		if err != nil {
			return "", err
		}
		if a.Kind == markup.AttrConditional {
			c, err := g.cond(a)
			if err != nil {
				return "", err
			}
			args = append(args, fmt.Sprintf("component.ArgIf(%s, %q, %s)", c, a.Name, v))
			continue
		}
		args = append(args, fmt.Sprintf("{Name: %q, Value: %s}", a.Name, v))
	}
	for _, n := range names {
		if n == component.ChildrenSlot {
			return "", g.fail(errors.NewBindingError(errors.ErrCodeReservedName,
				"children cannot be passed as an attribute").WithContext("prop", n), el.Pos)
		}
	}

	body, err := g.children(el.Children)
	if err != nil {
		return "", err
	}
	g.binds = true
	if g.called == nil {
		g.called = make(map[string]bool)
	}
	g.called[el.Tag] = true

	code := fmt.Sprintf("bind(%q, %s, []component.Arg{%s}", el.Tag, el.Tag, strings.Join(args, ", "))
	if body != "" {
		code += ", " + body
	}
	return code + ")", nil
}

func (g *generator) show(el *markup.ElementSpec) (string, error) {
	var when string
	for _, a := range el.Attrs {
		if a.Name != "when" || a.Kind != markup.AttrExpr {
			return "", g.fail(errors.ErrMalformedAttr(el.Tag, a.Name, "<Show> takes a single when={condition}"), a.Pos)
		}
		e, err := g.expr(a.Expr(), a.Pos)
		if err != nil {
			return "", err
		}
		when = e
	}
	if when == "" {
		return "", g.fail(errors.ErrMalformedTag(el.Tag, "missing when={condition}"), el.Pos)
	}

	var then []markup.Child
	var otherwise *markup.ElementSpec
	for _, c := range el.Children {
		if e, ok := c.(*markup.ElementSpec); ok && e.Tag == component.ElseTag {
			if otherwise != nil {
				return "", g.fail(errors.ErrMalformedTag(el.Tag, "more than one <Else>"), e.Pos)
			}
			if len(e.Attrs) > 0 {
				return "", g.fail(errors.ErrMalformedAttr(e.Tag, e.Attrs[0].Name, "<Else> takes no attributes"), e.Attrs[0].Pos)
			}
			otherwise = e
			continue
		}
		if otherwise != nil {
			if t, ok := c.(*markup.TextLiteral); ok && strings.TrimSpace(t.Value) == "" {
				continue
			}
			if _, ok := c.(*markup.CommentSpec); ok {
				continue
			}
			return "", g.fail(errors.ErrMalformedTag(el.Tag, "<Else> must be the last child of <Show>"), c.Position())
		}
		then = append(then, c)
	}

	thenCode, err := g.children(then)
	if err != nil {
		return "", err
	}
	elseCode := "nil"
	if otherwise != nil {
		body, err := g.children(otherwise.Children)
		if err != nil {
			return "", err
		}
		elseCode = "func() any { return []any{" + body + "} }"
	}
	g.used["attr"] = true
	return fmt.Sprintf("node.Lazy(attr.Truthy%s, func() any { return []any{%s} }, %s)", when, thenCode, elseCode), nil
}

func (g *generator) forLoop(el *markup.ElementSpec) (string, error) {
	var each, typ string
	as, index := "item", "_"
	for _, a := range el.Attrs {
		switch {
		case a.Name == "type" && a.Kind == markup.AttrLiteral:
			if _, err := parser.ParseExpr(a.Value()); err != nil || a.Value() == "" {
				return "", g.fail(errors.ErrMalformedAttr(el.Tag, a.Name, "must be a Go type"), a.Pos)
			}
			typ = a.Value()
		case a.Name == "each" && a.Kind == markup.AttrExpr:
			e, err := g.expr(a.Expr(), a.Pos)
			if err != nil {
				return "", err
			}
			each = e
		case (a.Name == "as" || a.Name == "index") && a.Kind == markup.AttrLiteral:
			v := a.Value()
			if !token.IsIdentifier(v) || locals[v] {
				return "", g.fail(errors.ErrMalformedAttr(el.Tag, a.Name, "must be an identifier"), a.Pos)
			}
			if a.Name == "as" {
				as = v
			} else {
				index = v
			}
		default:
			return "", g.fail(errors.ErrMalformedAttr(el.Tag, a.Name, `<For> takes each={items}, as="name", index="name" and type="T"`), a.Pos)
		}
	}
	if each == "" {
		return "", g.fail(errors.ErrMalformedTag(el.Tag, "missing each={items}"), el.Pos)
	}
	if as == index {
		return "", g.fail(errors.ErrMalformedAttr(el.Tag, "index", "must differ from as"), el.Pos)
	}

	body, err := g.children(el.Children)
	if err != nil {
		return "", err
	}
	if typ != "" {
		return fmt.Sprintf("node.Map(%s, func(%s %s, %s int) any { return []any{%s} })", each, as, typ, index, body), nil
	}
	return fmt.Sprintf("node.Range(%s, func(%s any, %s int) any { return []any{%s} })", each, as, index, body), nil
}

// propLiteral renders p as a component.Prop literal.
func propLiteral(p component.Prop) string {
	fields := []string{"Name: " + strconv.Quote(p.Name)}
	if p.Required {
		fields = append(fields, "Required: true")
	}
	if p.HasDefault {
		fields = append(fields, "Default: "+goLiteral(p.Default), "HasDefault: true")
	}
	if p.Description != "" {
		fields = append(fields, "Description: "+strconv.Quote(p.Description))
	}
	if p.Type != "" {
		fields = append(fields, "Type: "+strconv.Quote(p.Type))
	}
	return "component.Prop{" + strings.Join(fields, ", ") + "}"
}

// goLiteral renders a YAML-decoded value as a Go expression.
func goLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []any:
		items := make([]string, len(t))
		for i, item := range t {
			items[i] = goLiteral(item)
		}
		return "[]any{" + strings.Join(items, ", ") + "}"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = strconv.Quote(k) + ": " + goLiteral(t[k])
		}
		return "map[string]any{" + strings.Join(items, ", ") + "}"
	}
	return strconv.Quote(fmt.Sprint(v))
}
