package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/markup"
	"github.com/conneroisu/gorsx/pkg/component"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// compiler turns a Markup AST into programs.
type compiler struct {
	engine   *Engine
	template string
}

func (c *compiler) fail(err *errors.MarkupError, pos markup.Position) error {
	if err.Line == 0 {
		err = err.WithLocation(pos.Filename, pos.Line, pos.Column)
	}
	if err.Component == "" {
		err = err.WithComponent(c.template)
	}
	return err
}

func (c *compiler) expr(src string, pos markup.Position) (*compiledExpr, error) {
	prog, err := expr.Compile(src, c.engine.options...)
	if err != nil {
		return nil, c.fail(errors.NewEvaluationError(
			errors.ErrCodeInvalidExpression,
			fmt.Sprintf("invalid expression {%s}", src),
			err,
		), pos)
	}
	return &compiledExpr{src: src, prog: prog, pos: pos}, nil
}

func (c *compiler) children(children []markup.Child) ([]program, error) {
	progs := make([]program, 0, len(children))
	for _, child := range children {
		p, err := c.child(child)
		if err != nil {
			return nil, err
		}
		progs = append(progs, p)
	}
	return progs, nil
}

func (c *compiler) child(child markup.Child) (program, error) {
	switch v := child.(type) {
	case *markup.TextLiteral:
		return textProgram(v.Value), nil
	case *markup.CommentSpec:
		return commentProgram(v.Value), nil
	case *markup.Embedded:
		ce, err := c.expr(v.Expr, v.Pos)
		if err != nil {
			return nil, err
		}
		return &embeddedProgram{expr: ce}, nil
	case *markup.FragmentSpec:
		body, err := c.children(v.Children)
		if err != nil {
			return nil, err
		}
		return fragmentProgram(body), nil
	case *markup.ElementSpec:
		return c.element(v)
	}
	return nil, errors.NewInternalError(errors.ErrCodeInternalError, fmt.Sprintf("unexpected markup node %T", child), nil)
}

func (c *compiler) element(el *markup.ElementSpec) (program, error) {
	switch {
	case el.Tag == component.ShowTag:
		return c.show(el)
	case el.Tag == component.ForTag:
		return c.forLoop(el)
	case el.Tag == component.ElseTag:
		return nil, c.fail(errors.ErrMalformedTag(el.Tag, "<Else> must be a direct child of <Show>"), el.Pos)
	case component.IsComponentTag(el.Tag):
		return c.component(el)
	}

	attrs, err := c.attrs(el.Attrs)
	if err != nil {
		return nil, err
	}
	body, err := c.children(el.Children)
	if err != nil {
		return nil, err
	}
	return &elementProgram{tag: el.Tag, attrs: attrs, children: body}, nil
}

func (c *compiler) component(el *markup.ElementSpec) (program, error) {
	comp, ok := c.engine.resolver.Lookup(el.Tag)
	if !ok {
		return nil, c.fail(errors.ErrUnknownComponent(el.Tag), el.Pos)
	}

	names := make([]string, len(el.Attrs))
	for i, a := range el.Attrs {
		names[i] = a.Name
	}
	if err := component.Check(el.Tag, comp.Schema(), names); err != nil {
		if me, ok := errors.AsMarkupError(err); ok {
			return nil, c.fail(me, el.Pos)
		}
		return nil, err
	}

	attrs, err := c.attrs(el.Attrs)
	if err != nil {
		return nil, err
	}
	body, err := c.children(el.Children)
	if err != nil {
		return nil, err
	}
	return &componentProgram{name: el.Tag, comp: comp, attrs: attrs, children: body, pos: el.Pos}, nil
}

func (c *compiler) attrs(specs []*markup.AttrSpec) ([]*attrProgram, error) {
	out := make([]*attrProgram, 0, len(specs))
	for _, a := range specs {
		ap := &attrProgram{name: a.Name, kind: a.Kind}
		for _, part := range a.Parts {
			if !part.IsExpr {
				ap.parts = append(ap.parts, partProgram{literal: part.Literal})
				continue
			}
			ce, err := c.expr(part.Expr, a.Pos)
			if err != nil {
				return nil, err
			}
			ap.parts = append(ap.parts, partProgram{expr: ce})
		}
		if a.Kind == markup.AttrConditional {
			ce, err := c.expr(a.Cond, a.Pos)
			if err != nil {
				return nil, err
			}
			ap.cond = ce
		}
		out = append(out, ap)
	}
	return out, nil
}

func (c *compiler) show(el *markup.ElementSpec) (program, error) {
	var when *compiledExpr
	for _, a := range el.Attrs {
		if a.Name != "when" || a.Kind != markup.AttrExpr {
			return nil, c.fail(errors.ErrMalformedAttr(el.Tag, a.Name, "<Show> takes a single when={condition}"), a.Pos)
		}
		ce, err := c.expr(a.Expr(), a.Pos)
		if err != nil {
			return nil, err
		}
		when = ce
	}
	if when == nil {
		return nil, c.fail(errors.ErrMalformedTag(el.Tag, "missing when={condition}"), el.Pos)
	}

	var thenChildren []markup.Child
	var elseEl *markup.ElementSpec
	for _, child := range el.Children {
		if e, ok := child.(*markup.ElementSpec); ok && e.Tag == component.ElseTag {
			if elseEl != nil {
				return nil, c.fail(errors.ErrMalformedTag(el.Tag, "more than one <Else>"), e.Pos)
			}
			if len(e.Attrs) > 0 {
				return nil, c.fail(errors.ErrMalformedAttr(e.Tag, e.Attrs[0].Name, "<Else> takes no attributes"), e.Attrs[0].Pos)
			}
			elseEl = e
			continue
		}
		if elseEl != nil {
			if !blank(child) {
				return nil, c.fail(errors.ErrMalformedTag(el.Tag, "<Else> must be the last child of <Show>"), child.Position())
			}
			continue
		}
		thenChildren = append(thenChildren, child)
	}

	then, err := c.children(thenChildren)
	if err != nil {
		return nil, err
	}
	sp := &showProgram{when: when, then: then}
	if elseEl != nil {
		if sp.otherwise, err = c.children(elseEl.Children); err != nil {
			return nil, err
		}
	}
	return sp, nil
}

func (c *compiler) forLoop(el *markup.ElementSpec) (program, error) {
	fp := &forProgram{as: "item"}
	for _, a := range el.Attrs {
		switch {
		case a.Name == "each" && a.Kind == markup.AttrExpr:
			ce, err := c.expr(a.Expr(), a.Pos)
			if err != nil {
				return nil, err
			}
			fp.each = ce
		case (a.Name == "as" || a.Name == "index") && a.Kind == markup.AttrLiteral:
			if !identifier.MatchString(a.Value()) {
				return nil, c.fail(errors.ErrMalformedAttr(el.Tag, a.Name, "must be an identifier"), a.Pos)
			}
			if a.Name == "as" {
				fp.as = a.Value()
			} else {
				fp.index = a.Value()
			}
		case a.Name == "type" && a.Kind == markup.AttrLiteral:
			// The item type only matters to generated Go code.
		default:
			return nil, c.fail(errors.ErrMalformedAttr(el.Tag, a.Name, `<For> takes each={items}, as="name", index="name" and type="T"`), a.Pos)
		}
	}
	if fp.each == nil {
		return nil, c.fail(errors.ErrMalformedTag(el.Tag, "missing each={items}"), el.Pos)
	}
	if fp.as == fp.index {
		return nil, c.fail(errors.ErrMalformedAttr(el.Tag, "index", "must differ from as"), el.Pos)
	}

	body, err := c.children(el.Children)
	if err != nil {
		return nil, err
	}
	fp.body = body
	return fp, nil
}

func blank(child markup.Child) bool {
	switch v := child.(type) {
	case *markup.TextLiteral:
		return strings.TrimSpace(v.Value) == ""
	case *markup.CommentSpec:
		return true
	}
	return false
}

// compiledExpr is an expression compiled once and run per execution.
type compiledExpr struct {
	src  string
	prog *vm.Program
	pos  markup.Position
}
