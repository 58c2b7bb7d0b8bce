// Package markup parses and validates the gorsx authoring syntax.
//
// The parser recognises elements, self-closing elements, fragments,
// comments, text runs and brace-delimited embedded expressions, and
// produces a Markup AST. Expressions are opaque: the parser only finds
// their boundaries. All well-formedness problems are reported as
// structural errors carrying the offending tag or attribute name and a
// source position; no partial tree is returned on error.
package markup

import "fmt"

// Position is a location in a source file. Lines and columns start at 1.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Node is any Markup AST node.
type Node interface {
	Position() Position
}

// Root is the result of a parse: an *ElementSpec or a *FragmentSpec.
type Root interface {
	Node
	root()
}

// Child is a child of an element or fragment: *TextLiteral, *Embedded,
// *ElementSpec, *FragmentSpec or *CommentSpec.
type Child interface {
	Node
	child()
}

// ElementSpec is an element or component tag.
type ElementSpec struct {
	Tag         string
	Attrs       []*AttrSpec
	Children    []Child
	SelfClosing bool
	// ClosingTag is the name written in the closing tag, empty for
	// self-closing elements.
	ClosingTag string
	Pos        Position
}

// FragmentSpec is <>children</>, or the implicit wrapper around several
// top-level nodes.
type FragmentSpec struct {
	Children []Child
	Implicit bool
	Pos      Position
}

// TextLiteral is a run of literal text with entities decoded.
type TextLiteral struct {
	Value string
	Pos   Position
}

// Embedded is a {expression} child.
type Embedded struct {
	Expr string
	Pos  Position
}

// CommentSpec is an <!-- comment -->.
type CommentSpec struct {
	Value string
	Pos   Position
}

func (e *ElementSpec) Position() Position  { return e.Pos }
func (f *FragmentSpec) Position() Position { return f.Pos }
func (t *TextLiteral) Position() Position  { return t.Pos }
func (e *Embedded) Position() Position     { return e.Pos }
func (c *CommentSpec) Position() Position  { return c.Pos }

func (*ElementSpec) root()  {}
func (*FragmentSpec) root() {}

func (*ElementSpec) child()  {}
func (*FragmentSpec) child() {}
func (*TextLiteral) child()  {}
func (*Embedded) child()     {}
func (*CommentSpec) child()  {}

// AttrKind is the syntactic form of an attribute.
type AttrKind int

const (
	// AttrLiteral is name="text".
	AttrLiteral AttrKind = iota
	// AttrInterpolated is name="text{expr}text".
	AttrInterpolated
	// AttrConditional is name={condition => value}.
	AttrConditional
	// AttrExpr is name={expr}.
	AttrExpr
	// AttrBool is a bare name.
	AttrBool
)

func (k AttrKind) String() string {
	switch k {
	case AttrLiteral:
		return "literal"
	case AttrInterpolated:
		return "interpolated"
	case AttrConditional:
		return "conditional"
	case AttrExpr:
		return "expression"
	case AttrBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Part is a literal segment or an embedded expression inside an attribute value.
type Part struct {
	Literal string
	Expr    string
	IsExpr  bool
}

// AttrSpec is one attribute as written.
//
// Parts holds the value for every kind except AttrBool: a single literal
// part for AttrLiteral, one expression part for AttrExpr, and the
// value side of the arrow for AttrConditional. Cond is the condition
// expression of an AttrConditional.
type AttrSpec struct {
	Name  string
	Kind  AttrKind
	Parts []Part
	Cond  string
	Pos   Position
}

// Value returns the literal value of an AttrLiteral, or "" for other kinds.
func (a *AttrSpec) Value() string {
	if a.Kind != AttrLiteral || len(a.Parts) == 0 {
		return ""
	}
	return a.Parts[0].Literal
}

// Expr returns the expression of an AttrExpr, or "" for other kinds.
func (a *AttrSpec) Expr() string {
	if a.Kind != AttrExpr || len(a.Parts) == 0 {
		return ""
	}
	return a.Parts[0].Expr
}

// Walk visits n and its descendants depth-first, left to right. Returning
// false from fn skips the children of the node just visited.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *ElementSpec:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	case *FragmentSpec:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	}
}
