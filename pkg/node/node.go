// Package node provides the runtime tree produced by instantiating markup.
//
// A tree is built once per render from Element, Fragment, Text and Empty
// values (plus Comment and Raw), is never mutated afterwards, and is
// consumed by the render package. Fragment and Empty exist only to be
// flattened away: every constructor that accepts children runs them
// through Flatten, so a finished tree never contains either as a child.
package node

// Node is one of Element, Fragment, Text, Empty, Comment or Raw.
type Node interface {
	isNode()
}

// Element is an HTML element or custom element.
type Element struct {
	Tag      string
	Attrs    Attributes
	Children []Node
}

// Fragment groups children without a wrapper. It is spliced into its parent.
type Fragment struct {
	Children []Node
}

// Text is a leaf holding unescaped character data.
type Text struct {
	Value string
}

// Empty is the unit value for "no node".
type Empty struct{}

// Comment is an HTML comment.
type Comment struct {
	Value string
}

// Raw holds trusted, pre-rendered HTML that the serializer writes verbatim.
type Raw struct {
	HTML string
}

func (Element) isNode()  {}
func (Fragment) isNode() {}
func (Text) isNode()     {}
func (Empty) isNode()    {}
func (Comment) isNode()  {}
func (Raw) isNode()      {}

// Nothing is the shared Empty value.
var Nothing Node = Empty{}

// El builds an element; children are flattened.
func El(tag string, attrs Attributes, children ...any) Element {
	return Element{
		Tag:      tag,
		Attrs:    attrs,
		Children: Flatten(children...),
	}
}

// Frag builds a fragment; children are flattened.
func Frag(children ...any) Fragment {
	return Fragment{Children: Flatten(children...)}
}

// T builds a text node.
func T(value string) Text {
	return Text{Value: value}
}

// IsEmpty reports whether n renders to nothing at all.
func IsEmpty(n Node) bool {
	switch v := n.(type) {
	case nil, Empty, *Empty:
		return true
	case Fragment:
		for _, c := range v.Children {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	}
	return false
}

// Walk visits n and its descendants depth-first, left to right. Returning
// false from fn skips the children of the node just visited.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case Element:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	case Fragment:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	}
}
