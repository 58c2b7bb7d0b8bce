package node

import (
	"iter"
	"reflect"
)

// If selects then or otherwise by cond and flattens the chosen branch.
// A nil branch is Empty.
func If(cond bool, then, otherwise any) Node {
	if cond {
		return branch(then)
	}
	return branch(otherwise)
}

// When renders then only if cond holds.
func When(cond bool, then any) Node {
	if !cond {
		return Nothing
	}
	return branch(then)
}

// Lazy is like If but only evaluates the branch that is taken.
func Lazy(cond bool, then, otherwise func() any) Node {
	if cond {
		if then == nil {
			return Nothing
		}
		return branch(then())
	}
	if otherwise == nil {
		return Nothing
	}
	return branch(otherwise())
}

// Map renders each item through fn and flattens the results in order.
func Map[T any](items []T, fn func(item T, index int) any) Node {
	out := make([]Node, 0, len(items))
	for i, item := range items {
		out = flattenInto(out, fn(item, i))
	}
	return wrap(out)
}

// Each renders every value of seq through fn, in iteration order.
func Each[T any](seq iter.Seq[T], fn func(item T) any) Node {
	var out []Node
	for item := range seq {
		out = flattenInto(out, fn(item))
	}
	return wrap(out)
}

// Range is Map over an untyped slice or array; any other non-nil value is
// treated as a single item. Used by generated code and the template engine,
// where the iteration source is only known at run time.
func Range(items any, fn func(item any, index int) any) Node {
	if items == nil {
		return Nothing
	}
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return wrap(flattenInto(nil, fn(items, 0)))
	}
	out := make([]Node, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = flattenInto(out, fn(rv.Index(i).Interface(), i))
	}
	return wrap(out)
}

func branch(v any) Node {
	return wrap(flattenInto(nil, v))
}

func wrap(nodes []Node) Node {
	switch len(nodes) {
	case 0:
		return Nothing
	case 1:
		return nodes[0]
	}
	return Fragment{Children: nodes}
}

// Group flattens children into one node: Nothing when nothing is left,
// the node itself when exactly one remains, otherwise a Fragment.
func Group(children ...any) Node {
	return wrap(Flatten(children...))
}

// Embed prepares the value of an embedded expression for use as a child.
// Booleans render nothing, so {flag} can guard without printing "true".
func Embed(v any) any {
	if _, ok := v.(bool); ok {
		return nil
	}
	return v
}
