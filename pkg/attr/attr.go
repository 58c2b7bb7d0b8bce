// Package attr resolves attribute specifications into the final attribute
// mapping of an element.
//
// Literal values are copied verbatim, interpolated values are concatenated
// in written order, and conditional values are written only when their
// condition holds: a false condition omits the name entirely. When a name
// is written more than once the last write wins.
package attr

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/conneroisu/gorsx/pkg/node"
)

// Spec is one attribute specification.
type Spec interface {
	apply(attrs *node.Attributes)
	// AttrName returns the attribute name the spec writes.
	AttrName() string
}

// Literal sets Name to Value verbatim.
type Literal struct {
	Name  string
	Value string
}

// Interpolated sets Name to the concatenation of Parts. String parts are
// literal segments; every other part is an embedded value and goes
// through Stringify.
type Interpolated struct {
	Name  string
	Parts []any
}

// Conditional sets Name to Value when When is true and omits it otherwise.
type Conditional struct {
	Name  string
	When  bool
	Value any
}

// Dynamic sets Name from a single embedded value: false and nil omit the
// attribute, true writes the name as its own value, and anything else is
// stringified.
type Dynamic struct {
	Name  string
	Value any
}

func (l Literal) AttrName() string      { return l.Name }
func (i Interpolated) AttrName() string { return i.Name }
func (c Conditional) AttrName() string  { return c.Name }
func (d Dynamic) AttrName() string      { return d.Name }

func (l Literal) apply(attrs *node.Attributes) {
	attrs.Set(l.Name, l.Value)
}

func (i Interpolated) apply(attrs *node.Attributes) {
	attrs.Set(i.Name, Concat(i.Parts...))
}

func (c Conditional) apply(attrs *node.Attributes) {
	if c.When {
		attrs.Set(c.Name, Stringify(c.Value))
	}
}

func (d Dynamic) apply(attrs *node.Attributes) {
	switch v := d.Value.(type) {
	case nil:
		return
	case bool:
		if v {
			attrs.Set(d.Name, d.Name)
		}
		return
	}
	attrs.Set(d.Name, Stringify(d.Value))
}

// Resolve applies specs in order and returns the resulting attributes.
func Resolve(specs ...Spec) node.Attributes {
	attrs := make(node.Attributes, 0, len(specs))
	for _, s := range specs {
		if s == nil {
			continue
		}
		s.apply(&attrs)
	}
	return attrs
}

// Concat joins literal segments and stringified values.
func Concat(parts ...any) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(Stringify(p))
	}
	return b.String()
}

// Stringify renders a host value to a string: strings are used as-is,
// fmt.Stringer is honoured, scalars go through cast, and everything else
// falls back to fmt.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// Truthy reports whether v counts as true in a condition: false, nil,
// zero numbers, empty strings and empty collections are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	}
	return true
}
