package node

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"
)

// Flatten normalizes child-producing values into one ordered list of nodes.
//
// Admissible values are a Node, nil, a string, any slice or array of
// admissible values, a range-over-func sequence (iter.Seq or iter.Seq2 of
// any element type, whose values are flattened), and scalars (numbers,
// bools, fmt.Stringer) which become Text. Fragments are spliced in place
// and Empty and nil are dropped; no other leaf is ever dropped and the
// left-to-right, depth-first order of the input is preserved. Any other
// func value is a programming error and panics.
func Flatten(values ...any) []Node {
	out := make([]Node, 0, len(values))
	for _, v := range values {
		out = flattenInto(out, v)
	}
	return out
}

func flattenInto(out []Node, v any) []Node {
	switch t := v.(type) {
	case nil:
		return out
	case Empty, *Empty:
		return out
	case Fragment:
		for _, c := range t.Children {
			out = flattenInto(out, c)
		}
		return out
	case Node:
		if rv := reflect.ValueOf(t); rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return out
			}
			return flattenInto(out, rv.Elem().Interface())
		}
		return append(out, t)
	case string:
		return append(out, Text{Value: t})
	case []byte:
		return append(out, Text{Value: string(t)})
	case []Node:
		for _, c := range t {
			out = flattenInto(out, c)
		}
		return out
	case []any:
		for _, c := range t {
			out = flattenInto(out, c)
		}
		return out
	case []string:
		for _, s := range t {
			out = append(out, Text{Value: s})
		}
		return out
	case fmt.Stringer:
		return append(out, Text{Value: t.String()})
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			out = flattenInto(out, rv.Index(i).Interface())
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return out
		}
		return flattenInto(out, rv.Elem().Interface())
	case reflect.Func:
		return flattenSeq(out, rv)
	}

	if s, err := cast.ToStringE(v); err == nil {
		return append(out, Text{Value: s})
	}
	return append(out, Text{Value: fmt.Sprint(v)})
}

// flattenSeq ranges over seq, a func(yield func(V) bool) or
// func(yield func(K, V) bool), flattening each V in order.
func flattenSeq(out []Node, seq reflect.Value) []Node {
	if seq.IsNil() {
		return out
	}
	t := seq.Type()
	if t.NumIn() != 1 || t.NumOut() != 0 || t.IsVariadic() {
		panic(fmt.Sprintf("node: cannot flatten %s", t))
	}
	yield := t.In(0)
	if yield.Kind() != reflect.Func || yield.IsVariadic() ||
		yield.NumIn() < 1 || yield.NumIn() > 2 ||
		yield.NumOut() != 1 || yield.Out(0).Kind() != reflect.Bool {
		panic(fmt.Sprintf("node: cannot flatten %s", t))
	}

	last := yield.NumIn() - 1
	more := reflect.ValueOf(true).Convert(yield.Out(0))
	fn := reflect.MakeFunc(yield, func(args []reflect.Value) []reflect.Value {
		out = flattenInto(out, args[last].Interface())
		return []reflect.Value{more}
	})
	seq.Call([]reflect.Value{fn})
	return out
}
