package node

import (
	"iter"
	"maps"
	"slices"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

type label string

func (l label) String() string { return "label:" + string(l) }

func TestFlatten(t *testing.T) {
	a, b, c, d := T("a"), El("b", nil), T("c"), El("d", nil)

	tests := []struct {
		name  string
		input []any
		want  []Node
	}{
		{
			name:  "nested lists and empties",
			input: []any{a, []any{b, c}, Nothing, d},
			want:  []Node{a, b, c, d},
		},
		{
			name:  "fragments are spliced",
			input: []any{Frag(a, Frag(b)), c},
			want:  []Node{a, b, c},
		},
		{
			name:  "nil and empty are dropped",
			input: []any{nil, Empty{}, &Empty{}, []Node{}, Frag()},
			want:  []Node{},
		},
		{
			name:  "scalars become text",
			input: []any{"s", 1, 2.5, true, label("x")},
			want:  []Node{T("s"), T("1"), T("2.5"), T("true"), T("label:x")},
		},
		{
			name:  "pointer nodes are dereferenced",
			input: []any{&Text{Value: "p"}, (*Element)(nil)},
			want:  []Node{T("p")},
		},
		{
			name:  "typed slices",
			input: []any{[]string{"x", "y"}, []int{1, 2}},
			want:  []Node{T("x"), T("y"), T("1"), T("2")},
		},
		{
			name:  "sequences",
			input: []any{slices.Values([]Node{a, Frag(b)})},
			want:  []Node{a, b},
		},
		{
			name:  "typed sequences",
			input: []any{slices.Values([]Element{El("li", nil, "a"), El("li", nil, "b")})},
			want:  []Node{El("li", nil, "a"), El("li", nil, "b")},
		},
		{
			name: "unnamed sequences",
			input: []any{func(yield func(Node) bool) {
				_ = yield(a) && yield(Frag(b, c))
			}},
			want: []Node{a, b, c},
		},
		{
			name:  "pair sequences yield their values",
			input: []any{slices.All([]string{"x", "y"}), maps.All(map[string]Node{"k": d})},
			want:  []Node{T("x"), T("y"), d},
		},
		{
			name:  "nil sequences are dropped",
			input: []any{iter.Seq[Node](nil), iter.Seq[Element](nil)},
			want:  []Node{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.input...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFlatten_RejectsOtherFuncs(t *testing.T) {
	assert.PanicsWithValue(t, "node: cannot flatten func() string", func() {
		Flatten(func() string { return "x" })
	})
	assert.PanicsWithValue(t, "node: cannot flatten func(func(string))", func() {
		Flatten(func(func(string)) {})
	})
}

func TestFlatten_IsIdempotent(t *testing.T) {
	once := Flatten(T("a"), []any{Frag(T("b"), []any{T("c")}), nil}, T("d"))
	twice := Flatten(once)

	assert.Equal(t, once, twice)
}

func TestGroup(t *testing.T) {
	assert.Equal(t, Nothing, Group())
	assert.Equal(t, Nothing, Group(nil, Frag()))
	assert.Equal(t, T("x"), Group(Frag(T("x"))))
	assert.Equal(t, Fragment{Children: []Node{T("x"), T("y")}}, Group("x", []string{"y"}))
}

func TestEl_FlattensChildren(t *testing.T) {
	el := El("ul", Attrs("class", "list"), []any{El("li", nil, "1"), Frag(El("li", nil, "2"))}, Nothing)

	assert.Len(t, el.Children, 2)
	for _, c := range el.Children {
		_, isFrag := c.(Fragment)
		assert.False(t, isFrag)
	}
}

func TestControl(t *testing.T) {
	assert.Equal(t, T("yes"), If(true, "yes", "no"))
	assert.Equal(t, T("no"), If(false, "yes", "no"))
	assert.Equal(t, Nothing, If(false, "yes", nil))
	assert.Equal(t, Nothing, When(false, "x"))
	assert.Equal(t, T("x"), When(true, "x"))

	called := false
	got := Lazy(true, func() any { return "a" }, func() any { called = true; return "b" })
	assert.Equal(t, T("a"), got)
	assert.False(t, called)
	assert.Equal(t, Nothing, Lazy(false, nil, nil))

	items := Map([]int{1, 2, 3}, func(item, i int) any { return strconv.Itoa(item * 10) })
	assert.Equal(t, Frag("10", "20", "30"), items)

	seq := Each(slices.Values([]string{"a"}), func(s string) any { return El("i", nil, s) })
	assert.Equal(t, El("i", nil, "a"), seq)

	ranged := Range([]any{"x", "y"}, func(item any, i int) any { return []any{i, item} })
	assert.Equal(t, Frag("0", "x", "1", "y"), ranged)
	assert.Equal(t, T("solo"), Range("solo", func(item any, _ int) any { return item }))
	assert.Equal(t, Nothing, Range(nil, func(item any, _ int) any { return item }))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(Nothing))
	assert.True(t, IsEmpty(Fragment{Children: []Node{Empty{}, Fragment{}}}))
	assert.False(t, IsEmpty(T("")))
	assert.False(t, IsEmpty(El("br", nil)))
}

func TestWalk(t *testing.T) {
	tree := El("div", nil, El("p", nil, "a"), El("span", nil, El("b", nil, "c")))

	var tags []string
	Walk(tree, func(n Node) bool {
		if el, ok := n.(Element); ok {
			tags = append(tags, el.Tag)
			return el.Tag != "span"
		}
		return true
	})

	assert.Equal(t, []string{"div", "p", "span"}, tags)
}

func TestAttributes(t *testing.T) {
	a := Attrs("id", "x", "class", "a", "id", "y", "dangling")

	assert.Equal(t, []string{"id", "class"}, a.Names())
	v, ok := a.Get("id")
	assert.True(t, ok)
	assert.Equal(t, "y", v)

	a.Set("title", "t")
	a.Delete("class")
	assert.Equal(t, Attributes{{Name: "id", Value: "y"}, {Name: "title", Value: "t"}}, a)
	assert.False(t, a.Has("class"))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, map[string]string{"id": "y", "title": "t"}, a.Map())
}

func TestEmbed(t *testing.T) {
	assert.Nil(t, Embed(true))
	assert.Nil(t, Embed(false))
	assert.Equal(t, 0, Embed(0))
	assert.Equal(t, "x", Embed("x"))
	assert.Empty(t, Flatten(Embed(true)))
}
