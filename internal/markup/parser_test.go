package markup

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/gorsx/internal/errors"
)

func mustParse(t *testing.T, src string) Root {
	t.Helper()
	root, err := ParseString(src)
	require.NoError(t, err)
	require.NotNil(t, root)
	return root
}

func TestParse_Element(t *testing.T) {
	root := mustParse(t, `<div class="card">hello</div>`)

	want := &ElementSpec{
		Tag: "div",
		Attrs: []*AttrSpec{
			{Name: "class", Kind: AttrLiteral, Parts: []Part{{Literal: "card"}}},
		},
		Children:   []Child{&TextLiteral{Value: "hello"}},
		ClosingTag: "div",
	}
	if diff := cmp.Diff(want, root, cmpopts.IgnoreTypes(Position{})); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_NestedList(t *testing.T) {
	src := "<ul>\n  <li>Item 1</li>\n  <li>Item 2</li>\n</ul>"
	root := mustParse(t, src)

	want := &ElementSpec{
		Tag: "ul",
		Children: []Child{
			&ElementSpec{Tag: "li", Children: []Child{&TextLiteral{Value: "Item 1"}}, ClosingTag: "li"},
			&ElementSpec{Tag: "li", Children: []Child{&TextLiteral{Value: "Item 2"}}, ClosingTag: "li"},
		},
		ClosingTag: "ul",
	}
	if diff := cmp.Diff(want, root, cmpopts.IgnoreTypes(Position{})); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_SelfClosing(t *testing.T) {
	root := mustParse(t, `<img src="x.png" />`)
	el, ok := root.(*ElementSpec)
	require.True(t, ok)
	assert.True(t, el.SelfClosing)
	assert.Empty(t, el.ClosingTag)
	assert.Empty(t, el.Children)
	require.Len(t, el.Attrs, 1)
	assert.Equal(t, "x.png", el.Attrs[0].Value())
}

func TestParse_Fragments(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		root := mustParse(t, `<><b>a</b><i>b</i></>`)
		frag, ok := root.(*FragmentSpec)
		require.True(t, ok)
		assert.False(t, frag.Implicit)
		assert.Len(t, frag.Children, 2)
	})

	t.Run("implicit for several roots", func(t *testing.T) {
		root := mustParse(t, "<p>a</p>\n<p>b</p>")
		frag, ok := root.(*FragmentSpec)
		require.True(t, ok)
		assert.True(t, frag.Implicit)
		assert.Len(t, frag.Children, 2)
	})

	t.Run("implicit for bare text", func(t *testing.T) {
		root := mustParse(t, "just text")
		frag, ok := root.(*FragmentSpec)
		require.True(t, ok)
		require.Len(t, frag.Children, 1)
		assert.Equal(t, "just text", frag.Children[0].(*TextLiteral).Value)
	})
}

func TestParse_AttributeKinds(t *testing.T) {
	root := mustParse(t, `<button class="btn-{count}" disabled onclick={handler} title={ok => "yes"} data-x={n > 1 => label} />`)
	el := root.(*ElementSpec)
	require.Len(t, el.Attrs, 5)

	tests := []struct {
		name  string
		kind  AttrKind
		cond  string
		parts []Part
	}{
		{"class", AttrInterpolated, "", []Part{{Literal: "btn-"}, {Expr: "count", IsExpr: true}}},
		{"disabled", AttrBool, "", nil},
		{"onclick", AttrExpr, "", []Part{{Expr: "handler", IsExpr: true}}},
		{"title", AttrConditional, "ok", []Part{{Literal: "yes"}}},
		{"data-x", AttrConditional, "n > 1", []Part{{Expr: "label", IsExpr: true}}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := el.Attrs[i]
			assert.Equal(t, tt.name, attr.Name)
			assert.Equal(t, tt.kind, attr.Kind)
			assert.Equal(t, tt.cond, attr.Cond)
			assert.Equal(t, tt.parts, attr.Parts)
		})
	}
}

func TestParse_Text(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Child
	}{
		{
			name:     "entities are decoded",
			input:    `<p>a &amp; b &lt;c&gt;</p>`,
			expected: []Child{&TextLiteral{Value: "a & b <c>"}},
		},
		{
			name:     "doubled braces are literal",
			input:    `<p>{{x}}</p>`,
			expected: []Child{&TextLiteral{Value: "{x}"}},
		},
		{
			name:     "embedded expression",
			input:    `<p>Hello, {name}!</p>`,
			expected: []Child{&TextLiteral{Value: "Hello, "}, &Embedded{Expr: "name"}, &TextLiteral{Value: "!"}},
		},
		{
			name:     "braces inside strings",
			input:    `<p>{"}" + '{'}</p>`,
			expected: []Child{&Embedded{Expr: `"}" + '{'`}},
		},
		{
			name:     "empty expression is dropped",
			input:    `<p>{ }</p>`,
			expected: nil,
		},
		{
			name:     "multiline text is joined",
			input:    "<p>\n  Hello\n  world\n</p>",
			expected: []Child{&TextLiteral{Value: "Hello world"}},
		},
		{
			name:     "indented continuation line",
			input:    "<p>a\n    b</p>",
			expected: []Child{&TextLiteral{Value: "a b"}},
		},
		{
			name:     "outer spaces survive line joining",
			input:    "<p> a  \n\n  b </p>",
			expected: []Child{&TextLiteral{Value: " a b "}},
		},
		{
			name:     "single line is verbatim",
			input:    "<p>  a   b  </p>",
			expected: []Child{&TextLiteral{Value: "  a   b  "}},
		},
		{
			name:     "comment",
			input:    `<p><!-- note --></p>`,
			expected: []Child{&CommentSpec{Value: " note "}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := mustParse(t, tt.input).(*ElementSpec)
			if diff := cmp.Diff(tt.expected, el.Children, cmpopts.IgnoreTypes(Position{})); diff != "" {
				t.Errorf("children mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		code    string
		message string
	}{
		{"mismatched tag", `<div></span>`, errors.ErrCodeMismatchedTag, "closing tag </span> doesn't match opening tag <div>"},
		{"fragment closes element", `<div></>`, errors.ErrCodeMismatchedTag, "closing tag </> doesn't match opening tag <div>"},
		{"element closes fragment", `<></div>`, errors.ErrCodeMismatchedTag, "doesn't match"},
		{"closed self-closing tag", `<br /></br>`, errors.ErrCodeSelfClosingClosed, "<br />"},
		{"closed self-closing tag nested", `<p><br/></br></p>`, errors.ErrCodeSelfClosingClosed, "<br />"},
		{"unterminated element", `<div><p>x</p>`, errors.ErrCodeUnterminated, "<div>"},
		{"unterminated tag", `<div class="a"`, errors.ErrCodeUnterminated, "tag <div>"},
		{"unterminated fragment", `<><p/>`, errors.ErrCodeUnterminated, "fragment"},
		{"unterminated expression", `<p>{a + </p>`, errors.ErrCodeUnterminated, "expression"},
		{"unterminated comment", `<!-- oops`, errors.ErrCodeUnterminated, "comment"},
		{"unexpected close", `</div>`, errors.ErrCodeUnexpectedClose, "</div>"},
		{"unquoted value", `<a href=x>y</a>`, errors.ErrCodeMalformedAttr, `"href"`},
		{"empty attribute expression", `<a href={ }>y</a>`, errors.ErrCodeMalformedAttr, "empty expression"},
		{"missing condition", `<a href={ => "x"}>y</a>`, errors.ErrCodeMalformedAttr, "missing condition"},
		{"unterminated value", `<a href="x>y</a>`, errors.ErrCodeMalformedAttr, "unterminated value"},
		{"bad tag start", `< div></div>`, errors.ErrCodeMalformedTag, "after '<'"},
		{"attributes need spaces", `<a href="x"id="y"></a>`, errors.ErrCodeMalformedTag, "unexpected character"},
		{"empty input", "  \n ", errors.ErrCodeMalformedTag, "no markup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParseString(tt.input)
			require.Error(t, err)
			assert.Nil(t, root)
			assert.True(t, errors.IsStructuralError(err))
			assert.True(t, errors.HasErrorCode(err, tt.code), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := Parse("card.rsx", []byte("<div>\n  <span>\n</div>"))
	require.Error(t, err)

	var me *errors.MarkupError
	require.True(t, stderrors.As(err, &me))
	assert.Equal(t, "card.rsx", me.FilePath)
	assert.Equal(t, 3, me.Line)
	assert.Equal(t, 1, me.Column)
	assert.Equal(t, "span", me.Context["tag"])
	assert.Equal(t, "div", me.Context["closing_tag"])
}

func TestParse_Positions(t *testing.T) {
	root := mustParse(t, "<div>\n  <span id=\"x\">é</span>\n</div>")
	el := root.(*ElementSpec)
	assert.Equal(t, Position{Line: 1, Column: 1}, el.Pos)

	span := el.Children[0].(*ElementSpec)
	assert.Equal(t, 2, span.Pos.Line)
	assert.Equal(t, 3, span.Pos.Column)
	assert.Equal(t, 2, span.Attrs[0].Pos.Line)
	assert.Equal(t, 9, span.Attrs[0].Pos.Column)
}

func TestTags(t *testing.T) {
	root := mustParse(t, `<Layout><Card title="a"/><div><Card title="b"/></div></Layout>`)
	assert.Equal(t, []string{"Layout", "Card", "div"}, Tags(root))
}
