package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/gorsx/internal/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		root Root
		code string
	}{
		{
			name: "valid element",
			root: &ElementSpec{Tag: "div", ClosingTag: "div"},
		},
		{
			name: "valid self-closing",
			root: &ElementSpec{Tag: "br", SelfClosing: true},
		},
		{
			name: "mismatched closing tag",
			root: &ElementSpec{Tag: "div", ClosingTag: "span"},
			code: errors.ErrCodeMismatchedTag,
		},
		{
			name: "missing closing tag",
			root: &ElementSpec{Tag: "div"},
			code: errors.ErrCodeUnterminated,
		},
		{
			name: "self-closing with closing tag",
			root: &ElementSpec{Tag: "br", SelfClosing: true, ClosingTag: "br"},
			code: errors.ErrCodeSelfClosingClosed,
		},
		{
			name: "self-closing with children",
			root: &ElementSpec{Tag: "br", SelfClosing: true, Children: []Child{&TextLiteral{Value: "x"}}},
			code: errors.ErrCodeMalformedTag,
		},
		{
			name: "invalid tag name",
			root: &ElementSpec{Tag: "1div", ClosingTag: "1div"},
			code: errors.ErrCodeMalformedTag,
		},
		{
			name: "nested mismatch",
			root: &FragmentSpec{Children: []Child{
				&ElementSpec{Tag: "p", ClosingTag: "p"},
				&ElementSpec{Tag: "a", ClosingTag: "b"},
			}},
			code: errors.ErrCodeMismatchedTag,
		},
		{
			name: "literal attribute with expression",
			root: &ElementSpec{Tag: "a", ClosingTag: "a", Attrs: []*AttrSpec{
				{Name: "href", Kind: AttrLiteral, Parts: []Part{{Expr: "x", IsExpr: true}}},
			}},
			code: errors.ErrCodeMalformedAttr,
		},
		{
			name: "conditional without condition",
			root: &ElementSpec{Tag: "a", ClosingTag: "a", Attrs: []*AttrSpec{
				{Name: "href", Kind: AttrConditional, Parts: []Part{{Literal: "x"}}},
			}},
			code: errors.ErrCodeMalformedAttr,
		},
		{
			name: "boolean attribute with value",
			root: &ElementSpec{Tag: "input", SelfClosing: true, Attrs: []*AttrSpec{
				{Name: "checked", Kind: AttrBool, Parts: []Part{{Literal: "x"}}},
			}},
			code: errors.ErrCodeMalformedAttr,
		},
		{
			name: "empty embedded expression",
			root: &ElementSpec{Tag: "p", ClosingTag: "p", Children: []Child{&Embedded{}}},
			code: errors.ErrCodeMalformedTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.root)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
}

func TestSplitFrontMatter(t *testing.T) {
	t.Run("with header", func(t *testing.T) {
		src := "---\nname: Card\nprops:\n  - title\n---\n<div>{title}</div>\n"
		header, body := SplitFrontMatter([]byte(src))
		assert.Equal(t, "name: Card\nprops:\n  - title\n", string(header))
		assert.Equal(t, "\n\n\n\n\n<div>{title}</div>\n", string(body))

		root, err := Parse("card.rsx", body)
		require.NoError(t, err)
		assert.Equal(t, 6, root.Position().Line)
	})

	t.Run("without header", func(t *testing.T) {
		src := []byte("<div/>")
		header, body := SplitFrontMatter(src)
		assert.Nil(t, header)
		assert.Equal(t, src, body)
	})

	t.Run("unclosed header is markup", func(t *testing.T) {
		src := []byte("---\nname: x\n<div/>")
		header, body := SplitFrontMatter(src)
		assert.Nil(t, header)
		assert.Equal(t, src, body)
	})
}
