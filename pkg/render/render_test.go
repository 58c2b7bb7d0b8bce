package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/gorsx/pkg/node"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		node node.Node
		want string
	}{
		{
			name: "list",
			node: node.El("ul", nil, node.El("li", nil, "Item 1"), node.El("li", nil, "Item 2")),
			want: "<ul><li>Item 1</li><li>Item 2</li></ul>",
		},
		{
			name: "void element",
			node: node.El("img", node.Attrs("src", "x.png")),
			want: `<img src="x.png"/>`,
		},
		{
			name: "empty non-void element",
			node: node.El("div", nil),
			want: `<div></div>`,
		},
		{
			name: "fragment is transparent",
			node: node.Frag("a", node.Nothing, "b"),
			want: "ab",
		},
		{
			name: "nothing",
			node: node.Nothing,
			want: "",
		},
		{
			name: "nil",
			node: nil,
			want: "",
		},
		{
			name: "text escaping",
			node: node.El("p", nil, `<b>&"'`),
			want: `<p>&lt;b&gt;&amp;&quot;&#39;</p>`,
		},
		{
			name: "text is escaped once",
			node: node.T("&amp;"),
			want: "&amp;amp;",
		},
		{
			name: "attribute escaping",
			node: node.El("a", node.Attrs("title", `"x" & <y>`)),
			want: `<a title="&quot;x&quot; &amp; &lt;y&gt;"></a>`,
		},
		{
			name: "attribute order",
			node: node.El("input", node.Attrs("type", "text", "name", "q", "value", "")),
			want: `<input type="text" name="q" value=""/>`,
		},
		{
			name: "comment",
			node: node.Comment{Value: " a -- b "},
			want: "<!-- a - - b -->",
		},
		{
			name: "raw",
			node: node.El("div", nil, node.Raw{HTML: "<em>ok</em>"}),
			want: "<div><em>ok</em></div>",
		},
		{
			name: "pointer node",
			node: &node.Text{Value: "p"},
			want: "p",
		},
		{
			name: "custom element",
			node: node.El("my-widget", node.Attrs("data-x", "1"), "hi"),
			want: `<my-widget data-x="1">hi</my-widget>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.node))
		})
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	tree := node.El("ul", nil, node.El("li", nil, "a"))

	require.NoError(t, Write(&buf, tree))
	assert.Equal(t, Render(tree), buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_ReportsWriterErrors(t *testing.T) {
	big := node.El("p", nil, strings.Repeat("x", 8192))

	err := Write(failingWriter{}, big)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRender_ParsesAsHTML(t *testing.T) {
	tree := node.El("div", node.Attrs("id", "root", "title", `a "b" & c`),
		node.El("p", nil, "1 < 2 & 3 > 2"),
		node.El("br", nil),
		node.El("span", nil, "it's"),
	)

	doc, err := html.Parse(strings.NewReader(Render(tree)))
	require.NoError(t, err)

	var div *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" {
			div = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	require.NotNil(t, div)

	assert.Equal(t, []html.Attribute{{Key: "id", Val: "root"}, {Key: "title", Val: `a "b" & c`}}, div.Attr)
	assert.Equal(t, "p", div.FirstChild.Data)
	assert.Equal(t, "1 < 2 & 3 > 2", div.FirstChild.FirstChild.Data)
	assert.Equal(t, "it's", div.LastChild.FirstChild.Data)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "plain", EscapeText("plain"))
	assert.Equal(t, "&lt;b&gt;&amp;&quot;&#39;", EscapeText(`<b>&"'`))
	assert.Equal(t, "&amp;lt;", EscapeText(EscapeText("<")))
	assert.Equal(t, EscapeText(`"&`), EscapeAttr(`"&`))
}

func TestVocabulary(t *testing.T) {
	for _, tag := range []string{"img", "br", "input", "meta", "wbr"} {
		assert.True(t, IsVoid(tag), tag)
	}
	for _, tag := range []string{"div", "IMG", "Br", "my-img"} {
		assert.False(t, IsVoid(tag), tag)
	}

	assert.True(t, IsHTMLElement("div"))
	assert.True(t, IsHTMLElement("my-widget"))
	assert.False(t, IsHTMLElement("Card"))
	assert.False(t, IsHTMLElement("Div"))

	for _, tag := range []string{"svg", "path", "circle", "g", "use", "clipPath", "linearGradient", "math", "mrow", "mfrac"} {
		assert.True(t, IsHTMLElement(tag), tag)
	}
	assert.False(t, IsHTMLElement("ClipPath"))
	assert.False(t, IsHTMLElement("clippath"))
}

func TestTemplBridge(t *testing.T) {
	tree := node.El("b", nil, "bold & brave")

	var buf bytes.Buffer
	require.NoError(t, Component(tree).Render(context.Background(), &buf))
	assert.Equal(t, "<b>bold &amp; brave</b>", buf.String())

	greeting := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<i>hi</i>")
		return err
	})
	n, err := FromTempl(context.Background(), greeting)
	require.NoError(t, err)
	assert.Equal(t, "<div><i>hi</i></div>", Render(node.El("div", nil, n)))

	n, err = FromTempl(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, node.Nothing, n)

	_, err = FromTempl(context.Background(), templ.ComponentFunc(func(context.Context, io.Writer) error {
		return errors.New("boom")
	}))
	assert.EqualError(t, err, "boom")
}
