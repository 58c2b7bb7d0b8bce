//go:build property

package render

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/net/html"

	"github.com/conneroisu/gorsx/pkg/node"
)

// TestRenderProperties checks serialization against the x/net/html parser.
func TestRenderProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	text := gen.SliceOf(gen.OneConstOf("a", "b", " ", "<", ">", "&", `"`, "'", "&amp;", "é")).
		Map(func(parts []string) string { return strings.Join(parts, "") })

	// Property: escaped text parses back to the original string
	properties.Property("text round-trips through an HTML parser", prop.ForAll(
		func(s string) bool {
			doc, err := html.Parse(strings.NewReader(Render(node.El("p", nil, s))))
			if err != nil {
				return false
			}
			p := find(doc, "p")
			if p == nil {
				return false
			}
			if s == "" {
				return p.FirstChild == nil
			}
			return p.FirstChild != nil && p.FirstChild.Data == s
		},
		text,
	))

	// Property: attribute values parse back unchanged
	properties.Property("attribute values round-trip", prop.ForAll(
		func(s string) bool {
			doc, err := html.Parse(strings.NewReader(Render(node.El("p", node.Attrs("title", s)))))
			if err != nil {
				return false
			}
			p := find(doc, "p")
			return p != nil && len(p.Attr) == 1 && p.Attr[0].Val == s
		},
		text,
	))

	// Property: escaped output never contains a raw markup character
	properties.Property("escaped text has no markup characters", prop.ForAll(
		func(s string) bool {
			return !strings.ContainsAny(EscapeText(s), `<>"'`)
		},
		text,
	))

	// Property: fragments add nothing to the output
	properties.Property("fragments are transparent", prop.ForAll(
		func(parts []string) bool {
			children := make([]any, len(parts))
			for i, p := range parts {
				children[i] = node.Frag(p, node.Nothing)
			}
			return Render(node.Frag(children...)) == EscapeText(strings.Join(parts, ""))
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func find(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, tag); found != nil {
			return found
		}
	}
	return nil
}
