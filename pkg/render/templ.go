package render

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/gorsx/pkg/node"
)

// Component adapts a node tree to templ.Component so it can be used from
// templ templates and anything else that accepts one.
func Component(n node.Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Write(w, n)
	})
}

// FromTempl renders a templ component into a Raw node. The templ output is
// trusted and written verbatim.
func FromTempl(ctx context.Context, c templ.Component) (node.Node, error) {
	if c == nil {
		return node.Nothing, nil
	}
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return nil, err
	}
	return node.Raw{HTML: b.String()}, nil
}
