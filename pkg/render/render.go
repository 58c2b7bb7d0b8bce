// Package render serializes a node tree to an HTML string.
//
// Serialization is a pure function of the tree: text and attribute values
// are escaped exactly once, void elements without children use the
// self-closing form, and fragments and empty nodes produce no markup of
// their own. Rendering a tree cannot fail; Write only reports errors from
// the underlying writer.
package render

import (
	"bufio"
	"io"
	"strings"

	"github.com/conneroisu/gorsx/pkg/node"
)

// Render returns the HTML for n.
func Render(n node.Node) string {
	var b strings.Builder
	w := writer{w: &b}
	w.node(n)
	return b.String()
}

// Write streams the HTML for n to dst.
func Write(dst io.Writer, n node.Node) error {
	bw := bufio.NewWriter(dst)
	w := writer{w: bw}
	w.node(n)
	if w.err != nil {
		return w.err
	}
	return bw.Flush()
}

type stringWriter interface {
	io.Writer
	io.StringWriter
}

type writer struct {
	w   stringWriter
	err error
}

func (w *writer) str(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.WriteString(s)
}

func (w *writer) node(n node.Node) {
	switch v := n.(type) {
	case nil, node.Empty, *node.Empty:
	case node.Text:
		w.str(EscapeText(v.Value))
	case node.Element:
		w.element(v)
	case node.Fragment:
		for _, c := range v.Children {
			w.node(c)
		}
	case node.Comment:
		w.str("<!--")
		w.str(strings.ReplaceAll(v.Value, "--", "- -"))
		w.str("-->")
	case node.Raw:
		w.str(v.HTML)
	default:
		// Pointer forms of the node types.
		for _, c := range node.Flatten(v) {
			w.node(c)
		}
	}
}

func (w *writer) element(el node.Element) {
	w.str("<")
	w.str(el.Tag)
	for _, a := range el.Attrs {
		w.str(" ")
		w.str(a.Name)
		w.str(`="`)
		w.str(EscapeAttr(a.Value))
		w.str(`"`)
	}
	if len(el.Children) == 0 && IsVoid(el.Tag) {
		w.str("/>")
		return
	}
	w.str(">")
	for _, c := range el.Children {
		w.node(c)
	}
	w.str("</")
	w.str(el.Tag)
	w.str(">")
}
