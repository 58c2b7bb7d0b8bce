package component

import (
	"github.com/spf13/cast"

	"github.com/conneroisu/gorsx/pkg/attr"
	"github.com/conneroisu/gorsx/pkg/node"
)

// Props are the bound property values of one component use.
type Props map[string]any

// Get returns the raw value of name.
func (p Props) Get(name string) (any, bool) {
	v, ok := p[name]
	return v, ok
}

// Has reports whether name was bound, by an attribute or a default.
func (p Props) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// String returns name rendered to a string; unbound props are "".
func (p Props) String(name string) string {
	return attr.Stringify(p[name])
}

// Bool returns the truthiness of name.
func (p Props) Bool(name string) bool {
	return attr.Truthy(p[name])
}

// Int returns name as an int, or 0 when it is unbound or not numeric.
func (p Props) Int(name string) int {
	return cast.ToInt(p[name])
}

// Nodes returns name flattened into nodes.
func (p Props) Nodes(name string) []node.Node {
	return node.Flatten(p[name])
}

// Clone returns a shallow copy.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
