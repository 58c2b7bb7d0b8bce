package engine

import (
	"io"

	"github.com/conneroisu/gorsx/internal/markup"
	"github.com/conneroisu/gorsx/pkg/component"
	"github.com/conneroisu/gorsx/pkg/node"
	"github.com/conneroisu/gorsx/pkg/render"
)

// Template is a compiled template. It is immutable and safe to execute
// from several goroutines; every execution builds its own tree.
type Template struct {
	Name        string
	Path        string
	Hash        string
	Description string

	schema component.Schema
	root   markup.Root
	deps   []string
	body   []program
}

// Schema returns the props declared in the front matter.
func (t *Template) Schema() component.Schema { return t.schema }

// Root returns the parsed markup.
func (t *Template) Root() markup.Root { return t.root }

// Dependencies returns the component tags the template uses.
func (t *Template) Dependencies() []string { return t.deps }

// Render executes the template as a component: props are already bound
// and children are available as {children}.
func (t *Template) Render(props component.Props, children []node.Node) (node.Node, error) {
	env := make(map[string]any, len(props)+1)
	for k, v := range props {
		env[k] = v
	}
	env[component.ChildrenSlot] = children
	return t.run(env)
}

// Execute runs the template with data as its top-level variables.
// Declared defaults fill in missing props; data is not checked against
// the schema.
func (t *Template) Execute(data map[string]any) (node.Node, error) {
	env := t.schema.Defaults()
	for k, v := range data {
		env[k] = v
	}
	return t.run(env)
}

// ExecuteHTML runs the template and serializes the result.
func (t *Template) ExecuteHTML(data map[string]any) (string, error) {
	n, err := t.Execute(data)
	if err != nil {
		return "", err
	}
	return render.Render(n), nil
}

// ExecuteTo runs the template and streams the HTML to w.
func (t *Template) ExecuteTo(w io.Writer, data map[string]any) error {
	n, err := t.Execute(data)
	if err != nil {
		return err
	}
	return render.Write(w, n)
}

func (t *Template) run(env map[string]any) (node.Node, error) {
	x := &execution{env: env, template: t.Name}
	out, err := execAll(x, t.body, nil)
	if err != nil {
		return nil, err
	}
	return node.Group(out), nil
}
