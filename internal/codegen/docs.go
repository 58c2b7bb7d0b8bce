package codegen

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/gorsx/internal/engine"
)

// Docs renders Markdown documentation for a compiled template: its props,
// the components it uses and a usage example.
func Docs(t *engine.Template) string {
	title := cases.Title(language.English, cases.NoLower)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Name)
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", t.Description)
	}
	fmt.Fprintf(&b, "File: `%s`\n\n", t.Path)

	props := t.Schema().Props
	if len(props) > 0 {
		b.WriteString("## Props\n\n")
		b.WriteString("| Name | Type | Required | Default | Description |\n")
		b.WriteString("|------|------|----------|---------|-------------|\n")
		for _, p := range props {
			typ := p.Type
			if typ == "" {
				typ = "any"
			}
			required := "No"
			if p.Required && !p.HasDefault {
				required = "Yes"
			}
			def := "-"
			if p.HasDefault {
				def = fmt.Sprintf("`%v`", p.Default)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", p.Name, typ, required, def, p.Description)
		}
		b.WriteString("\n")
	}

	if deps := t.Dependencies(); len(deps) > 0 {
		b.WriteString("## Uses\n\n")
		for _, dep := range deps {
			fmt.Fprintf(&b, "- %s\n", dep)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Usage\n\n```rsx\n<" + t.Name)
	for _, p := range props {
		if p.Required && !p.HasDefault {
			fmt.Fprintf(&b, " %s=\"%s\"", p.Name, title.String(p.Name))
		}
	}
	b.WriteString(" />\n```\n")
	return b.String()
}
