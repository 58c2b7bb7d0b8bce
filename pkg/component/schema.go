package component

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Prop declares one property.
type Prop struct {
	Name        string `json:"name" yaml:"name"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault  bool   `json:"-" yaml:"-"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Type is the Go type generated code asserts the value to. Empty
	// means any.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Schema is the ordered property declaration of a component.
type Schema struct {
	Props []Prop `json:"props" yaml:"props"`
}

// NewSchema builds a schema from props.
func NewSchema(props ...Prop) Schema {
	return Schema{Props: props}
}

// Required declares a required property.
func Required(name string) Prop {
	return Prop{Name: name, Required: true}
}

// Optional declares an optional property without a default.
func Optional(name string) Prop {
	return Prop{Name: name}
}

// WithDefault declares an optional property with a default value.
func WithDefault(name string, value any) Prop {
	return Prop{Name: name, Default: value, HasDefault: true}
}

// Lookup returns the property called name.
func (s Schema) Lookup(name string) (Prop, bool) {
	i := slices.IndexFunc(s.Props, func(p Prop) bool { return p.Name == name })
	if i < 0 {
		return Prop{}, false
	}
	return s.Props[i], true
}

// Names returns the declared property names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Props))
	for i, p := range s.Props {
		names[i] = p.Name
	}
	return names
}

// Defaults returns a Props holding every declared default.
func (s Schema) Defaults() Props {
	props := make(Props, len(s.Props))
	for _, p := range s.Props {
		if p.HasDefault {
			props[p.Name] = p.Default
		}
	}
	return props
}

// UnmarshalYAML decodes the value of a props key: either a list of
// optional property names or a mapping from name to
// {required, default, description, type}. Mapping order is kept.
//
//	props: [title, subtitle]
//
//	props:
//	  title: {required: true}
//	  size: {default: md}
func (s *Schema) UnmarshalYAML(value *yaml.Node) error {
	s.Props = nil
	switch value.Kind {
	case 0:
		return nil
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			return nil
		}
		return fmt.Errorf("line %d: props must be a list or a mapping", value.Line)
	case yaml.SequenceNode:
		for _, item := range value.Content {
			var name string
			if err := item.Decode(&name); err != nil {
				return fmt.Errorf("line %d: prop name must be a string", item.Line)
			}
			s.Props = append(s.Props, Prop{Name: name})
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			prop, err := decodeProp(value.Content[i], value.Content[i+1])
			if err != nil {
				return err
			}
			s.Props = append(s.Props, prop)
		}
	default:
		return fmt.Errorf("line %d: props must be a list or a mapping", value.Line)
	}

	seen := make(map[string]bool, len(s.Props))
	for _, p := range s.Props {
		if p.Name == "" {
			return fmt.Errorf("empty prop name")
		}
		if seen[p.Name] {
			return fmt.Errorf("prop %q declared twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func decodeProp(key, value *yaml.Node) (Prop, error) {
	prop := Prop{Name: key.Value}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return prop, nil
	}

	var fields map[string]any
	if err := value.Decode(&fields); err != nil {
		return Prop{}, fmt.Errorf("line %d: prop %q: %w", value.Line, prop.Name, err)
	}
	for k, v := range fields {
		switch k {
		case "required":
			b, ok := v.(bool)
			if !ok {
				return Prop{}, fmt.Errorf("line %d: prop %q: required must be a boolean", value.Line, prop.Name)
			}
			prop.Required = b
		case "default":
			prop.Default = v
			prop.HasDefault = true
		case "description":
			prop.Description = fmt.Sprint(v)
		case "type":
			t, ok := v.(string)
			if !ok {
				return Prop{}, fmt.Errorf("line %d: prop %q: type must be a string", value.Line, prop.Name)
			}
			prop.Type = t
		default:
			return Prop{}, fmt.Errorf("line %d: prop %q: unknown field %q", value.Line, prop.Name, k)
		}
	}
	return prop, nil
}
