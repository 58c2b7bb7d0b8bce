package engine

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/markup"
	"github.com/conneroisu/gorsx/internal/registry"
	"github.com/conneroisu/gorsx/pkg/component"
)

// FrontMatter is the YAML header of a template.
type FrontMatter struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Props       component.Schema `yaml:"props"`
}

// ParseFrontMatter decodes a front matter block. Unknown keys are errors.
func ParseFrontMatter(path string, header []byte) (FrontMatter, error) {
	var fm FrontMatter
	if len(bytes.TrimSpace(header)) == 0 {
		return fm, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(header))
	dec.KnownFields(true)
	if err := dec.Decode(&fm); err != nil && err != io.EOF {
		return fm, errors.NewValidationError(
			errors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid front matter: %v", err),
		).WithLocation(path, 1, 0)
	}
	if fm.Name != "" {
		if err := component.ValidateName(fm.Name); err != nil {
			return fm, errors.EnhanceError(err, fm.Name, path)
		}
	}
	return fm, nil
}

// parsedSource is a template after parsing, before its expressions are
// compiled.
type parsedSource struct {
	path  string
	name  string
	hash  string
	front FrontMatter
	root  markup.Root
	deps  []string
}

func parseSource(path string, src []byte) (*parsedSource, error) {
	header, body := markup.SplitFrontMatter(src)
	fm, err := ParseFrontMatter(path, header)
	if err != nil {
		return nil, err
	}
	root, err := markup.Parse(path, body)
	if err != nil {
		return nil, err
	}

	name := fm.Name
	if name == "" {
		name = component.NameFromPath(path)
	}
	return &parsedSource{
		path:  path,
		name:  name,
		hash:  fmt.Sprintf("%08x", crc32.ChecksumIEEE(src)),
		front: fm,
		root:  root,
		deps:  registry.Dependencies(root, name),
	}, nil
}

// rootChildren returns what a template body renders: the root element
// itself, or the children of a root fragment.
func rootChildren(root markup.Root) []markup.Child {
	switch r := root.(type) {
	case *markup.FragmentSpec:
		return r.Children
	case *markup.ElementSpec:
		return []markup.Child{r}
	}
	return nil
}
