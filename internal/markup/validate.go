package markup

import (
	"github.com/conneroisu/gorsx/internal/errors"
)

// Validate checks the structural invariants of a Markup AST: every
// non-self-closing element is closed by a tag of the same name,
// self-closing elements have neither a closing tag nor children, names
// are well formed and every attribute carries the parts its kind needs.
// Trees returned by Parse always validate; Validate exists for trees
// built or rewritten in code.
func Validate(root Root) error {
	if root == nil {
		return errors.NewStructuralError(errors.ErrCodeMalformedTag, "no markup found")
	}
	var err error
	Walk(root, func(n Node) bool {
		if err != nil {
			return false
		}
		err = validateNode(n)
		return err == nil
	})
	return err
}

func validateNode(n Node) error {
	at := func(e *errors.MarkupError) error {
		pos := n.Position()
		return e.WithLocation(pos.Filename, pos.Line, pos.Column)
	}

	switch v := n.(type) {
	case *ElementSpec:
		if !validName(v.Tag, isTagStart, isTagChar) {
			return at(errors.ErrMalformedTag(v.Tag, "invalid tag name"))
		}
		if v.SelfClosing {
			if v.ClosingTag != "" {
				return at(errors.ErrSelfClosingClosed(v.Tag))
			}
			if len(v.Children) > 0 {
				return at(errors.ErrMalformedTag(v.Tag, "self-closing element cannot have children"))
			}
		} else {
			if v.ClosingTag == "" {
				return at(errors.ErrUnterminated("element", v.Tag))
			}
			if v.ClosingTag != v.Tag {
				return at(errors.ErrMismatchedTag(v.Tag, v.ClosingTag))
			}
		}
		for _, a := range v.Attrs {
			if err := validateAttr(v.Tag, a); err != nil {
				return err
			}
		}
	case *Embedded:
		if v.Expr == "" {
			return at(errors.NewStructuralError(errors.ErrCodeMalformedTag, "empty embedded expression"))
		}
	}
	return nil
}

func validateAttr(tag string, a *AttrSpec) error {
	if a == nil {
		return errors.ErrMalformedAttr(tag, "", "nil attribute")
	}
	fail := func(reason string) error {
		return errors.ErrMalformedAttr(tag, a.Name, reason).
			WithLocation(a.Pos.Filename, a.Pos.Line, a.Pos.Column)
	}
	if !validName(a.Name, isAttrStart, isAttrChar) {
		return fail("invalid attribute name")
	}
	switch a.Kind {
	case AttrBool:
		if len(a.Parts) > 0 {
			return fail("boolean attribute cannot have a value")
		}
	case AttrLiteral:
		if len(a.Parts) != 1 || a.Parts[0].IsExpr {
			return fail("literal attribute must have exactly one literal part")
		}
	case AttrInterpolated:
		if !hasExpr(a.Parts) {
			return fail("interpolated attribute has no expression")
		}
	case AttrExpr:
		if len(a.Parts) != 1 || !a.Parts[0].IsExpr || a.Parts[0].Expr == "" {
			return fail("expression attribute must have exactly one expression")
		}
	case AttrConditional:
		if a.Cond == "" {
			return fail("missing condition")
		}
		if len(a.Parts) == 0 {
			return fail("missing value")
		}
	default:
		return fail("unknown attribute kind")
	}
	for _, part := range a.Parts {
		if part.IsExpr && part.Expr == "" {
			return fail("empty interpolation")
		}
	}
	return nil
}

func validName(s string, start, rest func(byte) bool) bool {
	if s == "" || !start(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !rest(s[i]) {
			return false
		}
	}
	return true
}

// Tags returns the distinct element tag names used in root, in document
// order.
func Tags(root Root) []string {
	seen := make(map[string]bool)
	var tags []string
	Walk(root, func(n Node) bool {
		if el, ok := n.(*ElementSpec); ok && !seen[el.Tag] {
			seen[el.Tag] = true
			tags = append(tags, el.Tag)
		}
		return true
	})
	return tags
}
