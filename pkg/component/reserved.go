package component

import (
	"regexp"
	"strconv"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/pkg/render"
)

// Names of the built-in control-flow tags. They can never be registered.
const (
	ShowTag = "Show"
	ElseTag = "Else"
	ForTag  = "For"
)

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.:]*$`)

// IsReserved reports whether name is a built-in tag.
func IsReserved(name string) bool {
	switch name {
	case ShowTag, ElseTag, ForTag:
		return true
	}
	return false
}

// IsComponentTag reports whether tag refers to a component rather than an
// HTML element or a built-in.
func IsComponentTag(tag string) bool {
	return !render.IsHTMLElement(tag) && !IsReserved(tag)
}

// ValidateName checks that name can be bound to a component.
func ValidateName(name string) error {
	switch {
	case !validName.MatchString(name):
		return errors.NewValidationError(errors.ErrCodeReservedName,
			"invalid component name "+strconv.Quote(name)).WithComponent(name)
	case IsReserved(name):
		return errors.NewValidationError(errors.ErrCodeReservedName,
			strconv.Quote(name)+" is a built-in tag").WithComponent(name)
	case render.IsHTMLElement(name):
		return errors.NewValidationError(errors.ErrCodeReservedName,
			strconv.Quote(name)+" is an HTML element").WithComponent(name)
	}
	return nil
}
