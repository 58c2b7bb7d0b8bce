package errors

import (
	"errors"
	"sort"
	"strings"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// SuggestionContext provides context for generating suggestions
type SuggestionContext struct {
	// KnownComponents lists the registered component names
	KnownComponents []string
	// KnownProps lists the props declared by the component involved in the error
	KnownProps []string
	ConfigPath string
}

// Suggest returns hints for fixing err; unknown error kinds get none
func Suggest(err error, ctx *SuggestionContext) []ErrorSuggestion {
	var me *MarkupError
	if !errors.As(err, &me) {
		return nil
	}
	if ctx == nil {
		ctx = &SuggestionContext{}
	}

	switch me.Code {
	case ErrCodeUnknownComponent:
		return componentNotFound(me.Component, ctx)
	case ErrCodeUnknownProp:
		prop, _ := me.Context["prop"].(string)
		return unknownProp(me.Component, prop, ctx)
	case ErrCodeMissingProp:
		prop, _ := me.Context["prop"].(string)
		return []ErrorSuggestion{{
			Title:       "Supply the required property",
			Description: "The component declares " + prop + " as required and no default",
			Example:     "<" + me.Component + " " + prop + "=\"...\" />",
		}}
	case ErrCodeMismatchedTag:
		open, _ := me.Context["tag"].(string)
		return []ErrorSuggestion{{
			Title:       "Close the element with its own name",
			Description: "Tag names are matched exactly, including case",
			Example:     "</" + open + ">",
		}}
	case ErrCodeUnterminated:
		return []ErrorSuggestion{{
			Title:       "Close every open tag",
			Description: "Use </tag>, </> for fragments, or the self-closing form <tag />",
		}}
	}

	return nil
}

func componentNotFound(name string, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check the component file exists",
			Description: "Components are discovered from .rsx files in the configured scan paths",
			Example:     "components/" + strings.ToLower(name) + ".rsx",
		},
		{
			Title:       "List all discovered components",
			Description: "See what components gorsx has found",
			Command:     "gorsx list",
		},
	}

	if ctx.ConfigPath != "" {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Check scan paths configuration",
			Description: "Verify components.scan_paths includes the component directory",
			Command:     "cat " + ctx.ConfigPath,
		})
	}

	if match := closest(name, ctx.KnownComponents); match != "" {
		suggestions = append([]ErrorSuggestion{{
			Title:       "Did you mean '" + match + "'?",
			Description: "Similar component found",
		}}, suggestions...)
	}

	return suggestions
}

func unknownProp(component, prop string, ctx *SuggestionContext) []ErrorSuggestion {
	var suggestions []ErrorSuggestion
	if match := closest(prop, ctx.KnownProps); match != "" {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Did you mean '" + match + "'?",
			Description: "Similar property declared by " + component,
		})
	}
	if len(ctx.KnownProps) > 0 {
		known := append([]string(nil), ctx.KnownProps...)
		sort.Strings(known)
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Declared properties",
			Description: component + " accepts: " + strings.Join(known, ", "),
		})
	}
	return suggestions
}

// closest returns the candidate with the smallest edit distance to name, if close enough
func closest(name string, candidates []string) string {
	best := ""
	bestDist := len(name)/2 + 2
	lower := strings.ToLower(name)
	for _, c := range candidates {
		d := levenshtein(lower, strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// FormatSuggestions renders suggestions as a bulleted list under title
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\nSuggestions:")
	for _, s := range suggestions {
		b.WriteString("\n  • ")
		b.WriteString(s.Title)
		if s.Description != "" {
			b.WriteString(": ")
			b.WriteString(s.Description)
		}
		if s.Command != "" {
			b.WriteString("\n      $ ")
			b.WriteString(s.Command)
		}
		if s.Example != "" {
			b.WriteString("\n      ")
			b.WriteString(s.Example)
		}
	}
	return b.String()
}
