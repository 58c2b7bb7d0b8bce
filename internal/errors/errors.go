package errors

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/gorsx/pkg/node"
	"github.com/conneroisu/gorsx/pkg/render"
)

// Diagnostic is a single located problem found while compiling a template
type Diagnostic struct {
	Component string        `json:"component,omitempty" yaml:"component,omitempty"`
	File      string        `json:"file" yaml:"file"`
	Line      int           `json:"line" yaml:"line"`
	Column    int           `json:"column" yaml:"column"`
	Code      string        `json:"code,omitempty" yaml:"code,omitempty"`
	Message   string        `json:"message" yaml:"message"`
	Severity  ErrorSeverity `json:"severity" yaml:"severity"`
	Timestamp time.Time     `json:"-" yaml:"-"`
}

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalText lets encoders print the severity by name
func (s ErrorSeverity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name written by MarshalText
func (s *ErrorSeverity) UnmarshalText(text []byte) error {
	for _, sev := range []ErrorSeverity{ErrorSeverityInfo, ErrorSeverityWarning, ErrorSeverityError, ErrorSeverityFatal} {
		if sev.String() == string(text) {
			*s = sev
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", text)
}

// Error implements the error interface
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

// DiagnosticFrom converts an error into a Diagnostic, using the location carried by a MarkupError
func DiagnosticFrom(err error) Diagnostic {
	d := Diagnostic{Message: err.Error(), Severity: ErrorSeverityError}

	var me *MarkupError
	if errors.As(err, &me) {
		d.Component = me.Component
		d.File = me.FilePath
		d.Line = me.Line
		d.Column = me.Column
		d.Code = me.Code
		d.Message = me.Message
		if me.Cause != nil {
			d.Message += ": " + me.Cause.Error()
		}
	}

	return d
}

// ErrorCollector collects diagnostics across many templates
type ErrorCollector struct {
	diagnostics []Diagnostic
	mutex       sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		diagnostics: make([]Diagnostic, 0),
	}
}

// Add adds a diagnostic to the collector
func (ec *ErrorCollector) Add(d Diagnostic) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	d.Timestamp = time.Now()
	ec.diagnostics = append(ec.diagnostics, d)
}

// AddError converts err to a diagnostic and adds it
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}
	ec.Add(DiagnosticFrom(err))
}

// GetErrors returns all diagnostics ordered by file, line and column
func (ec *ErrorCollector) GetErrors() []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	result := make([]Diagnostic, len(ec.diagnostics))
	copy(result, ec.diagnostics)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].File != result[j].File {
			return result[i].File < result[j].File
		}
		if result[i].Line != result[j].Line {
			return result[i].Line < result[j].Line
		}
		return result[i].Column < result[j].Column
	})
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.diagnostics) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.diagnostics = ec.diagnostics[:0]
}

// GetErrorsByComponent returns errors for a specific component
func (ec *ErrorCollector) GetErrorsByComponent(component string) []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var componentErrors []Diagnostic
	for _, d := range ec.diagnostics {
		if d.Component == component {
			componentErrors = append(componentErrors, d)
		}
	}
	return componentErrors
}

// ErrorOverlay renders the collected diagnostics as an HTML overlay for the preview server
func (ec *ErrorCollector) ErrorOverlay() string {
	diagnostics := ec.GetErrors()
	if len(diagnostics) == 0 {
		return ""
	}

	items := node.Map(diagnostics, func(d Diagnostic, _ int) any {
		color := "#ff6b6b"
		switch d.Severity {
		case ErrorSeverityWarning:
			color = "#feca57"
		case ErrorSeverityInfo:
			color = "#48dbfb"
		}

		return node.El("div", node.Attrs("class", "gorsx-error", "style", "border-left: 4px solid "+color+"; padding: 12px; margin-bottom: 12px; background: #2d3748;"),
			node.El("strong", node.Attrs("style", "color: "+color), d.Severity.String()),
			node.El("pre", nil, d.Message),
			node.El("small", nil, fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)),
		)
	})

	overlay := node.El("div",
		node.Attrs(
			"id", "gorsx-error-overlay",
			"style", "position: fixed; inset: 0; background: rgba(0, 0, 0, 0.85); color: white; font-family: monospace; z-index: 9999; padding: 20px; overflow: auto;",
		),
		node.El("h2", node.Attrs("style", "color: #ff6b6b"), "Template Errors"),
		items,
	)

	return render.Render(overlay)
}
