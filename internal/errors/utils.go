package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a MarkupError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *MarkupError {
	if err == nil {
		return nil
	}

	// Keep location and component of an inner MarkupError so the outer one still points at the source
	var me *MarkupError
	if errors.As(err, &me) {
		return &MarkupError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       me,
			Context:     me.Context,
			Component:   me.Component,
			FilePath:    me.FilePath,
			Line:        me.Line,
			Column:      me.Column,
			Recoverable: me.Recoverable,
		}
	}

	return &MarkupError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation,
	}
}

// WrapEvaluation wraps a host expression failure
func WrapEvaluation(err error, expr string) *MarkupError {
	me := Wrap(err, ErrorTypeEvaluation, ErrCodeEvalFailed, fmt.Sprintf("evaluating {%s}", expr))
	if me != nil {
		me.Recoverable = false
	}
	return me
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *MarkupError {
	me := Wrap(err, ErrorTypeIO, code, message)
	if me != nil {
		me.Recoverable = false
	}
	return me
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *MarkupError {
	me := Wrap(err, ErrorTypeConfig, code, message)
	if me != nil {
		me.Recoverable = false
	}
	return me
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *MarkupError {
	me := Wrap(err, ErrorTypeInternal, code, message)
	if me != nil {
		me.Recoverable = false
	}
	return me
}

// EnhanceError attaches a file path to an error, keeping any line and column it already has
func EnhanceError(err error, component, filePath string) error {
	if err == nil {
		return nil
	}

	var me *MarkupError
	if errors.As(err, &me) {
		if me.Component == "" {
			me.Component = component
		}
		if me.FilePath == "" {
			me.FilePath = filePath
		}
		return me
	}

	return &MarkupError{
		Type:      ErrorTypeInternal,
		Code:      ErrCodeInternalError,
		Message:   err.Error(),
		Cause:     err,
		Component: component,
		FilePath:  filePath,
	}
}

// GetErrorContext extracts context information from a MarkupError
func GetErrorContext(err error) map[string]interface{} {
	var me *MarkupError
	if errors.As(err, &me) {
		context := make(map[string]interface{})
		for k, v := range me.Context {
			context[k] = v
		}
		if me.Component != "" {
			context["component"] = me.Component
		}
		if me.FilePath != "" {
			context["file"] = me.FilePath
		}
		if me.Line > 0 {
			context["line"] = me.Line
			if me.Column > 0 {
				context["column"] = me.Column
			}
		}
		context["type"] = string(me.Type)
		context["code"] = me.Code
		context["recoverable"] = me.Recoverable
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// CollectErrors drops nil entries
func CollectErrors(errs ...error) []error {
	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}
	return collected
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	nonNilErrs := CollectErrors(errs...)
	if len(nonNilErrs) == 0 {
		return nil
	}
	if len(nonNilErrs) == 1 {
		return nonNilErrs[0]
	}

	messages := make([]string, 0, len(nonNilErrs))
	for _, err := range nonNilErrs {
		messages = append(messages, err.Error())
	}

	return &MarkupError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeMultipleErrors,
		Message: fmt.Sprintf("multiple errors occurred: %d errors", len(nonNilErrs)),
		Cause:   errors.Join(nonNilErrs...),
		Context: map[string]interface{}{
			"error_count": len(nonNilErrs),
			"errors":      messages,
		},
	}
}

// Split returns the individual errors inside a combined or joined error.
// Any other error is returned on its own.
func Split(err error) []error {
	if err == nil {
		return nil
	}
	if me, ok := err.(*MarkupError); ok && me.Code == ErrCodeMultipleErrors {
		err = me.Cause
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, Split(e)...)
		}
		return out
	}
	return []error{err}
}

// AsMarkupError returns the first MarkupError in err's chain.
func AsMarkupError(err error) (*MarkupError, bool) {
	var me *MarkupError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
