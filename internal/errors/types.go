package errors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeStructural ErrorType = "structural"
	ErrorTypeBinding    ErrorType = "binding"
	ErrorTypeEvaluation ErrorType = "evaluation"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// MarkupError is a structured error type with context.
type MarkupError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *MarkupError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" || e.Line > 0 {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *MarkupError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *MarkupError) Is(target error) bool {
	var t *MarkupError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *MarkupError) WithContext(key string, value interface{}) *MarkupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *MarkupError) WithLocation(filePath string, line, column int) *MarkupError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithComponent adds component context.
func (e *MarkupError) WithComponent(component string) *MarkupError {
	e.Component = component

	return e
}

// Error creation functions

// NewStructuralError creates a structural (well-formedness) error.
func NewStructuralError(code, message string) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeStructural,
		Code:    code,
		Message: message,
	}
}

// NewBindingError creates a component binding error.
func NewBindingError(code, message string) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeBinding,
		Code:    code,
		Message: message,
	}
}

// NewEvaluationError creates an error for a failed embedded expression.
func NewEvaluationError(code, message string, cause error) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeEvaluation,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *MarkupError {
	return &MarkupError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *MarkupError {
	return &MarkupError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var me *MarkupError
	if errors.As(err, &me) {
		return me.Recoverable
	}

	return false
}

// IsStructuralError reports whether err is a markup well-formedness error.
func IsStructuralError(err error) bool {
	return HasErrorType(err, ErrorTypeStructural)
}

// IsBindingError reports whether err is a component binding error.
func IsBindingError(err error) bool {
	return HasErrorType(err, ErrorTypeBinding)
}

// IsEvaluationError reports whether err came from evaluating an embedded expression.
func IsEvaluationError(err error) bool {
	return HasErrorType(err, ErrorTypeEvaluation)
}

// HasErrorType checks whether any MarkupError in the chain, or in any of
// the errors combined into it, has the given type.
func HasErrorType(err error, errType ErrorType) bool {
	return anyMarkupError(err, func(me *MarkupError) bool { return me.Type == errType })
}

// HasErrorCode checks whether any MarkupError in the chain, or in any of
// the errors combined into it, has the given code.
func HasErrorCode(err error, code string) bool {
	return anyMarkupError(err, func(me *MarkupError) bool { return me.Code == code })
}

func anyMarkupError(err error, match func(*MarkupError) bool) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if anyMarkupError(e, match) {
				return true
			}
		}
		return false
	}

	var me *MarkupError
	if !errors.As(err, &me) {
		return false
	}
	return match(me) || anyMarkupError(me.Cause, match)
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error with its context. Errors the user can fix in a
// template are logged as warnings.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var me *MarkupError
	if !errors.As(err, &me) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	fields := contextFields(GetErrorContext(err))
	switch {
	case IsRecoverable(err), me.Type == ErrorTypeStructural, me.Type == ErrorTypeBinding:
		h.logger.Warn(ctx, err, "Template rejected", fields...)
	default:
		h.logger.Error(ctx, err, "Error occurred", fields...)
	}
}

// contextFields flattens ctx into sorted key/value pairs.
func contextFields(ctx map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		fields = append(fields, k, ctx[k])
	}
	return fields
}

// Common error codes.
const (
	ErrCodeMismatchedTag     = "ERR_MISMATCHED_TAG"
	ErrCodeUnterminated      = "ERR_UNTERMINATED"
	ErrCodeUnexpectedClose   = "ERR_UNEXPECTED_CLOSE"
	ErrCodeSelfClosingClosed = "ERR_SELF_CLOSING_CLOSED"
	ErrCodeMalformedAttr     = "ERR_MALFORMED_ATTRIBUTE"
	ErrCodeMalformedTag      = "ERR_MALFORMED_TAG"
	ErrCodeUnknownProp       = "ERR_UNKNOWN_PROP"
	ErrCodeMissingProp       = "ERR_MISSING_PROP"
	ErrCodeUnknownComponent  = "ERR_UNKNOWN_COMPONENT"
	ErrCodeDuplicateName     = "ERR_DUPLICATE_COMPONENT"
	ErrCodeRegistryFrozen    = "ERR_REGISTRY_FROZEN"
	ErrCodeReservedName      = "ERR_RESERVED_NAME"
	ErrCodeDependencyCycle   = "ERR_DEPENDENCY_CYCLE"
	ErrCodeInvalidExpression = "ERR_INVALID_EXPRESSION"
	ErrCodeEvalFailed        = "ERR_EVAL_FAILED"
	ErrCodeInvalidPath       = "ERR_INVALID_PATH"
	ErrCodeFileNotFound      = "ERR_FILE_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInternalError     = "ERR_INTERNAL"
	ErrCodeMultipleErrors    = "ERR_MULTIPLE_ERRORS"
)

// Helper functions for common errors

// ErrMismatchedTag reports a closing tag that does not match its opening tag.
func ErrMismatchedTag(open, close string) *MarkupError {
	return NewStructuralError(
		ErrCodeMismatchedTag,
		fmt.Sprintf("closing tag </%s> doesn't match opening tag <%s>", close, open),
	).WithContext("tag", open).WithContext("closing_tag", close)
}

// ErrUnterminated reports an element, fragment or other construct that never closes.
func ErrUnterminated(what, tag string) *MarkupError {
	msg := "unterminated " + what
	if tag != "" {
		msg += " <" + tag + ">"
	}
	return NewStructuralError(ErrCodeUnterminated, msg).WithContext("tag", tag)
}

// ErrUnexpectedClose reports a closing tag with no matching open element.
func ErrUnexpectedClose(tag string) *MarkupError {
	return NewStructuralError(
		ErrCodeUnexpectedClose,
		fmt.Sprintf("unexpected closing tag </%s>", tag),
	).WithContext("tag", tag)
}

// ErrSelfClosingClosed reports a self-closing element that also carries a closing tag.
func ErrSelfClosingClosed(tag string) *MarkupError {
	return NewStructuralError(
		ErrCodeSelfClosingClosed,
		fmt.Sprintf("self-closing tag <%s /> must not have a closing tag", tag),
	).WithContext("tag", tag)
}

// ErrMalformedAttr reports bad attribute syntax on a tag.
func ErrMalformedAttr(tag, attr, reason string) *MarkupError {
	return NewStructuralError(
		ErrCodeMalformedAttr,
		fmt.Sprintf("malformed attribute %q on <%s>: %s", attr, tag, reason),
	).WithContext("tag", tag).WithContext("attribute", attr)
}

// ErrMalformedTag reports bad tag syntax.
func ErrMalformedTag(tag, reason string) *MarkupError {
	return NewStructuralError(
		ErrCodeMalformedTag,
		fmt.Sprintf("malformed tag <%s>: %s", tag, reason),
	).WithContext("tag", tag)
}

// ErrUnknownProp reports an attribute that the component does not declare.
func ErrUnknownProp(component, prop string) *MarkupError {
	return NewBindingError(
		ErrCodeUnknownProp,
		fmt.Sprintf("unknown property %q", prop),
	).WithComponent(component).WithContext("prop", prop)
}

// ErrMissingProp reports a required property that was not supplied.
func ErrMissingProp(component, prop string) *MarkupError {
	return NewBindingError(
		ErrCodeMissingProp,
		fmt.Sprintf("missing required property %q", prop),
	).WithComponent(component).WithContext("prop", prop)
}

// ErrUnknownComponent reports a custom tag with no registered component.
func ErrUnknownComponent(name string) *MarkupError {
	return NewBindingError(
		ErrCodeUnknownComponent,
		fmt.Sprintf("unknown component <%s>", name),
	).WithComponent(name)
}
