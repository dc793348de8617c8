// Package rerrors defines the engine's error taxonomy. Steps and the
// Executor wrap lower-level errors in one of these kinds rather than
// returning bare fmt.Errorf strings, so callers can distinguish failure
// classes with errors.As instead of parsing messages.
package rerrors

import (
	"errors"
	"fmt"
)

// Kind identifies which bucket of the taxonomy an error belongs to.
type Kind string

const (
	KindInvalidRecipe   Kind = "invalid_recipe"
	KindUnknownStepType Kind = "unknown_step_type"
	KindConfigError     Kind = "config_error"
	KindTemplateError   Kind = "template_error"
	KindUnknownKey      Kind = "unknown_key"
	KindFileNotFound    Kind = "file_not_found"
	KindIOError         Kind = "io_error"
	KindLLMError        Kind = "llm_error"
	KindMCPError        Kind = "mcp_error"
	KindCancelled       Kind = "cancelled"
)

// Error is the concrete error type carried through the engine. Field is an
// optional extra identifier: a key name, a step type, a file path, a schema
// field path.
type Error struct {
	Kind  Kind
	Msg   string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, field string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Field: field}
}

func wrap(kind Kind, field string, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Field: field, Err: err}
}

func InvalidRecipe(format string, args ...interface{}) *Error {
	return newf(KindInvalidRecipe, "", format, args...)
}

func UnknownStepType(stepType string) *Error {
	return newf(KindUnknownStepType, stepType, "no step registered for type %q", stepType)
}

func ConfigError(stepType string, format string, args ...interface{}) *Error {
	return newf(KindConfigError, stepType, format, args...)
}

func TemplateError(fragment string, err error) *Error {
	return wrap(KindTemplateError, fragment, err, "invalid template: %s", fragment)
}

func UnknownKey(key string) *Error {
	return newf(KindUnknownKey, key, "unknown context key %q", key)
}

func FileNotFound(path string, err error) *Error {
	return wrap(KindFileNotFound, path, err, "file not found: %s", path)
}

func IOError(path string, err error) *Error {
	return wrap(KindIOError, path, err, "i/o error: %s", path)
}

func LLMError(field string, err error, format string, args ...interface{}) *Error {
	return wrap(KindLLMError, field, err, format, args...)
}

func MCPError(field string, err error, format string, args ...interface{}) *Error {
	return wrap(KindMCPError, field, err, format, args...)
}

func Cancelled(stepName string) *Error {
	return newf(KindCancelled, stepName, "execution cancelled")
}

// Wrap attaches stepType to err's message without changing its Kind. Used
// by the Executor to name which step a propagating error came from; the
// underlying failure class stays visible to errors.As.
func Wrap(stepType string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: e.Kind, Msg: fmt.Sprintf("%s: %s", stepType, e.Msg), Field: e.Field, Err: err}
	}
	return fmt.Errorf("%s: %w", stepType, err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
