package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrUnsupportedTypeKind indicates an emitter cannot render a region.
	ErrUnsupportedTypeKind = errors.New("schemac: unsupported type kind")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("schemac: missing configuration")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("schemac: code generation failed")
)

// UnsupportedTypeKindError is returned by an emitter for a region it
// refuses to render rather than emit wrong code.
type UnsupportedTypeKindError struct {
	Language string
	Type     string
	Kind     string
	Reason   string
}

// Error implements the error interface.
func (e *UnsupportedTypeKindError) Error() string {
	var b strings.Builder
	b.WriteString("schemac: ")
	if e.Language != "" {
		b.WriteString(e.Language)
		b.WriteString(" ")
	}
	b.WriteString("cannot render ")
	b.WriteString(e.Kind)
	if e.Type != "" {
		b.WriteString(" ")
		b.WriteString(e.Type)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for UnsupportedTypeKindError.
func (e *UnsupportedTypeKindError) Is(target error) bool {
	return target == ErrUnsupportedTypeKind
}

// NewUnsupportedTypeKindError creates a new UnsupportedTypeKindError.
func NewUnsupportedTypeKindError(language, typeName, kind, reason string) *UnsupportedTypeKindError {
	return &UnsupportedTypeKindError{
		Language: language,
		Type:     typeName,
		Kind:     kind,
		Reason:   reason,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("schemac: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("schemac: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// GenerationError represents a code generation error.
type GenerationError struct {
	Phase   string // "emit", "bundle", "write"
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("schemac: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// IsUnsupportedTypeKind reports whether the error is an UnsupportedTypeKindError.
func IsUnsupportedTypeKind(err error) bool {
	var e *UnsupportedTypeKindError
	return errors.As(err, &e)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
