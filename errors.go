package schemac

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for the compilation pipeline.
var (
	// ErrParse is returned when a schema document is not valid JSON or YAML.
	ErrParse = errors.New("schemac: parse failure")

	// ErrUnresolvedRef is returned when a $ref names no document in the corpus.
	ErrUnresolvedRef = errors.New("schemac: unresolved reference")

	// ErrNameCollision is returned when two schemas still share one identifier
	// after disambiguation.
	ErrNameCollision = errors.New("schemac: name collision")

	// ErrCycleInvariant is returned when cycle analysis leaves a cycle made of
	// direct edges only. It indicates a defect, not bad input.
	ErrCycleInvariant = errors.New("schemac: cycle invariant violated")
)

// ParseError reports a document that could not be parsed.
type ParseError struct {
	Path  string
	Cause error
}

// Error returns the error string.
func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("schemac: parse ")
	b.WriteString(e.Path)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches ParseError.
func (e *ParseError) Is(err error) bool {
	return err == ErrParse
}

// NewParseError returns a new ParseError for the given file.
func NewParseError(path string, cause error) *ParseError {
	return &ParseError{Path: path, Cause: cause}
}

// IsParseError returns true if the error is a ParseError.
func IsParseError(err error) bool {
	if err == nil {
		return false
	}
	var e *ParseError
	return errors.As(err, &e) || errors.Is(err, ErrParse)
}

// UnresolvedRefError reports a reference with no matching schema.
type UnresolvedRefError struct {
	From string
	Ref  string
}

// Error returns the error string.
func (e *UnresolvedRefError) Error() string {
	return fmt.Sprintf("schemac: %s references unknown schema %q", e.From, e.Ref)
}

// Is reports whether the target error matches UnresolvedRefError.
func (e *UnresolvedRefError) Is(err error) bool {
	return err == ErrUnresolvedRef
}

// NewUnresolvedRefError returns a new UnresolvedRefError.
func NewUnresolvedRefError(from, ref string) *UnresolvedRefError {
	return &UnresolvedRefError{From: from, Ref: ref}
}

// NameCollisionError reports two schemas resolving to the same identifier.
type NameCollisionError struct {
	Name  string
	PathA string
	PathB string
}

// Error returns the error string.
func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("schemac: name %q is claimed by both %s and %s", e.Name, e.PathA, e.PathB)
}

// Is reports whether the target error matches NameCollisionError.
func (e *NameCollisionError) Is(err error) bool {
	return err == ErrNameCollision
}

// NewNameCollisionError returns a new NameCollisionError. The paths are
// stored in lexical order so the message is stable.
func NewNameCollisionError(name, a, b string) *NameCollisionError {
	if b < a {
		a, b = b, a
	}
	return &NameCollisionError{Name: name, PathA: a, PathB: b}
}

// IsNameCollision returns true if the error is a NameCollisionError.
func IsNameCollision(err error) bool {
	if err == nil {
		return false
	}
	var e *NameCollisionError
	return errors.As(err, &e) || errors.Is(err, ErrNameCollision)
}

// CycleInvariantError reports a strongly connected component that still
// contains a cycle after indirection was assigned.
type CycleInvariantError struct {
	Group   int
	Members []string
	Message string
}

// Error returns the error string.
func (e *CycleInvariantError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schemac: cycle group %d", e.Group)
	if len(e.Members) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Members, ", "))
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target error matches CycleInvariantError.
func (e *CycleInvariantError) Is(err error) bool {
	return err == ErrCycleInvariant
}

// NewCycleInvariantError returns a new CycleInvariantError.
func NewCycleInvariantError(group int, members []string, message string) *CycleInvariantError {
	return &CycleInvariantError{Group: group, Members: members, Message: message}
}

// IsCycleInvariant returns true if the error is a CycleInvariantError.
func IsCycleInvariant(err error) bool {
	if err == nil {
		return false
	}
	var e *CycleInvariantError
	return errors.As(err, &e) || errors.Is(err, ErrCycleInvariant)
}
