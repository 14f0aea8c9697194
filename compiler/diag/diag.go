// Package diag holds the diagnostics channel shared by every compiler phase.
//
// Phases append records to a List instead of printing or failing, so the
// caller decides the failure policy.
package diag

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// Severity of a diagnostic.
type Severity uint8

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", s)
	}
}

// Code is a stable diagnostic identifier.
type Code string

// Diagnostic codes.
const (
	EnumVariantConflict    Code = "E002"
	UnresolvedRef          Code = "E004"
	ParseFailure           Code = "E006"
	TypeNameCollision      Code = "E009"
	DuplicateID            Code = "E010"
	AliasOfAlias           Code = "W001"
	ShapeMismatchPrimitive Code = "W002"
	MissingKind            Code = "W003"
	UnsupportedShape       Code = "W004"
	UnknownExtension       Code = "W005"
	ValidatorFinding       Code = "W006"
	AmbiguousUnion         Code = "W007"
	FragmentRef            Code = "I001"
)

// Diagnostic is one finding attached to a schema id or a file path.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Subject  string
	Message  string
	// Rule names the lint rule that produced the record, if any.
	Rule string
}

// String formats the diagnostic on one line.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s[%s] %s: %s", d.Severity, d.Code, d.Subject, d.Message)
}

// Compare orders diagnostics by subject, then code, then message.
func Compare(a, b Diagnostic) int {
	return cmp.Or(
		cmp.Compare(a.Subject, b.Subject),
		cmp.Compare(a.Code, b.Code),
		cmp.Compare(a.Message, b.Message),
	)
}

// List accumulates diagnostics. It is safe for concurrent use.
type List struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	l.mu.Lock()
	l.items = append(l.items, d)
	l.mu.Unlock()
}

// Errorf appends an error-severity diagnostic.
func (l *List) Errorf(code Code, subject, format string, args ...any) {
	l.Add(Diagnostic{Severity: Error, Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends a warning-severity diagnostic.
func (l *List) Warnf(code Code, subject, format string, args ...any) {
	l.Add(Diagnostic{Severity: Warning, Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

// Infof appends an info-severity diagnostic.
func (l *List) Infof(code Code, subject, format string, args ...any) {
	l.Add(Diagnostic{Severity: Info, Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

// Merge appends every record of other.
func (l *List) Merge(other []Diagnostic) {
	l.mu.Lock()
	l.items = append(l.items, other...)
	l.mu.Unlock()
}

// Len returns the number of records.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Sorted returns a sorted copy of the records. Phases that run in parallel
// append in nondeterministic order, so callers should prefer this.
func (l *List) Sorted() []Diagnostic {
	l.mu.Lock()
	out := slices.Clone(l.items)
	l.mu.Unlock()
	slices.SortStableFunc(out, Compare)
	return out
}

// Count returns the number of records at the given severity.
func (l *List) Count(s Severity) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, d := range l.items {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-severity record exists.
func (l *List) HasErrors() bool {
	return l.Count(Error) > 0
}

// ByCode returns the sorted records with the given code.
func (l *List) ByCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.Sorted() {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}
