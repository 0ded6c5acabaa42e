package domain

import (
	"fmt"
	"strings"
)

// Violation is a single failed field constraint.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated constraint, not just the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: message})
}

// Err returns the error or nil when nothing was violated. Always return
// through Err, never the struct pointer itself, to avoid a non-nil interface
// wrapping an empty error.
func (e *ValidationError) Err() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

// NotFoundError reports that an id or slug did not resolve.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// InvalidQueryError reports malformed search or geo parameters.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return "invalid query: " + e.Reason
}

// ConflictError reports a uniqueness violation surfaced by the document
// store at write time. The slug pre-check is read-then-write and two
// concurrent creates can both pass it; the unique index is the backstop.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s %q already exists", e.Field, e.Value)
}
