package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden: resource belongs to another user")
)

// ValidationError collects field-level messages for a rejected input.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when any field failed, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func NewValidationError(field, msg string) error {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// IndexedField names field of the batch item at index, e.g. entries.2.value.
func IndexedField(index int, field string) string {
	return fmt.Sprintf("entries.%d.%s", index, field)
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}

// FieldErrors extracts the field map of a wrapped ValidationError.
func FieldErrors(err error) map[string][]string {
	var validationError *ValidationError
	if errors.As(err, &validationError) {
		return validationError.Fields
	}
	return nil
}
