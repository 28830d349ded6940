package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when a collaborator call (parsing,
	// embedding, generation, resolution) fails.
	ErrExternalService = errors.New("external service error")
	// ErrNoActiveDocument is returned when no paper has been uploaded yet.
	ErrNoActiveDocument = errors.New("no paper has been uploaded yet")
	// ErrNotIndexed is returned when a reference's content is requested
	// before the reference has been processed.
	ErrNotIndexed = errors.New("reference is not indexed")
	// ErrStaleEpoch rejects background writes that belong to a paper that
	// has since been replaced. Never user-visible.
	ErrStaleEpoch = errors.New("stale document epoch")
)

// ValidationError represents a validation error with a field name.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Is makes ValidationError match the ErrInvalidInput sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
