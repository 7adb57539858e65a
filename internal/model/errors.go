package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation marks a malformed or out-of-range payload.
	ErrValidation = errors.New("validation failed")

	// ErrMissingAnswer marks an answer set that does not cover every scored question.
	ErrMissingAnswer = errors.New("missing answer")

	// ErrReferenceDataUnavailable marks a schema, weight table or identity-average
	// table that could not be loaded.
	ErrReferenceDataUnavailable = errors.New("reference data unavailable")

	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrStorage marks an insert or query failure in the result store.
	ErrStorage = errors.New("storage failure")
)

// ValidationError collects every problem found in one payload.
type ValidationError struct {
	// Entity names what was being validated, e.g. "filterset[2]".
	Entity string

	// Errors holds one message per problem.
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %s", e.Entity, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AddError appends a message.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors reports whether any message was recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates an empty ValidationError for entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity}
}

// ErrOrNil returns e when it holds messages and nil otherwise.
func (e *ValidationError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// MissingAnswerError lists the scored questions absent from an answer set.
type MissingAnswerError struct {
	QuestionIDs []int
}

func (e *MissingAnswerError) Error() string {
	return fmt.Sprintf("missing answers for questions %v", e.QuestionIDs)
}

func (e *MissingAnswerError) Unwrap() error { return ErrMissingAnswer }

// StorageError wraps a failed store operation. It is always retryable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// Retryable reports whether the caller may retry the operation.
func (e *StorageError) Retryable() bool { return true }

// NewStorageError wraps err for op. A nil err stays nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ReferenceDataError names the reference resource that failed to load.
type ReferenceDataError struct {
	Resource string
	Err      error
}

func (e *ReferenceDataError) Error() string {
	return fmt.Sprintf("reference data %s unavailable: %v", e.Resource, e.Err)
}

func (e *ReferenceDataError) Unwrap() []error { return []error{ErrReferenceDataUnavailable, e.Err} }

// FromValidator converts validator.ValidationErrors into a ValidationError.
// Other errors are returned unchanged.
func FromValidator(entity string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := NewValidationError(entity)
	for _, fe := range verrs {
		ve.AddError(describeFieldError(fe))
	}
	return ve
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lt", "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID, got %v", field, fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
