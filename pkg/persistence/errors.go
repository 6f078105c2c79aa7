// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrAutomationNotFound indicates an automation was not found by the given identifier.
	ErrAutomationNotFound = errors.New("automation not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrDuplicateExecution indicates an execution with the same unique
	// event id already exists. Callers treat this as an idempotent no-op.
	ErrDuplicateExecution = errors.New("execution already exists for event")

	// ErrFunnelNotFound indicates a funnel was not found by the given identifier.
	ErrFunnelNotFound = errors.New("funnel not found")

	// ErrJourneyNotFound indicates a journey was not found by the given identifier.
	ErrJourneyNotFound = errors.New("journey not found")

	// ErrStepNotFound indicates a funnel step was not found by the given identifier.
	ErrStepNotFound = errors.New("funnel step not found")

	// ErrConversionNotFound indicates an affiliate conversion was not found.
	ErrConversionNotFound = errors.New("conversion not found")

	// ErrAffiliateNotFound indicates an affiliate account was not found.
	ErrAffiliateNotFound = errors.New("affiliate not found")
)

// ExecutionError wraps execution-related errors with additional context.
type ExecutionError struct {
	Op          string // Operation being performed (e.g., "Create", "Resume", "Complete")
	ExecutionID string // Execution ID if applicable
	Err         error  // Underlying error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates a new execution error with context.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{
		Op:          op,
		ExecutionID: executionID,
		Err:         err,
	}
}

// ConversionError wraps conversion-related errors with additional context.
type ConversionError struct {
	Op           string
	ConversionID string
	Err          error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s operation failed for conversion %s: %v", e.Op, e.ConversionID, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func (e *ConversionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsDuplicateExecution checks if an error indicates an idempotency-key collision.
func IsDuplicateExecution(err error) bool {
	return errors.Is(err, ErrDuplicateExecution)
}

// IsNotFound checks if an error indicates any missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrFunnelNotFound) ||
		errors.Is(err, ErrJourneyNotFound) ||
		errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, ErrConversionNotFound) ||
		errors.Is(err, ErrAffiliateNotFound)
}
