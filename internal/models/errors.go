package models

import (
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError indicates the requested entity does not exist.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a NotFoundError for a resource
func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ValidationError indicates malformed input, rejected before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictKind identifies which scarce resource was exhausted
type ConflictKind string

const (
	ConflictInsufficientSeats   ConflictKind = "insufficient_seats"
	ConflictInsufficientBalance ConflictKind = "insufficient_balance"
	ConflictUsageLimitReached   ConflictKind = "usage_limit_reached"
	ConflictOverRelease         ConflictKind = "over_release"
	ConflictLimitExceeded       ConflictKind = "spend_limit_exceeded"
	ConflictSeatsUnavailable    ConflictKind = "seats_unavailable"
)

// ConflictError indicates a scarce resource (seats, balance, coupon uses)
// could not satisfy the request.
type ConflictError struct {
	Kind    ConflictKind
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError creates a ConflictError of the given kind
func NewConflictError(kind ConflictKind, message string) *ConflictError {
	return &ConflictError{Kind: kind, Message: message}
}

// ForbiddenError indicates an ownership or role check failed.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// NewForbiddenError creates a ForbiddenError
func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

// StateConflictError indicates the operation is not valid for the entity's
// current lifecycle state (e.g. confirming a ticket that already failed).
type StateConflictError struct {
	Entity       string
	CurrentState string
	Message      string
}

func (e *StateConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is not in a valid state for this operation (current: %s)", e.Entity, e.CurrentState)
}

// NewStateConflictError creates a StateConflictError
func NewStateConflictError(entity, currentState string) *StateConflictError {
	return &StateConflictError{Entity: entity, CurrentState: currentState}
}

// ExternalServiceError indicates the payment gateway was unreachable or
// rejected the request.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError wraps a gateway failure
func NewExternalServiceError(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Err: err}
}

// ErrInvalidPin marks a failed wallet PIN check. Callers match on it to
// record the failed attempt for fraud monitoring.
var ErrInvalidPin = errors.New("wallet pin is incorrect")

// ErrorStatus maps a domain error to its HTTP status code.
// Unknown errors map to 500.
func ErrorStatus(err error) int {
	var notFound *NotFoundError
	var validation *ValidationError
	var conflict *ConflictError
	var forbidden *ForbiddenError
	var stateConflict *StateConflictError
	var external *ExternalServiceError

	switch {
	case errors.Is(err, ErrInvalidPin):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusBadRequest
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &stateConflict):
		return http.StatusConflict
	case errors.As(err, &external):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
