// Package errors defines the structured error taxonomy shared across the
// core: validation, invariant, concurrency, storage and contract failures
// (spec §7). Every operation-facing error can be rendered as the
// {kind, message, correlation_id} payload the external caller sees.
package errors

import (
	"fmt"
)

// ErrorType classifies a failure for retry policy and HTTP mapping.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeInvariant   ErrorType = "invariant"
	ErrorTypeConcurrency ErrorType = "concurrency"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeContract    ErrorType = "contract"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeInternal    ErrorType = "internal"
)

// Retryable reports whether errors of this type are ever safe to retry.
// Validation, invariant and not-found failures are never retried (spec §7);
// concurrency and storage failures are retried with bounded backoff;
// contract failures are routed to the review queue instead of retried.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeConcurrency, ErrorTypeStorage:
		return true
	default:
		return false
	}
}

// CoreError is the structured error type returned by every public
// operation in the core. It carries enough information to build the
// external {kind, message, correlation_id} payload without leaking
// internals.
type CoreError struct {
	Type          ErrorType
	Message       string
	Details       string
	CorrelationID string
	Cause         error
}

// New creates a CoreError of the given type.
func New(t ErrorType, message string) *CoreError {
	return &CoreError{Type: t, Message: message}
}

// Newf creates a CoreError with a formatted message.
func Newf(t ErrorType, format string, args ...interface{}) *CoreError {
	return New(t, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error as a CoreError of the given type.
func Wrap(cause error, t ErrorType, message string) *CoreError {
	return &CoreError{Type: t, Message: message, Cause: cause}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(cause error, t ErrorType, format string, args ...interface{}) *CoreError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches extra detail to the error, mutating in place.
func (e *CoreError) WithDetails(details string) *CoreError {
	e.Details = details
	return e
}

// WithDetailsf attaches formatted detail to the error.
func (e *CoreError) WithDetailsf(format string, args ...interface{}) *CoreError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCorrelationID attaches the audit correlation id.
func (e *CoreError) WithCorrelationID(id string) *CoreError {
	e.CorrelationID = id
	return e
}

// Predefined constructors mirroring common failure modes from spec §4.2.

func NewValidationError(message string) *CoreError {
	return New(ErrorTypeValidation, message)
}

func NewInvariantError(message string) *CoreError {
	return New(ErrorTypeInvariant, message)
}

func NewNotFoundError(kind string) *CoreError {
	return Newf(ErrorTypeNotFound, "%s not found", kind)
}

func NewDuplicateIdentifierError(idType, value string) *CoreError {
	return Newf(ErrorTypeInvariant, "duplicate identifier %s=%s", idType, value).
		WithDetails("DUPLICATE_IDENTIFIER")
}

func NewConcurrencyConflictError(target string) *CoreError {
	return Newf(ErrorTypeConcurrency, "concurrent modification of %s", target).
		WithDetails("CONCURRENCY_CONFLICT")
}

func NewStorageError(operation string, cause error) *CoreError {
	return Wrapf(cause, ErrorTypeStorage, "storage operation failed: %s", operation)
}

func NewContractError(message string) *CoreError {
	return New(ErrorTypeContract, message)
}

// IsType reports whether err is a CoreError of the given type.
func IsType(err error, t ErrorType) bool {
	ce, ok := err.(*CoreError)
	return ok && ce.Type == t
}

// GetType returns the CoreError's type, or ErrorTypeInternal for any other
// error (including nil-typed non-CoreErrors).
func GetType(err error) ErrorType {
	if ce, ok := err.(*CoreError); ok {
		return ce.Type
	}
	return ErrorTypeInternal
}

// Problem is the external-facing {kind, message, correlation_id} payload
// described in spec §7.
type Problem struct {
	Kind          ErrorType `json:"kind"`
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ToProblem renders err as the external payload. Validation, invariant,
// not-found and contract messages are passed through; every other type is
// replaced with a safe generic message so internals never leak to the
// caller.
func ToProblem(err error, correlationID string) Problem {
	ce, ok := err.(*CoreError)
	if !ok {
		return Problem{Kind: ErrorTypeInternal, Message: "an unexpected error occurred", CorrelationID: correlationID}
	}
	msg := ce.Message
	switch ce.Type {
	case ErrorTypeValidation, ErrorTypeInvariant, ErrorTypeNotFound, ErrorTypeContract:
		// safe to pass through, these never contain internals
	default:
		msg = "an internal error occurred"
	}
	cid := correlationID
	if cid == "" {
		cid = ce.CorrelationID
	}
	return Problem{Kind: ce.Type, Message: msg, CorrelationID: cid}
}

// LogFields renders structured logging fields for err, suitable for
// zap.Any/logrus.WithFields.
func LogFields(err error) map[string]interface{} {
	fields := map[string]interface{}{"error": err.Error()}
	ce, ok := err.(*CoreError)
	if !ok {
		return fields
	}
	fields["error_type"] = string(ce.Type)
	if ce.Details != "" {
		fields["error_details"] = ce.Details
	}
	if ce.Cause != nil {
		fields["underlying_error"] = ce.Cause.Error()
	}
	if ce.CorrelationID != "" {
		fields["correlation_id"] = ce.CorrelationID
	}
	return fields
}

// Chain joins non-nil errors with " -> ", mirroring multi-stage pipeline
// failures (e.g. a resolver batch that hit several independent faults).
// Returns nil if every argument is nil, and the bare error if exactly one
// is non-nil.
func Chain(errs ...error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		msg := nonNil[0].Error()
		for _, e := range nonNil[1:] {
			msg += " -> " + e.Error()
		}
		return fmt.Errorf("%s", msg)
	}
}
