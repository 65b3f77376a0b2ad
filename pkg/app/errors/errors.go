// Package errors contains helper functions and types to work with errors
package errors

import (
	"errors"
	"net/http"
)

// Category defines error category
type Category int

const (
	// CategoryNoError means the operation completed without error.
	CategoryNoError Category = iota
	// CategoryValidation The caller supplied invalid data: non-positive amount,
	// missing recipient, expired deadline, malformed token address and the like.
	CategoryValidation
	// CategoryNotConnected No wallet session is available for submission.
	CategoryNotConnected
	// CategoryUnknownChain The requested chain id is not in the registry.
	CategoryUnknownChain
	// CategoryUnsupportedChain A chain pair failed validation (unknown member or self-bridge).
	CategoryUnsupportedChain
	// CategoryNotFound The requested order does not exist.
	CategoryNotFound
	// CategoryInvalidTransition The requested status change is not a legal edge
	// from the order's current status.
	CategoryInvalidTransition
	// CategoryTerminalState The order is already Completed or Failed and immutable.
	CategoryTerminalState
	// CategorySubmissionFailure The submission collaborator rejected the transaction.
	CategorySubmissionFailure
	// CategoryConfirmationTimeout Confirmation did not arrive within the step timeout.
	CategoryConfirmationTimeout
	// CategoryReverted The submitted transaction reverted on chain.
	CategoryReverted
	// CategoryExpired The order's deadline elapsed before the operation could run.
	CategoryExpired
	// CategoryInternal The service failed in an unexpected way.
	CategoryInternal
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "CategoryValidation"
	case CategoryNotConnected:
		return "CategoryNotConnected"
	case CategoryUnknownChain:
		return "CategoryUnknownChain"
	case CategoryUnsupportedChain:
		return "CategoryUnsupportedChain"
	case CategoryNotFound:
		return "CategoryNotFound"
	case CategoryInvalidTransition:
		return "CategoryInvalidTransition"
	case CategoryTerminalState:
		return "CategoryTerminalState"
	case CategorySubmissionFailure:
		return "CategorySubmissionFailure"
	case CategoryConfirmationTimeout:
		return "CategoryConfirmationTimeout"
	case CategoryReverted:
		return "CategoryReverted"
	case CategoryExpired:
		return "CategoryExpired"
	default:
		return "CategoryInternal"
	}
}

// ServiceError represents service specific type that
// is used all over the services.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category == cat {
		return true
	}
	return false
}

// Reason returns the short failure reason recorded on orders for the error,
// or the empty string for nil errors.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}

// ValidationError returns an error with category Validation.
// The message provided is returned to the user; err is logged.
func ValidationError(err error, message string) error {
	if err == nil {
		err = errors.New("validation failed: " + message)
	}
	return &ServiceError{
		Category: CategoryValidation,
		Message:  message,
		Err:      err,
	}
}

// NotConnectedError returns an error with category NotConnected
func NotConnectedError(err error) error {
	if err == nil {
		err = errors.New("wallet not connected")
	}
	return &ServiceError{
		Category: CategoryNotConnected,
		Message:  "wallet not connected",
		Err:      err,
	}
}

// UnknownChainError returns an error with category UnknownChain
func UnknownChainError(chainID string) error {
	return &ServiceError{
		Category: CategoryUnknownChain,
		Message:  "unknown chain: " + chainID,
		Err:      errors.New("unknown chain: " + chainID),
	}
}

// UnsupportedChainError returns an error with category UnsupportedChain
func UnsupportedChainError(err error, message string) error {
	if err == nil {
		err = errors.New("unsupported chain: " + message)
	}
	return &ServiceError{
		Category: CategoryUnsupportedChain,
		Message:  message,
		Err:      err,
	}
}

// NotFoundError returns an error with category NotFound
func NotFoundError(err error, message string) error {
	if err == nil {
		err = errors.New("not found: " + message)
	}
	return &ServiceError{
		Category: CategoryNotFound,
		Message:  message,
		Err:      err,
	}
}

// InvalidTransitionError returns an error with category InvalidTransition
func InvalidTransitionError(err error, message string) error {
	if err == nil {
		err = errors.New("invalid transition: " + message)
	}
	return &ServiceError{
		Category: CategoryInvalidTransition,
		Message:  message,
		Err:      err,
	}
}

// TerminalStateError returns an error with category TerminalState
func TerminalStateError(message string) error {
	return &ServiceError{
		Category: CategoryTerminalState,
		Message:  message,
		Err:      errors.New("terminal state: " + message),
	}
}

// SubmissionError returns an error with category SubmissionFailure
func SubmissionError(err error) error {
	if err == nil {
		err = errors.New("submission rejected")
	}
	return &ServiceError{
		Category: CategorySubmissionFailure,
		Message:  "transaction submission rejected",
		Err:      err,
	}
}

// TimeoutError returns an error with category ConfirmationTimeout
func TimeoutError(message string) error {
	return &ServiceError{
		Category: CategoryConfirmationTimeout,
		Message:  message,
		Err:      errors.New("confirmation timeout: " + message),
	}
}

// RevertedError returns an error with category Reverted
func RevertedError(message string) error {
	return &ServiceError{
		Category: CategoryReverted,
		Message:  message,
		Err:      errors.New("reverted: " + message),
	}
}

// ExpiredError returns an error with category Expired
func ExpiredError(message string) error {
	return &ServiceError{
		Category: CategoryExpired,
		Message:  message,
		Err:      errors.New("expired: " + message),
	}
}

// InternalError wraps an unclassified failure, retaining the diagnostic detail.
// The message sent to the user is "Internal Server Error".
func InternalError(err error) error {
	if err == nil {
		err = errors.New("internal server error")
	}
	return &ServiceError{
		Category: CategoryInternal,
		Message:  "Internal Server Error",
		Err:      err,
	}
}

// StatusCode returns the HTTP status code for the error category
func (err ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotConnected:
		return http.StatusUnauthorized
	case CategoryUnknownChain, CategoryNotFound:
		return http.StatusNotFound
	case CategoryUnsupportedChain:
		return http.StatusUnprocessableEntity
	case CategoryInvalidTransition, CategoryTerminalState:
		return http.StatusConflict
	case CategorySubmissionFailure:
		return http.StatusBadGateway
	case CategoryConfirmationTimeout:
		return http.StatusGatewayTimeout
	case CategoryReverted, CategoryExpired:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
