package fundme

import (
	"errors"
	"fmt"

	"github.com/xraph/fundme/oracle"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("fundme: not found")
	ErrAlreadyExists = errors.New("fundme: already exists")
	ErrInvalidInput  = errors.New("fundme: invalid input")

	// Campaign errors
	ErrCampaignNotFound = errors.New("fundme: campaign not found")
	ErrInvalidWindow    = errors.New("fundme: window must be a positive number of seconds")
	ErrInvalidOwner     = errors.New("fundme: owner must be a non-zero address")

	// Contribution errors
	ErrWindowClosed      = errors.New("window is close")
	ErrInvalidAmount     = errors.New("fundme: amount must not be negative")
	ErrBelowMinimum      = errors.New("fundme: contribution below minimum")
	ErrOracleUnavailable = errors.New("fundme: price oracle unavailable")

	// Sweep errors
	ErrNotOwner   = errors.New("this function can only be called by owner")
	ErrWindowOpen = errors.New("window is not closed")

	// Store errors
	ErrStoreNotReady   = errors.New("fundme: store not ready")
	ErrStoreClosed     = errors.New("fundme: store is closed")
	ErrMigrationFailed = errors.New("fundme: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("fundme: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "fundme: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("fundme: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCampaignNotFound)
}

// IsRejection returns true if the error is a business-rule rejection of a
// contribution or sweep. Rejections leave no trace in the ledger.
func IsRejection(err error) bool {
	return errors.Is(err, ErrWindowClosed) ||
		errors.Is(err, ErrWindowOpen) ||
		errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrBelowMinimum) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOracleUnavailable) ||
		errors.Is(err, oracle.ErrUnavailable) ||
		errors.Is(err, ErrStoreNotReady)
}
