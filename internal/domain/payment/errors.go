package payment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPaymentPeriod  = errors.New("invalid payment period")
	ErrInvalidFrequency      = errors.New("invalid pay frequency")
	ErrInvalidCompanyID      = errors.New("invalid company id")
	ErrInvalidPaymentRequest = errors.New("invalid payment request")
	ErrEmptyPaymentIDs       = errors.New("at least one payment id is required")
	ErrSettingsNotFound      = errors.New("company payment settings not found")
	ErrEmployeeDataMismatch  = errors.New("employee data does not match shift data")
	ErrDuplicatePayment      = errors.New("payment already exists for this employee and period")
	ErrMissingData           = errors.New("missing payment data")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrAlreadyInStatus       = errors.New("payment already in requested status")
	ErrInvalidTransition     = errors.New("invalid payment status transition")
	ErrConcurrentUpdate      = errors.New("payment status changed concurrently")
	ErrProcessingFailure     = errors.New("unexpected payment processing failure")
)

// ErrorCode identifies a business failure in batch results
type ErrorCode string

const (
	CodeDuplicatePayment       ErrorCode = "DUPLICATE_PAYMENT"
	CodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	CodeMissingData            ErrorCode = "MISSING_DATA"
	CodePaymentNotFound        ErrorCode = "PAYMENT_NOT_FOUND"
	CodeAlreadyInStatus        ErrorCode = "ALREADY_IN_STATUS"
	CodeInvalidTransition      ErrorCode = "INVALID_TRANSITION"
	CodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
	CodeProcessingFailure      ErrorCode = "PROCESSING_FAILURE"
)

// CodeOf maps an error to the failure code reported in batch results.
func CodeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrDuplicatePayment):
		return CodeDuplicatePayment
	case errors.Is(err, ErrInvalidPaymentRequest):
		return CodeValidationFailed
	case errors.Is(err, ErrMissingData):
		return CodeMissingData
	case errors.Is(err, ErrPaymentNotFound):
		return CodePaymentNotFound
	case errors.Is(err, ErrAlreadyInStatus):
		return CodeAlreadyInStatus
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrConcurrentUpdate):
		return CodeConcurrentModification
	default:
		return CodeProcessingFailure
	}
}

// ProcessingError wraps an unexpected failure, keeping the cause for diagnostics.
type ProcessingError struct {
	Op  string
	Err error
}

func NewProcessingError(op string, err error) *ProcessingError {
	return &ProcessingError{Op: op, Err: err}
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func (e *ProcessingError) Is(target error) bool {
	return target == ErrProcessingFailure
}
