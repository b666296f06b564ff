package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrCompanyIDRequired):
		Forbidden(w, "Company ID is required")
	case errors.Is(err, auth.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")

	// Payment domain errors
	case errors.Is(err, payment.ErrSettingsNotFound):
		NotFound(w, "Company payment settings not found")
	case errors.Is(err, payment.ErrPaymentNotFound):
		NotFound(w, "Payment not found")
	case errors.Is(err, payment.ErrInvalidPaymentPeriod),
		errors.Is(err, payment.ErrInvalidFrequency),
		errors.Is(err, payment.ErrInvalidCompanyID),
		errors.Is(err, payment.ErrInvalidPaymentRequest),
		errors.Is(err, payment.ErrEmptyPaymentIDs):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payment.ErrEmployeeDataMismatch):
		Conflict(w, err.Error())
	case errors.Is(err, payment.ErrDuplicatePayment):
		Conflict(w, "Payment already exists for this employee and period")
	case errors.Is(err, payment.ErrProcessingFailure):
		slog.Error("Payment processing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error: &ErrorDetail{
				Code:    string(payment.CodeProcessingFailure),
				Message: "Payment processing failed",
			},
		})

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
