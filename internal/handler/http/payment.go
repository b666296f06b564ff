package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/cmlabs-hris/hris-payments-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payments-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/validator"
)

const (
	defaultRecentPeriods = 6
	maxRecentPeriods     = 24
)

type PaymentHandler interface {
	// Periods
	ResolvePeriod(w http.ResponseWriter, r *http.Request)
	RecentPeriods(w http.ResponseWriter, r *http.Request)

	// Calculation
	Calculate(w http.ResponseWriter, r *http.Request)

	// Lifecycle
	UpdateStatus(w http.ResponseWriter, r *http.Request)
}

type paymentHandlerImpl struct {
	paymentService payment.Service
}

func NewPaymentHandler(paymentService payment.Service) PaymentHandler {
	return &paymentHandlerImpl{paymentService: paymentService}
}

// ========== PERIODS ==========

func (h *paymentHandlerImpl) ResolvePeriod(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	var req payment.ResolvePeriodRequest
	query := r.URL.Query()
	if date := query.Get("date"); date != "" {
		req.Date = &date
	}
	if raw := query.Get("number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.HandleError(w, validator.ValidationErrors{{Field: "number", Message: "must be a positive integer"}})
			return
		}
		req.Number = &n
	}

	date, err := req.Validate()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	period, err := h.paymentService.ResolvePeriod(r.Context(), date, req.Number, claims.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payment.NewPeriodResponse(period))
}

func (h *paymentHandlerImpl) RecentPeriods(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	count := defaultRecentPeriods
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRecentPeriods {
			response.HandleError(w, validator.ValidationErrors{{
				Field:   "count",
				Message: "must be between 1 and " + strconv.Itoa(maxRecentPeriods),
			}})
			return
		}
		count = n
	}

	periods, err := h.paymentService.RecentPeriods(r.Context(), count, claims.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result := make([]payment.PeriodResponse, 0, len(periods))
	for _, p := range periods {
		result = append(result, payment.NewPeriodResponse(p))
	}
	response.Success(w, result)
}

// ========== CALCULATION ==========

func (h *paymentHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	var req payment.CalculatePaymentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.paymentService.CalculatePayments(r.Context(), req.PeriodNumber, claims.CompanyID, claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.FailureCount > 0 {
		response.MultiStatus(w, "Some payments could not be calculated", result)
		return
	}
	response.SuccessWithMessage(w, "Payments calculated", result)
}

// ========== LIFECYCLE ==========

func (h *paymentHandlerImpl) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	var req payment.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.paymentService.UpdatePaymentStatus(r.Context(), req, claims.CompanyID, claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.FailureCount > 0 {
		response.MultiStatus(w, "Some payments could not be updated", result)
		return
	}
	response.SuccessWithMessage(w, "Payment status updated", result)
}
