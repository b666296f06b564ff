package payment

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== PERIOD DTOs ==========

type ResolvePeriodRequest struct {
	Date   *string `json:"date,omitempty"`
	Number *int    `json:"number,omitempty"`
}

// Validate parses the optional date. Supplying both a date and a number is rejected.
func (r *ResolvePeriodRequest) Validate() (*time.Time, error) {
	var errs validator.ValidationErrors

	if r.Date != nil && r.Number != nil {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "cannot be combined with number"})
	}
	if r.Number != nil && *r.Number <= 0 {
		errs = append(errs, validator.ValidationError{Field: "number", Message: "must be a positive integer"})
	}
	if r.Number != nil && *r.Number > MaxPeriodNumber {
		errs = append(errs, validator.ValidationError{Field: "number", Message: fmt.Sprintf("must be at most %d", MaxPeriodNumber)})
	}

	var date *time.Time
	if r.Date != nil {
		parsed, ok := validator.IsValidDate(*r.Date)
		if !ok {
			errs = append(errs, validator.ValidationError{Field: "date", Message: "must be in YYYY-MM-DD format"})
		} else {
			date = &parsed
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return date, nil
}

type PeriodResponse struct {
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	Frequency      Frequency `json:"frequency"`
	SequenceNumber int       `json:"sequence_number"`
}

func NewPeriodResponse(p Period) PeriodResponse {
	return PeriodResponse{
		StartDate:      p.StartDate.Format(DateLayout),
		EndDate:        p.EndDate.Format(DateLayout),
		Frequency:      p.Frequency,
		SequenceNumber: p.SequenceNumber,
	}
}

// ========== CALCULATION DTOs ==========

type CalculatePaymentsRequest struct {
	PeriodNumber *int `json:"period_number,omitempty" validate:"omitempty,gt=0,max=100000"`
}

func (r *CalculatePaymentsRequest) Validate() error {
	return validator.Struct(r)
}

type PaymentSummary struct {
	PaymentID     int64           `json:"payment_id"`
	EmployeeID    int64           `json:"employee_id"`
	EmployeeName  string          `json:"employee_name,omitempty"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	PeriodNumber  int             `json:"period_number"`
	TotalHours    decimal.Decimal `json:"total_hours"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	ShiftsCount   int             `json:"shifts_count"`
	Status        PaymentStatus   `json:"status"`
}

func NewPaymentSummary(p Payment) PaymentSummary {
	name := ""
	if p.EmployeeName != nil {
		name = *p.EmployeeName
	}
	return PaymentSummary{
		PaymentID:     p.ID,
		EmployeeID:    p.EmployeeID,
		EmployeeName:  name,
		PeriodStart:   p.PeriodStart.Format(DateLayout),
		PeriodEnd:     p.PeriodEnd.Format(DateLayout),
		PeriodNumber:  p.PeriodNumber,
		TotalHours:    p.TotalHours,
		TotalEarnings: p.TotalEarnings,
		ShiftsCount:   p.ShiftsCount,
		Status:        p.Status,
	}
}

type CalculationFailure struct {
	EmployeeID int64          `json:"employee_id"`
	Period     PeriodResponse `json:"period"`
	ErrorCode  ErrorCode      `json:"error_code"`
	Message    string         `json:"message"`
}

type CalculationResult struct {
	RunID          string               `json:"run_id"`
	Period         PeriodResponse       `json:"period"`
	TotalProcessed int                  `json:"total_processed"`
	SuccessCount   int                  `json:"success_count"`
	FailureCount   int                  `json:"failure_count"`
	Successful     []PaymentSummary     `json:"successful"`
	Failed         []CalculationFailure `json:"failed"`
}

// ========== STATUS DTOs ==========

type UpdateStatusRequest struct {
	PaymentIDs []int64       `json:"payment_ids" validate:"required,min=1,max=1000,dive,gt=0"`
	Status     PaymentStatus `json:"status" validate:"required,oneof=CALCULATED ISSUED COMPLETED VOIDED"`
	VoidReason *string       `json:"void_reason,omitempty" validate:"omitempty,max=500"`
}

func (r *UpdateStatusRequest) Validate() error {
	if len(r.PaymentIDs) == 0 {
		return ErrEmptyPaymentIDs
	}
	return validator.Struct(r)
}

type StatusChangeResponse struct {
	PaymentID      int64         `json:"payment_id"`
	PreviousStatus PaymentStatus `json:"previous_status"`
	NewStatus      PaymentStatus `json:"new_status"`
}

type StatusFailure struct {
	PaymentID     int64          `json:"payment_id"`
	CurrentStatus *PaymentStatus `json:"current_status,omitempty"`
	ErrorCode     ErrorCode      `json:"error_code"`
	Message       string         `json:"message"`
}

type StatusUpdateResult struct {
	TotalProcessed int                    `json:"total_processed"`
	SuccessCount   int                    `json:"success_count"`
	FailureCount   int                    `json:"failure_count"`
	Successful     []StatusChangeResponse `json:"successful"`
	Failed         []StatusFailure        `json:"failed"`
}

// ========== NOTIFICATION DTOs ==========

type PaymentsCalculatedEvent struct {
	CompanyID      int64           `json:"company_id"`
	RunID          string          `json:"run_id"`
	Period         PeriodResponse  `json:"period"`
	SuccessCount   int             `json:"success_count"`
	FailureCount   int             `json:"failure_count"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
	ReviewDeadline time.Time       `json:"review_deadline"`
	Recipient      string          `json:"recipient"`
}
