package payment

import (
	"context"
	"time"
)

type Service interface {
	// Periods
	ResolvePeriod(ctx context.Context, date *time.Time, number *int, companyID int64) (Period, error)
	RecentPeriods(ctx context.Context, count int, companyID int64) ([]Period, error)

	// Calculation
	CalculatePayments(ctx context.Context, periodNumber *int, companyID, initiatorID int64) (CalculationResult, error)
	CalculateForPeriod(ctx context.Context, period Period, companyID, initiatorID int64) (CalculationResult, error)

	// Lifecycle
	UpdatePaymentStatus(ctx context.Context, req UpdateStatusRequest, companyID, modifierID int64) (StatusUpdateResult, error)
}

// Notifier delivers calculation notices through the company's configured channel.
type Notifier interface {
	PaymentsCalculated(ctx context.Context, event PaymentsCalculatedEvent) error
}
