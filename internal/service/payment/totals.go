package payment

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// Limits bounds the totals a single payment may carry.
type Limits struct {
	MaxTotalEarnings decimal.Decimal
	MaxTotalHours    decimal.Decimal
	MaxShiftsCount   int
	MaxShiftHours    decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{
		MaxTotalEarnings: decimal.RequireFromString("999999.99"),
		MaxTotalHours:    decimal.NewFromInt(744), // 31 days * 24h
		MaxShiftsCount:   500,
		MaxShiftHours:    decimal.NewFromInt(24),
	}
}

type TotalsAggregator struct {
	limits Limits
}

func NewTotalsAggregator(limits Limits) *TotalsAggregator {
	return &TotalsAggregator{limits: limits}
}

// Aggregate sums hours and earnings across shifts. NULL values count as zero.
func (a *TotalsAggregator) Aggregate(shifts []payment.ShiftSummary) payment.PaymentTotals {
	totals := payment.PaymentTotals{
		TotalHours:    decimal.Zero,
		TotalEarnings: decimal.Zero,
	}
	for _, s := range shifts {
		if s.HoursWorked.Valid {
			totals.TotalHours = totals.TotalHours.Add(s.HoursWorked.Decimal)
		}
		if s.Earnings.Valid {
			totals.TotalEarnings = totals.TotalEarnings.Add(s.Earnings.Decimal)
		}
		totals.ShiftsCount++
	}
	return totals
}

// Validate checks totals against the configured bounds and the cross-field rules.
// Every violation is reported in the returned error.
func (a *TotalsAggregator) Validate(t payment.PaymentTotals) error {
	var problems []string

	// Earnings
	if t.TotalEarnings.IsNegative() {
		problems = append(problems, "total earnings must not be negative")
	}
	if t.TotalEarnings.GreaterThan(a.limits.MaxTotalEarnings) {
		problems = append(problems, fmt.Sprintf("total earnings %s exceed maximum %s", t.TotalEarnings, a.limits.MaxTotalEarnings))
	}
	if !hasAtMostTwoDecimals(t.TotalEarnings) {
		problems = append(problems, "total earnings must have at most 2 decimal places")
	}

	// Hours
	if t.TotalHours.IsNegative() {
		problems = append(problems, "total hours must not be negative")
	}
	if t.TotalHours.GreaterThan(a.limits.MaxTotalHours) {
		problems = append(problems, fmt.Sprintf("total hours %s exceed maximum %s", t.TotalHours, a.limits.MaxTotalHours))
	}
	if !hasAtMostTwoDecimals(t.TotalHours) {
		problems = append(problems, "total hours must have at most 2 decimal places")
	}

	// Shifts
	if t.ShiftsCount < 0 {
		problems = append(problems, "shifts count must not be negative")
	}
	if t.ShiftsCount > a.limits.MaxShiftsCount {
		problems = append(problems, fmt.Sprintf("shifts count %d exceeds maximum %d", t.ShiftsCount, a.limits.MaxShiftsCount))
	}

	// Cross-field
	if t.TotalHours.IsZero() && t.TotalEarnings.IsPositive() {
		problems = append(problems, "earnings recorded without worked hours")
	}
	if t.ShiftsCount > 0 && t.TotalHours.IsZero() {
		problems = append(problems, fmt.Sprintf("%d shifts recorded without worked hours", t.ShiftsCount))
	}
	if t.ShiftsCount == 0 && !t.TotalHours.IsZero() {
		problems = append(problems, "hours recorded without shifts")
	}
	if t.ShiftsCount > 0 && t.TotalHours.IsPositive() {
		avg := t.TotalHours.Div(decimal.NewFromInt(int64(t.ShiftsCount)))
		if avg.GreaterThan(a.limits.MaxShiftHours) {
			problems = append(problems, fmt.Sprintf("average shift length %s hours exceeds maximum %s", avg.StringFixed(2), a.limits.MaxShiftHours))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", payment.ErrInvalidPaymentRequest, strings.Join(problems, "; "))
	}

	if t.TotalEarnings.IsZero() && t.TotalHours.IsPositive() {
		slog.Warn("zero earnings for worked hours",
			"total_hours", t.TotalHours.String(),
			"shifts_count", t.ShiftsCount,
		)
	}
	return nil
}

func hasAtMostTwoDecimals(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}
