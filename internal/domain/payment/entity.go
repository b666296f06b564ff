package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemInitiatorID marks payments calculated by the automatic trigger.
const SystemInitiatorID int64 = 0

// Frequency enum
type Frequency string

const (
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// PaymentStatus enum
type PaymentStatus string

const (
	StatusCalculated PaymentStatus = "CALCULATED"
	StatusIssued     PaymentStatus = "ISSUED"
	StatusCompleted  PaymentStatus = "COMPLETED"
	StatusVoided     PaymentStatus = "VOIDED"
)

// AllStatuses returns every payment status in lifecycle order
func AllStatuses() []PaymentStatus {
	return []PaymentStatus{StatusCalculated, StatusIssued, StatusCompleted, StatusVoided}
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusCalculated, StatusIssued, StatusCompleted, StatusVoided:
		return true
	}
	return false
}

// Period is a contiguous, inclusive date range derived from a company's anchor date.
type Period struct {
	StartDate      time.Time
	EndDate        time.Time
	Frequency      Frequency
	SequenceNumber int
}

// Contains reports whether date falls within [StartDate, EndDate].
func (p Period) Contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

func (p Period) String() string {
	return "[" + p.StartDate.Format(DateLayout) + ", " + p.EndDate.Format(DateLayout) + "]"
}

// CompanyPaymentSettings - Company pay cycle configuration, owned by company admin
type CompanyPaymentSettings struct {
	CompanyID        int64
	PayFrequency     Frequency
	FirstDay         time.Time
	CalculationDay   time.Weekday
	CalculationTime  int // minutes since midnight, company local time
	AutoCalculate    bool
	GracePeriodHours int
	Timezone         string

	// Notification preferences
	NotifyOnCalculation bool
	NotificationEmail   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location returns the company's time zone, UTC when unset or unknown.
func (s CompanyPaymentSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShiftSummary - Finished shift as produced by the attendance subsystem
type ShiftSummary struct {
	EmployeeID  int64
	HoursWorked decimal.NullDecimal
	Earnings    decimal.NullDecimal
	JobTitle    string
}

// PaymentTotals - Aggregate of one employee's shifts in one period
type PaymentTotals struct {
	TotalHours    decimal.Decimal
	TotalEarnings decimal.Decimal
	ShiftsCount   int
}

// EmployeeRef - Minimal employee view from the employee directory
type EmployeeRef struct {
	ID        int64
	CompanyID int64
	FullName  string
}

// Payment - Calculated pay for one employee and one period
type Payment struct {
	ID            int64
	EmployeeID    int64
	CompanyID     int64
	PeriodStart   time.Time
	PeriodEnd     time.Time
	PeriodNumber  int
	TotalHours    decimal.Decimal
	TotalEarnings decimal.Decimal
	ShiftsCount   int
	Status        PaymentStatus
	CalculatedAt  time.Time
	ModifiedBy    int64
	IssuedAt      *time.Time
	CompletedAt   *time.Time
	VoidedAt      *time.Time
	VoidReason    *string
	UpdatedAt     time.Time

	// Joined fields
	EmployeeName *string
}

// StatusChange is an accepted transition waiting to be persisted.
type StatusChange struct {
	Payment        Payment
	PreviousStatus PaymentStatus
}
