package payment

import (
	"context"
	"time"
)

// PaymentRepository persists payments.
// All methods include companyID parameter to prevent cross-company data access.
type PaymentRepository interface {
	// NonVoidedEmployeeIDs returns the subset of employeeIDs that already hold a
	// payment in any status other than VOIDED for the period.
	NonVoidedEmployeeIDs(ctx context.Context, employeeIDs []int64, period Period, companyID int64) ([]int64, error)
	// SaveAll inserts all payments atomically. A uniqueness violation yields ErrDuplicatePayment.
	SaveAll(ctx context.Context, payments []Payment) ([]Payment, error)
	FindByIDs(ctx context.Context, ids []int64, companyID int64) ([]Payment, error)
	// UpdateStatuses applies accepted transitions atomically. A row whose status no
	// longer matches PreviousStatus yields ErrConcurrentUpdate.
	UpdateStatuses(ctx context.Context, changes []StatusChange, companyID int64) error
	ExistsForPeriod(ctx context.Context, companyID int64, period Period) (bool, error)
}

// ShiftRepository reads finished shifts produced by the attendance subsystem.
type ShiftRepository interface {
	GroupedByEmployee(ctx context.Context, start, end time.Time, companyID int64) (map[int64][]ShiftSummary, error)
}

// EmployeeDirectory resolves active employees.
type EmployeeDirectory interface {
	ActiveByIDs(ctx context.Context, ids []int64, companyID int64) ([]EmployeeRef, error)
	AllActiveIDs(ctx context.Context, companyID int64) ([]int64, error)
}

// SettingsRepository reads company pay cycle configuration.
type SettingsRepository interface {
	GetByCompanyID(ctx context.Context, companyID int64) (CompanyPaymentSettings, error)
	ListAutoCalculate(ctx context.Context) ([]CompanyPaymentSettings, error)
}
