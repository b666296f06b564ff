package payment

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// ===== payments =====

type fakePaymentRepo struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]payment.Payment

	saveErr     error
	updateErr   error
	beforeSave  func()
	saveCalls   int
	updateCalls int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{nextID: 1, payments: map[int64]payment.Payment{}}
}

// seed stores p as-is and returns its id.
func (r *fakePaymentRepo) seed(p payment.Payment) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	r.payments[p.ID] = p
	return p.ID
}

func (r *fakePaymentRepo) get(id int64) payment.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[id]
}

func (r *fakePaymentRepo) activeFor(employeeID, companyID int64, start, end time.Time) int {
	n := 0
	for _, p := range r.payments {
		if p.EmployeeID == employeeID && p.CompanyID == companyID &&
			p.PeriodStart.Equal(start) && p.PeriodEnd.Equal(end) && p.Status != payment.StatusVoided {
			n++
		}
	}
	return n
}

func (r *fakePaymentRepo) NonVoidedEmployeeIDs(_ context.Context, employeeIDs []int64, period payment.Period, companyID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, id := range employeeIDs {
		if r.activeFor(id, companyID, period.StartDate, period.EndDate) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakePaymentRepo) SaveAll(_ context.Context, payments []payment.Payment) ([]payment.Payment, error) {
	if r.beforeSave != nil {
		r.beforeSave()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.saveErr != nil {
		return nil, r.saveErr
	}

	// unique index on active payments
	for _, p := range payments {
		if r.activeFor(p.EmployeeID, p.CompanyID, p.PeriodStart, p.PeriodEnd) > 0 {
			return nil, payment.ErrDuplicatePayment
		}
	}

	saved := make([]payment.Payment, 0, len(payments))
	for _, p := range payments {
		p.ID = r.nextID
		r.nextID++
		r.payments[p.ID] = p
		saved = append(saved, p)
	}
	return saved, nil
}

func (r *fakePaymentRepo) FindByIDs(_ context.Context, ids []int64, companyID int64) ([]payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []payment.Payment
	for _, id := range ids {
		if p, ok := r.payments[id]; ok && p.CompanyID == companyID {
			found = append(found, p)
		}
	}
	return found, nil
}

func (r *fakePaymentRepo) UpdateStatuses(_ context.Context, changes []payment.StatusChange, companyID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	for _, ch := range changes {
		stored, ok := r.payments[ch.Payment.ID]
		if !ok || stored.CompanyID != companyID || stored.Status != ch.PreviousStatus {
			return payment.ErrConcurrentUpdate
		}
	}
	for _, ch := range changes {
		r.payments[ch.Payment.ID] = ch.Payment
	}
	return nil
}

func (r *fakePaymentRepo) ExistsForPeriod(_ context.Context, companyID int64, period payment.Period) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.CompanyID == companyID && p.PeriodStart.Equal(period.StartDate) &&
			p.PeriodEnd.Equal(period.EndDate) && p.Status != payment.StatusVoided {
			return true, nil
		}
	}
	return false, nil
}

// ===== shifts =====

type fakeShiftRepo struct {
	grouped map[int64][]payment.ShiftSummary
	err     error
}

func (r *fakeShiftRepo) GroupedByEmployee(_ context.Context, _, _ time.Time, _ int64) (map[int64][]payment.ShiftSummary, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[int64][]payment.ShiftSummary, len(r.grouped))
	for id, s := range r.grouped {
		out[id] = slices.Clone(s)
	}
	return out, nil
}

// ===== employees =====

type fakeEmployeeDirectory struct {
	employees map[int64]payment.EmployeeRef
	extra     []payment.EmployeeRef
}

func newFakeEmployeeDirectory(companyID int64, ids ...int64) *fakeEmployeeDirectory {
	d := &fakeEmployeeDirectory{employees: map[int64]payment.EmployeeRef{}}
	for _, id := range ids {
		d.employees[id] = payment.EmployeeRef{ID: id, CompanyID: companyID, FullName: fmt.Sprintf("Employee %d", id)}
	}
	return d
}

func (d *fakeEmployeeDirectory) ActiveByIDs(_ context.Context, ids []int64, companyID int64) ([]payment.EmployeeRef, error) {
	var refs []payment.EmployeeRef
	for _, id := range ids {
		if e, ok := d.employees[id]; ok && e.CompanyID == companyID {
			refs = append(refs, e)
		}
	}
	return append(refs, d.extra...), nil
}

func (d *fakeEmployeeDirectory) AllActiveIDs(_ context.Context, companyID int64) ([]int64, error) {
	var ids []int64
	for id, e := range d.employees {
		if e.CompanyID == companyID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// ===== settings =====

type fakeSettingsRepo struct {
	settings map[int64]payment.CompanyPaymentSettings
}

func (r *fakeSettingsRepo) GetByCompanyID(_ context.Context, companyID int64) (payment.CompanyPaymentSettings, error) {
	s, ok := r.settings[companyID]
	if !ok {
		return payment.CompanyPaymentSettings{}, payment.ErrSettingsNotFound
	}
	return s, nil
}

func (r *fakeSettingsRepo) ListAutoCalculate(_ context.Context) ([]payment.CompanyPaymentSettings, error) {
	var out []payment.CompanyPaymentSettings
	for _, s := range r.settings {
		if s.AutoCalculate {
			out = append(out, s)
		}
	}
	return out, nil
}

// ===== helpers =====

func shift(hours, earnings string) payment.ShiftSummary {
	s := payment.ShiftSummary{JobTitle: "Barista"}
	if hours != "" {
		s.HoursWorked = decimal.NewNullDecimal(decimal.RequireFromString(hours))
	}
	if earnings != "" {
		s.Earnings = decimal.NewNullDecimal(decimal.RequireFromString(earnings))
	}
	return s
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
