package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
)

type PaymentServiceImpl struct {
	settings      payment.SettingsRepository
	calculator    *Calculator
	statusUpdater *StatusUpdater
	now           func() time.Time
}

func NewPaymentService(
	paymentRepo payment.PaymentRepository,
	shiftRepo payment.ShiftRepository,
	employeeDirectory payment.EmployeeDirectory,
	settingsRepo payment.SettingsRepository,
	limits Limits,
) payment.Service {
	return newPaymentService(paymentRepo, shiftRepo, employeeDirectory, settingsRepo, limits, time.Now)
}

func newPaymentService(
	paymentRepo payment.PaymentRepository,
	shiftRepo payment.ShiftRepository,
	employeeDirectory payment.EmployeeDirectory,
	settingsRepo payment.SettingsRepository,
	limits Limits,
	now func() time.Time,
) *PaymentServiceImpl {
	calculator := NewCalculator(paymentRepo, shiftRepo, employeeDirectory, limits)
	calculator.now = now
	statusUpdater := NewStatusUpdater(paymentRepo)
	statusUpdater.now = now

	return &PaymentServiceImpl{
		settings:      settingsRepo,
		calculator:    calculator,
		statusUpdater: statusUpdater,
		now:           now,
	}
}

// ========== PERIODS ==========

// ResolvePeriod returns the period numbered number, the period containing date, or the
// current period when neither is given.
func (s *PaymentServiceImpl) ResolvePeriod(ctx context.Context, date *time.Time, number *int, companyID int64) (payment.Period, error) {
	if companyID <= 0 {
		return payment.Period{}, payment.ErrInvalidCompanyID
	}
	if date != nil && number != nil {
		return payment.Period{}, fmt.Errorf("%w: date and number cannot be combined", payment.ErrInvalidPaymentRequest)
	}

	settings, err := s.loadSettings(ctx, companyID)
	if err != nil {
		return payment.Period{}, err
	}

	if number != nil {
		return payment.PeriodByNumber(*number, settings.FirstDay, settings.PayFrequency)
	}

	target := s.today(settings)
	if date != nil {
		target = payment.DateOf(*date)
	}
	return payment.PeriodContaining(target, settings.FirstDay, settings.PayFrequency)
}

func (s *PaymentServiceImpl) RecentPeriods(ctx context.Context, count int, companyID int64) ([]payment.Period, error) {
	if companyID <= 0 {
		return nil, payment.ErrInvalidCompanyID
	}

	settings, err := s.loadSettings(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return payment.RecentPeriods(count, settings.FirstDay, settings.PayFrequency, s.today(settings))
}

// ========== CALCULATION ==========

func (s *PaymentServiceImpl) CalculatePayments(ctx context.Context, periodNumber *int, companyID, initiatorID int64) (payment.CalculationResult, error) {
	period, err := s.ResolvePeriod(ctx, nil, periodNumber, companyID)
	if err != nil {
		return payment.CalculationResult{}, err
	}
	if period.SequenceNumber < 1 {
		return payment.CalculationResult{}, fmt.Errorf("%w: the first pay period has not started yet", payment.ErrInvalidPaymentPeriod)
	}

	// Overlapping requests each run on their own; the unique index decides which one pays.
	return s.calculator.CalculateForPeriod(ctx, period, companyID, initiatorID)
}

func (s *PaymentServiceImpl) CalculateForPeriod(ctx context.Context, period payment.Period, companyID, initiatorID int64) (payment.CalculationResult, error) {
	return s.calculator.CalculateForPeriod(ctx, period, companyID, initiatorID)
}

// ========== LIFECYCLE ==========

func (s *PaymentServiceImpl) UpdatePaymentStatus(ctx context.Context, req payment.UpdateStatusRequest, companyID, modifierID int64) (payment.StatusUpdateResult, error) {
	return s.statusUpdater.Update(ctx, req, companyID, modifierID)
}

// ========== HELPERS ==========

func (s *PaymentServiceImpl) loadSettings(ctx context.Context, companyID int64) (payment.CompanyPaymentSettings, error) {
	settings, err := s.settings.GetByCompanyID(ctx, companyID)
	if err != nil {
		if errors.Is(err, payment.ErrSettingsNotFound) {
			return payment.CompanyPaymentSettings{}, err
		}
		return payment.CompanyPaymentSettings{}, fmt.Errorf("failed to get payment settings: %w", err)
	}
	return settings, nil
}

// today is the current calendar date in the company's time zone.
func (s *PaymentServiceImpl) today(settings payment.CompanyPaymentSettings) time.Time {
	return payment.DateOf(s.now().In(settings.Location()))
}
