package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// Locker provides a cross-instance mutex so only one API instance calculates a
// company's period per tick.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

type PaymentJobs struct {
	settingsRepo payment.SettingsRepository
	paymentRepo  payment.PaymentRepository
	employees    payment.EmployeeDirectory
	paymentSvc   payment.Service
	notifier     payment.Notifier
	locker       Locker
	lockTTL      time.Duration
	initiatorID  int64
	now          func() time.Time
}

func NewPaymentJobs(
	settingsRepo payment.SettingsRepository,
	paymentRepo payment.PaymentRepository,
	employees payment.EmployeeDirectory,
	paymentSvc payment.Service,
	notifier payment.Notifier,
	locker Locker,
	lockTTL time.Duration,
	initiatorID int64,
) *PaymentJobs {
	return &PaymentJobs{
		settingsRepo: settingsRepo,
		paymentRepo:  paymentRepo,
		employees:    employees,
		paymentSvc:   paymentSvc,
		notifier:     notifier,
		locker:       locker,
		lockTTL:      lockTTL,
		initiatorID:  initiatorID,
		now:          time.Now,
	}
}

func (j *PaymentJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("auto_calculate_payments", interval, j.RunScheduledCheck)
}

// RunScheduledCheck calculates the current period for every auto-calculate company
// whose calculation time has come. Companies are processed one after another and a
// failing company does not stop the rest.
func (j *PaymentJobs) RunScheduledCheck(ctx context.Context) error {
	now := j.now()

	companies, err := j.settingsRepo.ListAutoCalculate(ctx)
	if err != nil {
		return fmt.Errorf("failed to list auto-calculate companies: %w", err)
	}

	slog.Info("Cron: Starting scheduled payment check", "company_count", len(companies))

	calculated, failed := 0, 0
	for _, settings := range companies {
		if err := ctx.Err(); err != nil {
			return err
		}

		ran, err := j.processCompany(ctx, settings, now)
		if err != nil {
			failed++
			slog.Error("Cron: Failed to calculate company payments",
				"company_id", settings.CompanyID,
				"error", err,
			)
			continue
		}
		if ran {
			calculated++
		}
	}

	slog.Info("Cron: Scheduled payment check finished",
		"company_count", len(companies),
		"calculated", calculated,
		"failed", failed,
	)
	return nil
}

func (j *PaymentJobs) processCompany(ctx context.Context, settings payment.CompanyPaymentSettings, now time.Time) (bool, error) {
	period, due, err := j.shouldCalculate(ctx, settings, now)
	if err != nil || !due {
		return false, err
	}

	if j.locker != nil {
		key := fmt.Sprintf("company:%d:period:%s", settings.CompanyID, period.StartDate.Format(payment.DateLayout))
		unlock, ok, err := j.locker.TryLock(ctx, key, j.lockTTL)
		if err != nil {
			return false, err
		}
		if !ok {
			slog.Info("Cron: Payment calculation already running elsewhere", "company_id", settings.CompanyID, "period", period.String())
			return false, nil
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("Cron: Failed to release payment lock", "company_id", settings.CompanyID, "error", err)
			}
		}()
	}

	result, err := j.paymentSvc.CalculateForPeriod(ctx, period, settings.CompanyID, j.initiatorID)
	if err != nil {
		return false, fmt.Errorf("failed to calculate period %s: %w", period, err)
	}

	slog.Info("Cron: Payments calculated",
		"company_id", settings.CompanyID,
		"run_id", result.RunID,
		"period", period.String(),
		"success_count", result.SuccessCount,
		"failure_count", result.FailureCount,
	)
	j.logIdleEmployees(ctx, settings.CompanyID, result)

	if result.SuccessCount > 0 && settings.NotifyOnCalculation {
		j.notify(ctx, settings, result, now)
	}
	return true, nil
}

// shouldCalculate reports whether the current period is due for settings at now,
// evaluated on the company's local calendar and wall clock.
func (j *PaymentJobs) shouldCalculate(ctx context.Context, settings payment.CompanyPaymentSettings, now time.Time) (payment.Period, bool, error) {
	if settings.Timezone != "" && !validator.IsValidTimezone(settings.Timezone) {
		slog.Warn("Cron: Unknown company timezone, using UTC",
			"company_id", settings.CompanyID,
			"timezone", settings.Timezone,
		)
	}
	local := now.In(settings.Location())

	if local.Weekday() != settings.CalculationDay {
		return payment.Period{}, false, nil
	}
	if local.Hour()*60+local.Minute() < settings.CalculationTime {
		return payment.Period{}, false, nil
	}

	period, err := payment.PeriodContaining(local, settings.FirstDay, settings.PayFrequency)
	if err != nil {
		return payment.Period{}, false, err
	}
	if period.SequenceNumber < 1 {
		return payment.Period{}, false, nil
	}

	exists, err := j.paymentRepo.ExistsForPeriod(ctx, settings.CompanyID, period)
	if err != nil {
		return payment.Period{}, false, fmt.Errorf("failed to check existing payments: %w", err)
	}
	return period, !exists, nil
}

func (j *PaymentJobs) logIdleEmployees(ctx context.Context, companyID int64, result payment.CalculationResult) {
	if j.employees == nil {
		return
	}
	active, err := j.employees.AllActiveIDs(ctx, companyID)
	if err != nil {
		slog.Warn("Cron: Failed to list active employees", "company_id", companyID, "error", err)
		return
	}

	processed := make(map[int64]struct{}, result.TotalProcessed)
	for _, s := range result.Successful {
		processed[s.EmployeeID] = struct{}{}
	}
	for _, f := range result.Failed {
		processed[f.EmployeeID] = struct{}{}
	}

	idle := 0
	for _, id := range active {
		if _, ok := processed[id]; !ok {
			idle++
		}
	}
	if idle > 0 {
		slog.Info("Cron: Active employees without shifts in period",
			"company_id", companyID,
			"run_id", result.RunID,
			"count", idle,
		)
	}
}

// notify failures are logged only; the calculated payments are already stored.
func (j *PaymentJobs) notify(ctx context.Context, settings payment.CompanyPaymentSettings, result payment.CalculationResult, now time.Time) {
	if j.notifier == nil || settings.NotificationEmail == nil || *settings.NotificationEmail == "" {
		return
	}
	if !validator.IsValidEmail(*settings.NotificationEmail) {
		slog.Warn("Cron: Invalid notification email, skipping notification",
			"company_id", settings.CompanyID,
			"run_id", result.RunID,
		)
		return
	}

	total := decimal.Zero
	for _, s := range result.Successful {
		total = total.Add(s.TotalEarnings)
	}

	event := payment.PaymentsCalculatedEvent{
		CompanyID:      settings.CompanyID,
		RunID:          result.RunID,
		Period:         result.Period,
		SuccessCount:   result.SuccessCount,
		FailureCount:   result.FailureCount,
		TotalEarnings:  total,
		ReviewDeadline: now.Add(time.Duration(settings.GracePeriodHours) * time.Hour),
		Recipient:      *settings.NotificationEmail,
	}
	if err := j.notifier.PaymentsCalculated(ctx, event); err != nil {
		slog.Error("Cron: Failed to send payment notification",
			"company_id", settings.CompanyID,
			"run_id", result.RunID,
			"error", err,
		)
	}
}
