package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== fakes =====

type stubSettings struct {
	companies []payment.CompanyPaymentSettings
	err       error
}

func (s *stubSettings) GetByCompanyID(_ context.Context, companyID int64) (payment.CompanyPaymentSettings, error) {
	for _, c := range s.companies {
		if c.CompanyID == companyID {
			return c, nil
		}
	}
	return payment.CompanyPaymentSettings{}, payment.ErrSettingsNotFound
}

func (s *stubSettings) ListAutoCalculate(context.Context) ([]payment.CompanyPaymentSettings, error) {
	return s.companies, s.err
}

type stubPayments struct {
	existing map[int64]bool
}

func (s *stubPayments) NonVoidedEmployeeIDs(context.Context, []int64, payment.Period, int64) ([]int64, error) {
	return nil, nil
}

func (s *stubPayments) SaveAll(_ context.Context, p []payment.Payment) ([]payment.Payment, error) {
	return p, nil
}

func (s *stubPayments) FindByIDs(context.Context, []int64, int64) ([]payment.Payment, error) {
	return nil, nil
}

func (s *stubPayments) UpdateStatuses(context.Context, []payment.StatusChange, int64) error {
	return nil
}

func (s *stubPayments) ExistsForPeriod(_ context.Context, companyID int64, _ payment.Period) (bool, error) {
	return s.existing[companyID], nil
}

type stubEmployees struct{}

func (stubEmployees) ActiveByIDs(context.Context, []int64, int64) ([]payment.EmployeeRef, error) {
	return nil, nil
}

func (stubEmployees) AllActiveIDs(context.Context, int64) ([]int64, error) {
	return []int64{1, 2, 3}, nil
}

type calculateCall struct {
	period      payment.Period
	companyID   int64
	initiatorID int64
}

type recordingService struct {
	mu     sync.Mutex
	calls  []calculateCall
	failOn map[int64]error
}

func (s *recordingService) ResolvePeriod(context.Context, *time.Time, *int, int64) (payment.Period, error) {
	return payment.Period{}, nil
}

func (s *recordingService) RecentPeriods(context.Context, int, int64) ([]payment.Period, error) {
	return nil, nil
}

func (s *recordingService) CalculatePayments(context.Context, *int, int64, int64) (payment.CalculationResult, error) {
	return payment.CalculationResult{}, nil
}

func (s *recordingService) CalculateForPeriod(_ context.Context, period payment.Period, companyID, initiatorID int64) (payment.CalculationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, calculateCall{period: period, companyID: companyID, initiatorID: initiatorID})
	if err := s.failOn[companyID]; err != nil {
		return payment.CalculationResult{}, err
	}
	return payment.CalculationResult{
		RunID:          "run-" + period.StartDate.Format(payment.DateLayout),
		Period:         payment.NewPeriodResponse(period),
		TotalProcessed: 2,
		SuccessCount:   2,
		Successful: []payment.PaymentSummary{
			{EmployeeID: 1, TotalEarnings: decimal.RequireFromString("120.50")},
			{EmployeeID: 2, TotalEarnings: decimal.RequireFromString("80")},
		},
		Failed: []payment.CalculationFailure{},
	}, nil
}

func (s *recordingService) UpdatePaymentStatus(context.Context, payment.UpdateStatusRequest, int64, int64) (payment.StatusUpdateResult, error) {
	return payment.StatusUpdateResult{}, nil
}

func (s *recordingService) calledFor() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.calls))
	for _, c := range s.calls {
		ids = append(ids, c.companyID)
	}
	return ids
}

type recordingNotifier struct {
	events []payment.PaymentsCalculatedEvent
	err    error
}

func (n *recordingNotifier) PaymentsCalculated(_ context.Context, e payment.PaymentsCalculatedEvent) error {
	n.events = append(n.events, e)
	return n.err
}

type memoryLocker struct {
	held     map[string]bool
	released []string
}

func (l *memoryLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		delete(l.held, key)
		l.released = append(l.released, key)
		return nil
	}, true, nil
}

// ===== fixture =====

// Friday 12 January 2024, 18:00 UTC. Week 2 of a schedule anchored on Monday 1 January.
var fridayEvening = time.Date(2024, 1, 12, 18, 0, 0, 0, time.UTC)

func companySettings(id int64) payment.CompanyPaymentSettings {
	email := "payroll@example.com"
	return payment.CompanyPaymentSettings{
		CompanyID:           id,
		PayFrequency:        payment.FrequencyWeekly,
		FirstDay:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CalculationDay:      time.Friday,
		CalculationTime:     17 * 60,
		AutoCalculate:       true,
		GracePeriodHours:    48,
		Timezone:            "UTC",
		NotifyOnCalculation: true,
		NotificationEmail:   &email,
	}
}

type jobsFixture struct {
	settings *stubSettings
	payments *stubPayments
	svc      *recordingService
	notifier *recordingNotifier
	locker   *memoryLocker
	jobs     *PaymentJobs
}

func newJobsFixture(now time.Time, companies ...payment.CompanyPaymentSettings) *jobsFixture {
	f := &jobsFixture{
		settings: &stubSettings{companies: companies},
		payments: &stubPayments{existing: map[int64]bool{}},
		svc:      &recordingService{failOn: map[int64]error{}},
		notifier: &recordingNotifier{},
		locker:   &memoryLocker{held: map[string]bool{}},
	}
	f.jobs = NewPaymentJobs(f.settings, f.payments, stubEmployees{}, f.svc, f.notifier, f.locker, time.Minute, payment.SystemInitiatorID)
	f.jobs.now = func() time.Time { return now }
	return f
}

// ===== tests =====

func TestPaymentJobs_CalculatesDueCompany(t *testing.T) {
	f := newJobsFixture(fridayEvening, companySettings(1))

	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))

	require.Len(t, f.svc.calls, 1)
	call := f.svc.calls[0]
	assert.Equal(t, int64(1), call.companyID)
	assert.Equal(t, payment.SystemInitiatorID, call.initiatorID)
	assert.Equal(t, 2, call.period.SequenceNumber)
	assert.Equal(t, "2024-01-08", call.period.StartDate.Format(payment.DateLayout))

	require.Len(t, f.notifier.events, 1)
	event := f.notifier.events[0]
	assert.Equal(t, "payroll@example.com", event.Recipient)
	assert.Equal(t, 2, event.SuccessCount)
	assert.Equal(t, "200.5", event.TotalEarnings.String())
	assert.True(t, event.ReviewDeadline.Equal(fridayEvening.Add(48*time.Hour)))

	assert.Equal(t, []string{"company:1:period:2024-01-08"}, f.locker.released)
}

func TestPaymentJobs_SkipsCompaniesNotDue(t *testing.T) {
	wrongDay := companySettings(1)
	wrongDay.CalculationDay = time.Monday

	tooEarly := companySettings(2)
	tooEarly.CalculationTime = 18*60 + 30

	alreadyDone := companySettings(3)

	notStarted := companySettings(4)
	notStarted.FirstDay = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	f := newJobsFixture(fridayEvening, wrongDay, tooEarly, alreadyDone, notStarted)
	f.payments.existing[3] = true

	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))
	assert.Empty(t, f.svc.calls)
	assert.Empty(t, f.notifier.events)
}

func TestPaymentJobs_CalculationTimeIsInclusive(t *testing.T) {
	settings := companySettings(1)
	settings.CalculationTime = 18 * 60

	f := newJobsFixture(fridayEvening, settings)
	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))
	assert.Len(t, f.svc.calls, 1)
}

func TestPaymentJobs_UsesCompanyTimezone(t *testing.T) {
	settings := companySettings(1)
	settings.Timezone = "Asia/Jakarta"
	settings.CalculationTime = 2 * 60

	// Thursday 20:00 UTC is Friday 03:00 in Jakarta.
	f := newJobsFixture(time.Date(2024, 1, 11, 20, 0, 0, 0, time.UTC), settings)
	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))

	require.Len(t, f.svc.calls, 1)
	assert.Equal(t, 2, f.svc.calls[0].period.SequenceNumber)
}

func TestPaymentJobs_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	settings := companySettings(1)
	settings.Timezone = "Mars/Olympus_Mons"

	f := newJobsFixture(fridayEvening, settings)
	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))

	require.Len(t, f.svc.calls, 1)
	assert.Equal(t, "2024-01-08", f.svc.calls[0].period.StartDate.Format(payment.DateLayout))
}

func TestPaymentJobs_SkipsInvalidNotificationEmail(t *testing.T) {
	for _, address := range []string{"not-an-email", "payroll@example.com\r\nBcc: attacker@example.com"} {
		settings := companySettings(1)
		settings.NotificationEmail = &address

		f := newJobsFixture(fridayEvening, settings)
		require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))

		assert.Len(t, f.svc.calls, 1, address)
		assert.Empty(t, f.notifier.events, address)
	}
}

func TestPaymentJobs_FailureDoesNotStopOtherCompanies(t *testing.T) {
	f := newJobsFixture(fridayEvening, companySettings(1), companySettings(2), companySettings(3))
	f.svc.failOn[2] = errors.New("database unavailable")

	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))

	assert.Equal(t, []int64{1, 2, 3}, f.svc.calledFor())
	assert.Len(t, f.notifier.events, 2)
	assert.Empty(t, f.locker.held)
}

func TestPaymentJobs_NotificationFailureIsNotFatal(t *testing.T) {
	f := newJobsFixture(fridayEvening, companySettings(1), companySettings(2))
	f.notifier.err = errors.New("smtp down")

	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))
	assert.Len(t, f.svc.calls, 2)
}

func TestPaymentJobs_NotificationDisabled(t *testing.T) {
	settings := companySettings(1)
	settings.NotifyOnCalculation = false

	f := newJobsFixture(fridayEvening, settings)
	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))
	assert.Len(t, f.svc.calls, 1)
	assert.Empty(t, f.notifier.events)
}

func TestPaymentJobs_SkipsLockedCompany(t *testing.T) {
	f := newJobsFixture(fridayEvening, companySettings(1))
	f.locker.held["company:1:period:2024-01-08"] = true

	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))
	assert.Empty(t, f.svc.calls)
}

func TestPaymentJobs_RunsWithoutLocker(t *testing.T) {
	f := newJobsFixture(fridayEvening, companySettings(1))
	f.jobs.locker = nil

	require.NoError(t, f.jobs.RunScheduledCheck(context.Background()))
	assert.Len(t, f.svc.calls, 1)
}

func TestPaymentJobs_ListError(t *testing.T) {
	f := newJobsFixture(fridayEvening)
	f.settings.err = errors.New("connection reset")

	err := f.jobs.RunScheduledCheck(context.Background())
	assert.Error(t, err)
}

func TestPaymentJobs_RegisterJobs(t *testing.T) {
	f := newJobsFixture(fridayEvening, companySettings(1))
	scheduler := NewScheduler()
	f.jobs.RegisterJobs(scheduler, time.Hour)

	assert.Equal(t, 0, scheduler.RunOnce(context.Background()))
	assert.Len(t, f.svc.calls, 1)
}
