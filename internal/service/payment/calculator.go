package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/google/uuid"
)

type calculationOutcome = payment.Result[payment.Payment, payment.CalculationFailure]

// Calculator turns a period's shifts into CALCULATED payments, one per employee.
type Calculator struct {
	payments   payment.PaymentRepository
	shifts     payment.ShiftRepository
	employees  payment.EmployeeDirectory
	aggregator *TotalsAggregator
	filter     *DuplicateFilter
	now        func() time.Time
	newRunID   func() string
}

func NewCalculator(
	payments payment.PaymentRepository,
	shifts payment.ShiftRepository,
	employees payment.EmployeeDirectory,
	limits Limits,
) *Calculator {
	return &Calculator{
		payments:   payments,
		shifts:     shifts,
		employees:  employees,
		aggregator: NewTotalsAggregator(limits),
		filter:     NewDuplicateFilter(payments),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

// CalculateForPeriod computes and stores payments for every employee with shifts in period.
// Per-employee problems end up in the result's failure list; only malformed input,
// an employee directory mismatch, or an unexpected storage error is returned as error.
func (c *Calculator) CalculateForPeriod(ctx context.Context, period payment.Period, companyID, initiatorID int64) (payment.CalculationResult, error) {
	if err := validatePeriod(period); err != nil {
		return payment.CalculationResult{}, err
	}
	if companyID <= 0 {
		return payment.CalculationResult{}, payment.ErrInvalidCompanyID
	}

	runID := c.newRunID()
	periodResp := payment.NewPeriodResponse(period)
	result := payment.CalculationResult{
		RunID:      runID,
		Period:     periodResp,
		Successful: []payment.PaymentSummary{},
		Failed:     []payment.CalculationFailure{},
	}

	grouped, err := c.shifts.GroupedByEmployee(ctx, period.StartDate, period.EndDate, companyID)
	if err != nil {
		return payment.CalculationResult{}, payment.NewProcessingError("fetch shifts", err)
	}

	// Employees without shifts are not part of the run.
	employeeIDs := make([]int64, 0, len(grouped))
	for id, shifts := range grouped {
		if len(shifts) > 0 {
			employeeIDs = append(employeeIDs, id)
		}
	}
	slices.Sort(employeeIDs)

	if len(employeeIDs) == 0 {
		slog.Info("no shifts to pay for period",
			"run_id", runID,
			"company_id", companyID,
			"period", period.String(),
		)
		return result, nil
	}

	eligible, alreadyPaid, err := c.filter.Partition(ctx, employeeIDs, period, companyID)
	if err != nil {
		return payment.CalculationResult{}, payment.NewProcessingError("filter duplicates", err)
	}

	var outcomes []calculationOutcome
	for _, id := range alreadyPaid {
		outcomes = append(outcomes, payment.Fail[payment.Payment](payment.CalculationFailure{
			EmployeeID: id,
			Period:     periodResp,
			ErrorCode:  payment.CodeDuplicatePayment,
			Message:    fmt.Sprintf("payment already exists for employee %d in period %s", id, period),
		}))
	}

	var refs map[int64]payment.EmployeeRef
	if len(eligible) > 0 {
		refs, err = c.resolveEmployees(ctx, eligible, companyID)
		if err != nil {
			return payment.CalculationResult{}, err
		}
	}

	calculatedAt := c.now()
	for _, id := range eligible {
		p, err := c.buildPayment(id, grouped[id], period, companyID, initiatorID, calculatedAt)
		if err != nil {
			outcomes = append(outcomes, payment.Fail[payment.Payment](payment.CalculationFailure{
				EmployeeID: id,
				Period:     periodResp,
				ErrorCode:  payment.CodeOf(err),
				Message:    err.Error(),
			}))
			continue
		}
		outcomes = append(outcomes, payment.Ok[payment.Payment, payment.CalculationFailure](p))
	}

	built, failed := payment.Partition(outcomes)

	if len(built) > 0 {
		saved, err := c.payments.SaveAll(ctx, built)
		switch {
		case errors.Is(err, payment.ErrDuplicatePayment):
			// Another run stored payments for this period after the filter ran.
			slog.Warn("payment batch rejected by unique constraint",
				"run_id", runID,
				"company_id", companyID,
				"period", period.String(),
				"batch_size", len(built),
			)
			for _, p := range built {
				failed = append(failed, payment.CalculationFailure{
					EmployeeID: p.EmployeeID,
					Period:     periodResp,
					ErrorCode:  payment.CodeDuplicatePayment,
					Message:    fmt.Sprintf("payment already exists for employee %d in period %s", p.EmployeeID, period),
				})
			}
		case err != nil:
			return payment.CalculationResult{}, payment.NewProcessingError("save payments", err)
		default:
			for _, p := range saved {
				if ref, ok := refs[p.EmployeeID]; ok && p.EmployeeName == nil {
					name := ref.FullName
					p.EmployeeName = &name
				}
				result.Successful = append(result.Successful, payment.NewPaymentSummary(p))
			}
		}
	}

	result.Failed = append(result.Failed, failed...)
	result.SuccessCount = len(result.Successful)
	result.FailureCount = len(result.Failed)
	result.TotalProcessed = result.SuccessCount + result.FailureCount

	slog.Info("payment calculation finished",
		"run_id", runID,
		"company_id", companyID,
		"initiator_id", initiatorID,
		"period", period.String(),
		"total_processed", result.TotalProcessed,
		"success_count", result.SuccessCount,
		"failure_count", result.FailureCount,
	)

	return result, nil
}

// resolveEmployees loads the active employees for ids and requires an exact match.
// A difference means shift data and the employee directory disagree.
func (c *Calculator) resolveEmployees(ctx context.Context, ids []int64, companyID int64) (map[int64]payment.EmployeeRef, error) {
	employees, err := c.employees.ActiveByIDs(ctx, ids, companyID)
	if err != nil {
		return nil, payment.NewProcessingError("resolve employees", err)
	}

	refs := make(map[int64]payment.EmployeeRef, len(employees))
	var unexpected []int64
	for _, e := range employees {
		if e.CompanyID != companyID || !slices.Contains(ids, e.ID) {
			unexpected = append(unexpected, e.ID)
			continue
		}
		refs[e.ID] = e
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := refs[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 || len(unexpected) > 0 {
		slog.Error("employee data mismatch",
			"company_id", companyID,
			"missing_employee_ids", missing,
			"unexpected_employee_ids", unexpected,
		)
		return nil, fmt.Errorf("%w: missing %v, unexpected %v", payment.ErrEmployeeDataMismatch, missing, unexpected)
	}
	return refs, nil
}

func (c *Calculator) buildPayment(employeeID int64, shifts []payment.ShiftSummary, period payment.Period, companyID, initiatorID int64, at time.Time) (payment.Payment, error) {
	if !anyHoursRecorded(shifts) {
		return payment.Payment{}, fmt.Errorf("%w: no worked hours recorded on %d shifts for employee %d", payment.ErrMissingData, len(shifts), employeeID)
	}

	totals := c.aggregator.Aggregate(shifts)
	if err := c.aggregator.Validate(totals); err != nil {
		return payment.Payment{}, fmt.Errorf("employee %d: %w", employeeID, err)
	}

	return payment.Payment{
		EmployeeID:    employeeID,
		CompanyID:     companyID,
		PeriodStart:   period.StartDate,
		PeriodEnd:     period.EndDate,
		PeriodNumber:  period.SequenceNumber,
		TotalHours:    totals.TotalHours,
		TotalEarnings: totals.TotalEarnings,
		ShiftsCount:   totals.ShiftsCount,
		Status:        payment.StatusCalculated,
		CalculatedAt:  at,
		ModifiedBy:    initiatorID,
		UpdatedAt:     at,
	}, nil
}

func anyHoursRecorded(shifts []payment.ShiftSummary) bool {
	for _, s := range shifts {
		if s.HoursWorked.Valid {
			return true
		}
	}
	return false
}

func validatePeriod(p payment.Period) error {
	switch {
	case p.StartDate.IsZero() || p.EndDate.IsZero():
		return fmt.Errorf("%w: period dates are required", payment.ErrInvalidPaymentPeriod)
	case p.EndDate.Before(p.StartDate):
		return fmt.Errorf("%w: period ends before it starts", payment.ErrInvalidPaymentPeriod)
	case p.SequenceNumber < 1:
		return fmt.Errorf("%w: period %s precedes the first pay period", payment.ErrInvalidPaymentPeriod, p)
	case !p.Frequency.IsValid():
		return fmt.Errorf("%w: %q", payment.ErrInvalidFrequency, p.Frequency)
	}
	return nil
}
