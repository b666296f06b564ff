package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type paymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) payment.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `
	p.id, p.employee_id, p.company_id, p.period_start, p.period_end, p.period_number,
	p.total_hours, p.total_earnings, p.shifts_count, p.status, p.calculated_at, p.modified_by,
	p.issued_at, p.completed_at, p.voided_at, p.void_reason, p.updated_at`

func scanPayment(row pgx.Row, extra ...any) (payment.Payment, error) {
	var p payment.Payment
	dest := []any{
		&p.ID, &p.EmployeeID, &p.CompanyID, &p.PeriodStart, &p.PeriodEnd, &p.PeriodNumber,
		&p.TotalHours, &p.TotalEarnings, &p.ShiftsCount, &p.Status, &p.CalculatedAt, &p.ModifiedBy,
		&p.IssuedAt, &p.CompletedAt, &p.VoidedAt, &p.VoidReason, &p.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return p, err
}

// ========== DUPLICATE CHECKS ==========

func (r *paymentRepository) NonVoidedEmployeeIDs(ctx context.Context, employeeIDs []int64, period payment.Period, companyID int64) ([]int64, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT employee_id
		FROM payments
		WHERE company_id = $1
		  AND period_start = $2
		  AND period_end = $3
		  AND status <> $4
		  AND employee_id = ANY($5)
	`

	rows, err := q.Query(ctx, query, companyID, period.StartDate, period.EndDate, payment.StatusVoided, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing payments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan employee id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *paymentRepository) ExistsForPeriod(ctx context.Context, companyID int64, period payment.Period) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE company_id = $1 AND period_start = $2 AND period_end = $3 AND status <> $4
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, companyID, period.StartDate, period.EndDate, payment.StatusVoided).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check payments for period: %w", err)
	}
	return exists, nil
}

// ========== CREATE ==========

func (r *paymentRepository) SaveAll(ctx context.Context, payments []payment.Payment) ([]payment.Payment, error) {
	if len(payments) == 0 {
		return []payment.Payment{}, nil
	}

	query := `
		INSERT INTO payments (
			employee_id, company_id, period_start, period_end, period_number,
			total_hours, total_earnings, shifts_count, status, calculated_at, modified_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, updated_at
	`

	saved := make([]payment.Payment, 0, len(payments))
	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)
		for _, p := range payments {
			err := q.QueryRow(ctx, query,
				p.EmployeeID, p.CompanyID, p.PeriodStart, p.PeriodEnd, p.PeriodNumber,
				p.TotalHours, p.TotalEarnings, p.ShiftsCount, p.Status, p.CalculatedAt, p.ModifiedBy,
			).Scan(&p.ID, &p.UpdatedAt)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: employee %d", payment.ErrDuplicatePayment, p.EmployeeID)
				}
				return fmt.Errorf("failed to insert payment for employee %d: %w", p.EmployeeID, err)
			}
			saved = append(saved, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ========== READ ==========

func (r *paymentRepository) FindByIDs(ctx context.Context, ids []int64, companyID int64) ([]payment.Payment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + paymentColumns + `, e.full_name
		FROM payments p
		LEFT JOIN employees e ON e.id = p.employee_id
		WHERE p.id = ANY($1) AND p.company_id = $2
		ORDER BY p.id
	`

	rows, err := q.Query(ctx, query, ids, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find payments: %w", err)
	}
	defer rows.Close()

	var payments []payment.Payment
	for rows.Next() {
		var name *string
		p, err := scanPayment(rows, &name)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.EmployeeName = name
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ========== UPDATE ==========

// UpdateStatuses writes every change or none. Each row is guarded by its previous
// status, so a change made in between fails the whole batch.
func (r *paymentRepository) UpdateStatuses(ctx context.Context, changes []payment.StatusChange, companyID int64) error {
	if len(changes) == 0 {
		return nil
	}

	query := `
		UPDATE payments SET
			status = $1,
			modified_by = $2,
			issued_at = $3,
			completed_at = $4,
			voided_at = $5,
			void_reason = $6,
			updated_at = NOW()
		WHERE id = $7 AND company_id = $8 AND status = $9
	`

	return withRetry(ctx, func() error {
		return WithTransaction(ctx, r.db, func(ctx context.Context) error {
			q := GetQuerier(ctx, r.db)
			for _, c := range changes {
				p := c.Payment
				tag, err := q.Exec(ctx, query,
					p.Status, p.ModifiedBy, p.IssuedAt, p.CompletedAt, p.VoidedAt, p.VoidReason,
					p.ID, companyID, c.PreviousStatus,
				)
				if err != nil {
					return fmt.Errorf("failed to update payment %d: %w", p.ID, err)
				}
				if tag.RowsAffected() != 1 {
					return fmt.Errorf("%w: payment %d", payment.ErrConcurrentUpdate, p.ID)
				}
			}
			return nil
		})
	})
}
