package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/database"
)

type shiftRepository struct {
	db *database.DB
}

func NewShiftRepository(db *database.DB) payment.ShiftRepository {
	return &shiftRepository{db: db}
}

// GroupedByEmployee returns completed shifts dated within [start, end], keyed by employee.
func (r *shiftRepository) GroupedByEmployee(ctx context.Context, start, end time.Time, companyID int64) (map[int64][]payment.ShiftSummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, hours_worked, earnings, job_title
		FROM shifts
		WHERE company_id = $1
		  AND shift_date BETWEEN $2 AND $3
		  AND status = 'COMPLETED'
		ORDER BY employee_id, shift_date, id
	`

	rows, err := q.Query(ctx, query, companyID, payment.DateOf(start), payment.DateOf(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	grouped := make(map[int64][]payment.ShiftSummary)
	for rows.Next() {
		var s payment.ShiftSummary
		if err := rows.Scan(&s.EmployeeID, &s.HoursWorked, &s.Earnings, &s.JobTitle); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		grouped[s.EmployeeID] = append(grouped[s.EmployeeID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shifts: %w", err)
	}
	return grouped, nil
}
