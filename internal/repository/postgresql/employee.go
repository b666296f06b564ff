package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/database"
)

const employmentStatusActive = "active"

type employeeDirectory struct {
	db *database.DB
}

func NewEmployeeDirectory(db *database.DB) payment.EmployeeDirectory {
	return &employeeDirectory{db: db}
}

func (r *employeeDirectory) ActiveByIDs(ctx context.Context, ids []int64, companyID int64) ([]payment.EmployeeRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, full_name
		FROM employees
		WHERE id = ANY($1) AND company_id = $2 AND employment_status = $3 AND deleted_at IS NULL
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, ids, companyID, employmentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var refs []payment.EmployeeRef
	for rows.Next() {
		var e payment.EmployeeRef
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		refs = append(refs, e)
	}
	return refs, rows.Err()
}

func (r *employeeDirectory) AllActiveIDs(ctx context.Context, companyID int64) ([]int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id
		FROM employees
		WHERE company_id = $1 AND employment_status = $2 AND deleted_at IS NULL
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, companyID, employmentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active employees: %w", err)
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
