package payment

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
)

// DuplicateFilter drops employees that already hold a non-voided payment for a period.
// It saves work on repeated runs; the payments unique index is what actually
// prevents two active payments for the same employee and period.
type DuplicateFilter struct {
	payments payment.PaymentRepository
}

func NewDuplicateFilter(payments payment.PaymentRepository) *DuplicateFilter {
	return &DuplicateFilter{payments: payments}
}

// Partition splits employeeIDs into those still to be paid and those already paid,
// keeping the input order in both.
func (f *DuplicateFilter) Partition(ctx context.Context, employeeIDs []int64, period payment.Period, companyID int64) (eligible, alreadyPaid []int64, err error) {
	if len(employeeIDs) == 0 {
		return nil, nil, nil
	}

	paidIDs, err := f.payments.NonVoidedEmployeeIDs(ctx, employeeIDs, period, companyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing payments: %w", err)
	}

	paid := make(map[int64]struct{}, len(paidIDs))
	for _, id := range paidIDs {
		paid[id] = struct{}{}
	}

	eligible = make([]int64, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		if _, ok := paid[id]; ok {
			alreadyPaid = append(alreadyPaid, id)
			continue
		}
		eligible = append(eligible, id)
	}
	return eligible, alreadyPaid, nil
}
