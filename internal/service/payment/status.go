package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
)

type statusOutcome = payment.Result[payment.StatusChange, payment.StatusFailure]

// StatusUpdater applies one target status to a batch of payments.
type StatusUpdater struct {
	payments payment.PaymentRepository
	now      func() time.Time
}

func NewStatusUpdater(payments payment.PaymentRepository) *StatusUpdater {
	return &StatusUpdater{payments: payments, now: time.Now}
}

func (u *StatusUpdater) Update(ctx context.Context, req payment.UpdateStatusRequest, companyID, modifierID int64) (payment.StatusUpdateResult, error) {
	if err := req.Validate(); err != nil {
		return payment.StatusUpdateResult{}, err
	}
	if companyID <= 0 {
		return payment.StatusUpdateResult{}, payment.ErrInvalidCompanyID
	}

	ids := uniqueIDs(req.PaymentIDs)

	found, err := u.payments.FindByIDs(ctx, ids, companyID)
	if err != nil {
		return payment.StatusUpdateResult{}, payment.NewProcessingError("find payments", err)
	}
	byID := make(map[int64]payment.Payment, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	var voidReason *string
	if req.Status == payment.StatusVoided {
		voidReason = req.VoidReason
	}

	target := req.Status
	at := u.now()
	outcomes := make([]statusOutcome, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		var current *payment.PaymentStatus
		if ok {
			s := p.Status
			current = &s
		}

		if err := payment.ValidateTransition(id, ok, current, &target); err != nil {
			outcomes = append(outcomes, payment.Fail[payment.StatusChange](payment.StatusFailure{
				PaymentID:     id,
				CurrentStatus: current,
				ErrorCode:     payment.CodeOf(err),
				Message:       err.Error(),
			}))
			continue
		}

		change := payment.StatusChange{Payment: p, PreviousStatus: p.Status}
		payment.ApplyTransition(&change.Payment, target, modifierID, voidReason, at)
		outcomes = append(outcomes, payment.Ok[payment.StatusChange, payment.StatusFailure](change))
	}

	changes, failed := payment.Partition(outcomes)
	result := payment.StatusUpdateResult{
		Successful: []payment.StatusChangeResponse{},
		Failed:     failed,
	}

	if len(changes) > 0 {
		err := u.payments.UpdateStatuses(ctx, changes, companyID)
		switch {
		case errors.Is(err, payment.ErrConcurrentUpdate):
			slog.Warn("payment status update lost a race",
				"company_id", companyID,
				"target_status", target,
				"batch_size", len(changes),
			)
			for _, ch := range changes {
				result.Failed = append(result.Failed, payment.StatusFailure{
					PaymentID: ch.Payment.ID,
					ErrorCode: payment.CodeConcurrentModification,
					Message:   fmt.Sprintf("payment %d was modified by another request, retry the update", ch.Payment.ID),
				})
			}
		case err != nil:
			return payment.StatusUpdateResult{}, payment.NewProcessingError("update payment statuses", err)
		default:
			for _, ch := range changes {
				result.Successful = append(result.Successful, payment.StatusChangeResponse{
					PaymentID:      ch.Payment.ID,
					PreviousStatus: ch.PreviousStatus,
					NewStatus:      ch.Payment.Status,
				})
			}
		}
	}

	result.SuccessCount = len(result.Successful)
	result.FailureCount = len(result.Failed)
	result.TotalProcessed = result.SuccessCount + result.FailureCount

	slog.Info("payment status update finished",
		"company_id", companyID,
		"modifier_id", modifierID,
		"target_status", target,
		"success_count", result.SuccessCount,
		"failure_count", result.FailureCount,
	)

	return result, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
