package payment

import (
	"fmt"
	"strings"
	"time"
)

// transitions lists, for each status, the statuses it may move to.
var transitions = map[PaymentStatus]map[PaymentStatus]struct{}{
	StatusCalculated: {StatusIssued: {}, StatusVoided: {}},
	StatusIssued:     {StatusCompleted: {}, StatusVoided: {}},
	StatusCompleted:  {},
	StatusVoided:     {},
}

// AllowedTargets returns the statuses reachable from current in one step.
func AllowedTargets(current PaymentStatus) []PaymentStatus {
	var targets []PaymentStatus
	for _, s := range AllStatuses() {
		if _, ok := transitions[current][s]; ok {
			targets = append(targets, s)
		}
	}
	return targets
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s PaymentStatus) bool {
	return len(transitions[s]) == 0
}

// ValidateTransition checks a single status change for the referenced payment.
// found is false when the payment does not exist in the caller's company.
func ValidateTransition(paymentID int64, found bool, current, target *PaymentStatus) error {
	if !found {
		return fmt.Errorf("%w: payment %d", ErrPaymentNotFound, paymentID)
	}
	if current == nil || target == nil {
		return fmt.Errorf("%w: payment %d: status must not be empty", ErrInvalidPaymentRequest, paymentID)
	}
	if *current == *target {
		return fmt.Errorf("%w: payment %d is already %s", ErrAlreadyInStatus, paymentID, *current)
	}
	if _, ok := transitions[*current][*target]; !ok {
		if IsTerminal(*current) {
			return fmt.Errorf("%w: payment %d cannot move from %s to %s: %s is final",
				ErrInvalidTransition, paymentID, *current, *target, *current)
		}
		return fmt.Errorf("%w: payment %d cannot move from %s to %s (allowed: %s)",
			ErrInvalidTransition, paymentID, *current, *target, joinStatuses(AllowedTargets(*current)))
	}
	return nil
}

func joinStatuses(statuses []PaymentStatus) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// ApplyTransition mutates p into target, stamping the timestamp that belongs to it.
// The transition must already be validated.
func ApplyTransition(p *Payment, target PaymentStatus, modifierID int64, voidReason *string, at time.Time) {
	p.Status = target
	p.ModifiedBy = modifierID
	p.UpdatedAt = at

	switch target {
	case StatusIssued:
		p.IssuedAt = &at
	case StatusCompleted:
		p.CompletedAt = &at
	case StatusVoided:
		p.VoidedAt = &at
		p.VoidReason = voidReason
	}
}
