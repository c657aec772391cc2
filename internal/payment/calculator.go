package payment

import (
	"fmt"
	"time"

	id "schoolpay/pkg/domain"
)

// CalculatorInput carries everything the entitlement transition needs: the
// payer's current standing (nil for a first payment), the normalized event
// type, and the fee breakdown and term snapshotted on the payment record.
type CalculatorInput struct {
	Current   *Entitlement
	EventType EventType
	FeeLines  []FeeLine
	Term      int
	School    id.SchoolID
	Now       time.Time
}

// NextEntitlement is the pure state-transition table for payment standing.
// It performs no I/O; the dispatcher owns loading and persisting.
//
// Transitions:
//   - single:          FullyPaid=true, installment counter untouched
//   - recurringFirst:  counter=1, FullyPaid=false
//   - recurringDebit:  counter+1; reaching 3 settles the plan
//
// A notification whose term differs from a settled entitlement's term starts
// a fresh cycle instead of mutating the settled standing. The school
// reference never changes once set except on that fresh-cycle reset.
func NextEntitlement(in CalculatorInput) (Entitlement, error) {
	if in.Term < 1 || in.Term > 3 {
		return Entitlement{}, fmt.Errorf("%w: term %d out of range", ErrInvariantViolation, in.Term)
	}

	current := in.Current
	if current != nil && current.FullyPaid && current.Term != in.Term {
		// Settled entitlement for another term: new payment cycle.
		current = nil
	}

	next := Entitlement{
		School:    in.School,
		Term:      in.Term,
		FeeLines:  copyFeeLines(in.FeeLines),
		UpdatedAt: in.Now,
	}
	if current != nil && !current.School.IsNil() {
		next.School = current.School
	}

	switch in.EventType {
	case EventSingle:
		next.FullyPaid = true
		if current != nil {
			next.InstallmentsPaid = current.InstallmentsPaid
		}

	case EventRecurringFirst:
		next.InstallmentsPaid = 1
		next.FullyPaid = false

	case EventRecurringDebit:
		paid := 1
		if current != nil {
			paid = current.InstallmentsPaid + 1
		}
		if paid > settledInstallments {
			return Entitlement{}, fmt.Errorf("%w: installments paid would exceed %d",
				ErrInvariantViolation, settledInstallments)
		}
		next.InstallmentsPaid = paid
		next.FullyPaid = paid == settledInstallments

	default:
		return Entitlement{}, fmt.Errorf("%w: %q", ErrUnsupportedEventType, in.EventType)
	}

	return next, nil
}
