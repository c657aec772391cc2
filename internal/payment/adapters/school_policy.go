package adapters

import (
	"context"
	"errors"
	"time"

	"schoolpay/internal/payment"
	"schoolpay/internal/school"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/sentinel"
)

// SchoolStore is the school lookup the fee policy needs.
type SchoolStore interface {
	FindByID(ctx context.Context, schoolID id.SchoolID) (*school.School, error)
}

// SchoolPolicyAdapter resolves a payer's school into the fee policy for the
// session covering now. A school whose calendar does not cover now publishes
// no lines, so only the installment flag is enforced.
type SchoolPolicyAdapter struct {
	schools SchoolStore
}

func NewSchoolPolicy(schools SchoolStore) *SchoolPolicyAdapter {
	return &SchoolPolicyAdapter{schools: schools}
}

func (a *SchoolPolicyAdapter) FeePolicy(ctx context.Context, schoolID id.SchoolID, now time.Time, term int) (*payment.FeePolicy, error) {
	sc, err := a.schools.FindByID(ctx, schoolID)
	if errors.Is(err, sentinel.ErrNotFound) {
		// The school row may lag the payer's attachment; nothing to enforce.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pol := &payment.FeePolicy{InstallmentAllowed: sc.Installment}
	session := sc.CurrentSession(now)
	if session == "" {
		return pol, nil
	}
	for _, f := range sc.FeesFor(session, term) {
		pol.Lines = append(pol.Lines, payment.PolicyLine{
			Name:       f.Name,
			Amount:     f.Amount,
			Compulsory: f.Compulsory,
		})
	}
	return pol, nil
}
