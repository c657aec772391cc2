package payment

import (
	"context"
	"time"

	id "schoolpay/pkg/domain"
	"schoolpay/pkg/money"
)

// PolicyLine is one fee line a school publishes for a term.
type PolicyLine struct {
	Name       string
	Amount     money.Amount
	Compulsory bool
}

// FeePolicy governs what a checkout for one term may contain. Empty Lines
// means the school publishes no schedule for the term and line validation
// is skipped.
type FeePolicy struct {
	Lines              []PolicyLine
	InstallmentAllowed bool
}

// FeePolicyProvider resolves the fee policy of a payer's school for the
// session covering now. A nil policy with a nil error means no policy
// applies to this checkout.
type FeePolicyProvider interface {
	FeePolicy(ctx context.Context, schoolID id.SchoolID, now time.Time, term int) (*FeePolicy, error)
}
