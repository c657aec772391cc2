package payment

import (
	"errors"
	"time"

	id "schoolpay/pkg/domain"
	"schoolpay/pkg/money"
)

// FeeLine is one named component of a fee breakdown, in minor currency units.
type FeeLine struct {
	Name   string       `json:"name"`
	Amount money.Amount `json:"amount"`
}

// RecordKind tags what a payment record represents.
type RecordKind string

const (
	// RecordKindFull is a one-shot payment attempt for the whole fee.
	RecordKindFull RecordKind = "full"
	// RecordKindInstallment is a recurring-billing payment attempt.
	RecordKindInstallment RecordKind = "installment"
	// RecordKindMarker proves a gateway event id has already been applied.
	// Its Reference holds the event id; uniqueness of references is the
	// idempotency boundary.
	RecordKindMarker RecordKind = "reconciliationMarker"
)

// PaymentRecord is one row in the append-only payment log.
// Invariant: Reference is globally unique.
type PaymentRecord struct {
	Reference  string
	Kind       RecordKind
	FeeLines   []FeeLine
	PayerEmail string
	Term       int
	CreatedAt  time.Time
}

// EventType is the normalized gateway notification type.
type EventType string

const (
	// EventSingle settles the full fee in one payment.
	EventSingle EventType = "single"
	// EventRecurringFirst is the first successful installment debit.
	EventRecurringFirst EventType = "recurringFirst"
	// EventRecurringDebit is a subsequent installment debit.
	EventRecurringDebit EventType = "recurringDebit"
)

// GatewayNotification is the normalized form of an inbound webhook event.
// Never persisted directly; markers are derived from EventID.
type GatewayNotification struct {
	EventID    string
	EventType  EventType
	Reference  string
	PayerEmail string
}

// settledInstallments is the counter value at which an installment plan is
// considered settled.
const settledInstallments = 3

// Entitlement is a payer's tuition-payment standing for a school/term.
// Invariant: FullyPaid is true iff the plan settled (3 installments) or a
// one-shot full payment occurred; InstallmentsPaid stays within 0..3.
type Entitlement struct {
	School           id.SchoolID `json:"school"`
	FullyPaid        bool        `json:"fully_paid"`
	InstallmentsPaid int         `json:"installments_paid"`
	Term             int         `json:"term"`
	FeeLines         []FeeLine   `json:"fee_lines"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Payer is the slice of a user the reconciliation flow needs. Version guards
// entitlement writes against concurrent updates for the same payer.
type Payer struct {
	ID          id.UserID
	Email       string
	School      id.SchoolID
	Entitlement *Entitlement
	Version     int64
}

// OutcomeStatus classifies the result of one reconciliation attempt.
type OutcomeStatus string

const (
	// OutcomeApplied means the entitlement was updated and a marker written.
	OutcomeApplied OutcomeStatus = "applied"
	// OutcomeAlreadyProcessed means a marker for the event id already exists.
	OutcomeAlreadyProcessed OutcomeStatus = "already_processed"
)

// Outcome is the result of reconciling one gateway notification.
type Outcome struct {
	Status      OutcomeStatus
	Entitlement *Entitlement
}

// Reconciliation failure taxonomy. Soft conditions (already processed,
// unsupported event type) are acked and skipped; the rest surface to the
// operator log.
var (
	ErrMalformedPayload     = errors.New("malformed gateway payload")
	ErrUnsupportedEventType = errors.New("unsupported gateway event type")
	ErrUnknownReference     = errors.New("unknown payment reference")
	ErrUnknownPayer         = errors.New("unknown payer")
	ErrInvariantViolation   = errors.New("entitlement invariant violation")
)

// Total sums fee lines in minor units.
func Total(lines []FeeLine) money.Amount {
	var sum money.Amount
	for _, l := range lines {
		sum += l.Amount
	}
	return sum
}

func copyFeeLines(lines []FeeLine) []FeeLine {
	if lines == nil {
		return nil
	}
	out := make([]FeeLine, len(lines))
	copy(out, lines)
	return out
}
