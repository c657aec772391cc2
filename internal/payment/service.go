package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"schoolpay/internal/payment/gateway"
	"schoolpay/internal/payment/metrics"
	"schoolpay/internal/platform/config"
	id "schoolpay/pkg/domain"
	dErrors "schoolpay/pkg/domain-errors"
	"schoolpay/pkg/platform/sentinel"
	"schoolpay/pkg/requestcontext"
)

// RecordStore is the append-only payment log. Insert must reject duplicate
// references with sentinel.ErrConflict; that rejection is the idempotency
// primitive the dispatcher builds on.
type RecordStore interface {
	Insert(ctx context.Context, rec PaymentRecord) error
	FindByReference(ctx context.Context, reference string) (*PaymentRecord, error)
	MarkerExists(ctx context.Context, eventID string) (bool, error)
}

// PayerStore exposes the user slice the payment module needs.
// UpdateEntitlement is conditional on version and returns
// sentinel.ErrVersionMismatch when a concurrent write won.
type PayerStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*Payer, error)
	FindByEmail(ctx context.Context, email string) (*Payer, error)
	UpdateEntitlement(ctx context.Context, userID id.UserID, version int64, ent Entitlement) error
}

// TxRunner groups store writes into one transaction when the backing store
// supports it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Gateway is the payment provider API surface the service consumes.
type Gateway interface {
	EncryptKeys(ctx context.Context) (json.RawMessage, error)
	GenerateHash(ctx context.Context, req gateway.CheckoutRequest) (string, error)
	InitiatePayment(ctx context.Context, req gateway.CheckoutRequest) (json.RawMessage, error)
	CreateSubscription(ctx context.Context, req gateway.SubscriptionRequest) (json.RawMessage, error)
}

// noopTxRunner backs deployments on the in-memory stores, where each store
// call is already atomic.
type noopTxRunner struct{}

func (noopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service orchestrates payment initiation and webhook reconciliation.
type Service struct {
	records    RecordStore
	payers     PayerStore
	gateway    Gateway
	gatewayCfg config.GatewayConfig
	locks      Locker
	tx         TxRunner
	policy     FeePolicyProvider
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// Option customizes optional service collaborators.
type Option func(*Service)

func WithLocker(l Locker) Option               { return func(s *Service) { s.locks = l } }
func WithTxRunner(tx TxRunner) Option          { return func(s *Service) { s.tx = tx } }
func WithFeePolicy(p FeePolicyProvider) Option { return func(s *Service) { s.policy = p } }
func WithMetrics(m *metrics.Metrics) Option    { return func(s *Service) { s.metrics = m } }
func WithLogger(l *slog.Logger) Option         { return func(s *Service) { s.logger = l } }

func NewService(records RecordStore, payers PayerStore, gw Gateway, gatewayCfg config.GatewayConfig, opts ...Option) *Service {
	s := &Service{
		records:    records,
		payers:     payers,
		gateway:    gw,
		gatewayCfg: gatewayCfg,
		locks:      NewKeyedMutex(),
		tx:         noopTxRunner{},
		logger:     slog.Default(),
		tracer:     otel.Tracer("schoolpay/payment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// maxReconcileAttempts bounds version-mismatch retries. With the per-payer
// lock held, more than one retry means something else is writing entitlements
// outside this flow.
const maxReconcileAttempts = 3

// Reconcile applies one normalized gateway notification to the payer's
// entitlement, exactly once per event id regardless of redeliveries.
//
// The entitlement write precedes the marker write inside one transaction; a
// marker therefore never exists without its entitlement update. A crash
// between the two (no transaction support) re-runs the whole flow on
// redelivery, which converges because the marker check runs first.
func (s *Service) Reconcile(ctx context.Context, n GatewayNotification) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "payment.reconcile", trace.WithAttributes(
		attribute.String("gateway.event_id", n.EventID),
		attribute.String("gateway.event_type", string(n.EventType)),
	))
	defer span.End()

	processed, err := s.records.MarkerExists(ctx, n.EventID)
	if err != nil {
		return Outcome{}, s.persistenceErr(span, err, "check reconciliation marker")
	}
	if processed {
		s.metrics.IncReconciliation(string(OutcomeAlreadyProcessed))
		return Outcome{Status: OutcomeAlreadyProcessed}, nil
	}

	rec, err := s.records.FindByReference(ctx, n.Reference)
	if errors.Is(err, sentinel.ErrNotFound) {
		// No marker is written: the record may still arrive and the event
		// will reconcile cleanly on redelivery.
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownReference, n.Reference)
	}
	if err != nil {
		return Outcome{}, s.persistenceErr(span, err, "load payment record")
	}

	release, err := s.locks.Acquire(ctx, "payer:"+rec.PayerEmail)
	if err != nil {
		return Outcome{}, s.persistenceErr(span, err, "acquire payer lock")
	}
	defer release()

	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		payer, err := s.payers.FindByEmail(ctx, rec.PayerEmail)
		if errors.Is(err, sentinel.ErrNotFound) {
			return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownPayer, rec.PayerEmail)
		}
		if err != nil {
			return Outcome{}, s.persistenceErr(span, err, "load payer")
		}

		next, err := NextEntitlement(CalculatorInput{
			Current:   payer.Entitlement,
			EventType: n.EventType,
			FeeLines:  rec.FeeLines,
			Term:      rec.Term,
			School:    payer.School,
			Now:       requestcontext.Now(ctx),
		})
		if err != nil {
			span.RecordError(err)
			return Outcome{}, err
		}

		err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.payers.UpdateEntitlement(txCtx, payer.ID, payer.Version, next); err != nil {
				return err
			}
			return s.records.Insert(txCtx, PaymentRecord{
				Reference:  n.EventID,
				Kind:       RecordKindMarker,
				PayerEmail: rec.PayerEmail,
				Term:       rec.Term,
				CreatedAt:  requestcontext.Now(ctx),
			})
		})
		switch {
		case err == nil:
			s.metrics.IncReconciliation(string(OutcomeApplied))
			return Outcome{Status: OutcomeApplied, Entitlement: &next}, nil
		case errors.Is(err, sentinel.ErrConflict):
			// Lost the duplicate-delivery race; the winner's marker stands.
			s.metrics.IncReconciliation(string(OutcomeAlreadyProcessed))
			return Outcome{Status: OutcomeAlreadyProcessed}, nil
		case errors.Is(err, sentinel.ErrVersionMismatch):
			continue
		default:
			return Outcome{}, s.persistenceErr(span, err, "apply entitlement")
		}
	}

	return Outcome{}, dErrors.New(dErrors.CodeUnavailable, "reconciliation contention, retry on redelivery")
}

// InitiateInput starts a one-shot checkout for a payer.
type InitiateInput struct {
	UserID   id.UserID
	Term     int
	FeeLines []FeeLine
}

// CardDetails are passed through to the gateway for recurring billing; they
// are never persisted.
type CardDetails struct {
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
	Name        string
}

// SubscribeInput starts a 3-installment recurring plan.
type SubscribeInput struct {
	UserID   id.UserID
	Term     int
	FeeLines []FeeLine
	Card     CardDetails
}

// GatewayToken fetches a fresh encrypted bearer key from the provider.
func (s *Service) GatewayToken(ctx context.Context) (json.RawMessage, error) {
	data, err := s.gateway.EncryptKeys(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "payment gateway unavailable")
	}
	return data, nil
}

// InitiateTransaction starts a one-shot checkout covering the full fee. The
// payment record is written only after the gateway accepts, so an unknown
// reference on the webhook always means lost local data, not a half-started
// checkout.
func (s *Service) InitiateTransaction(ctx context.Context, in InitiateInput) (json.RawMessage, error) {
	payer, err := s.loadInitiationPayer(ctx, in.UserID, in.Term, in.FeeLines)
	if err != nil {
		return nil, err
	}
	if err := s.checkFeePolicy(ctx, payer.School, in.Term, in.FeeLines, false); err != nil {
		return nil, err
	}

	reference := uuid.NewString()
	checkout := gateway.CheckoutRequest{
		PublicKey:          s.gatewayCfg.PublicKey,
		Amount:             Total(in.FeeLines).FormatDecimal(),
		Currency:           "NGN",
		Country:            "NG",
		PaymentReference:   reference,
		Email:              payer.Email,
		ProductID:          payer.School.String(),
		ProductDescription: fmt.Sprintf("term %d tuition", in.Term),
		CallbackURL:        s.gatewayCfg.CallbackURL,
	}

	hash, err := s.gateway.GenerateHash(ctx, checkout)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "payment gateway unavailable")
	}
	checkout.Hash = hash
	checkout.HashType = "sha256"

	resp, err := s.gateway.InitiatePayment(ctx, checkout)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "payment gateway unavailable")
	}

	if err := s.insertAttempt(ctx, reference, RecordKindFull, payer.Email, in); err != nil {
		return nil, err
	}
	s.metrics.IncPaymentInitiated(string(RecordKindFull))
	return resp, nil
}

// InitiateSubscription starts recurring billing that collects the fee over
// three monthly installments, each rounded up to a whole naira.
func (s *Service) InitiateSubscription(ctx context.Context, in SubscribeInput) (json.RawMessage, error) {
	payer, err := s.loadInitiationPayer(ctx, in.UserID, in.Term, in.FeeLines)
	if err != nil {
		return nil, err
	}
	if err := s.checkFeePolicy(ctx, payer.School, in.Term, in.FeeLines, true); err != nil {
		return nil, err
	}

	reference := uuid.NewString()
	sub := gateway.SubscriptionRequest{
		PublicKey:          s.gatewayCfg.PublicKey,
		PaymentReference:   reference,
		CardNumber:         in.Card.Number,
		ExpiryMonth:        in.Card.ExpiryMonth,
		ExpiryYear:         in.Card.ExpiryYear,
		CVV:                in.Card.CVV,
		CardName:           in.Card.Name,
		Amount:             Total(in.FeeLines).SplitInstallment(settledInstallments).FormatDecimal(),
		CallbackURL:        s.gatewayCfg.CallbackURL,
		Currency:           "NGN",
		Country:            "NG",
		ProductID:          payer.School.String(),
		ProductDescription: fmt.Sprintf("term %d tuition", in.Term),
		StartDate:          requestcontext.Now(ctx).Format("2006-01-02 15:04:05"),
		BillingCycle:       "MONTHLY",
		BillingPeriod:      "3",
		Type:               "3DSECURE",
		Email:              payer.Email,
		CustomerID:         payer.ID.String(),
		SubscriptionAmount: true,
	}

	resp, err := s.gateway.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "payment gateway unavailable")
	}

	if err := s.insertAttempt(ctx, reference, RecordKindInstallment, payer.Email, in.initiate()); err != nil {
		return nil, err
	}
	s.metrics.IncPaymentInitiated(string(RecordKindInstallment))
	return resp, nil
}

func (in SubscribeInput) initiate() InitiateInput {
	return InitiateInput{UserID: in.UserID, Term: in.Term, FeeLines: in.FeeLines}
}

func (s *Service) loadInitiationPayer(ctx context.Context, userID id.UserID, term int, feeLines []FeeLine) (*Payer, error) {
	if term < 1 || term > 3 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "term must be between 1 and 3")
	}
	if len(feeLines) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one fee line is required")
	}
	for _, l := range feeLines {
		if l.Name == "" || l.Amount <= 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "fee lines need a name and a positive amount")
		}
	}

	payer, err := s.payers.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user lookup failed")
	}
	if payer.School.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user is not attached to a school")
	}
	if ent := payer.Entitlement; ent != nil && ent.FullyPaid && ent.Term == term {
		return nil, dErrors.New(dErrors.CodeConflict, "tuition for this term is already settled")
	}
	return payer, nil
}

// checkFeePolicy validates requested fee lines against the school's
// published schedule for the current session: compulsory lines cannot be
// dropped, amounts must match, and unknown lines are rejected. Schools
// without a published schedule for the term impose no line constraints.
func (s *Service) checkFeePolicy(ctx context.Context, schoolID id.SchoolID, term int, lines []FeeLine, installment bool) error {
	if s.policy == nil {
		return nil
	}
	pol, err := s.policy.FeePolicy(ctx, schoolID, requestcontext.Now(ctx), term)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "fee schedule lookup failed")
	}
	if pol == nil {
		return nil
	}
	if installment && !pol.InstallmentAllowed {
		return dErrors.New(dErrors.CodeBadRequest, "this school does not offer installment plans")
	}
	if len(pol.Lines) == 0 {
		return nil
	}

	published := make(map[string]PolicyLine, len(pol.Lines))
	for _, l := range pol.Lines {
		published[l.Name] = l
	}
	requested := make(map[string]bool, len(lines))
	for _, l := range lines {
		pub, ok := published[l.Name]
		if !ok {
			return dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("fee %q is not on the school's schedule for term %d", l.Name, term))
		}
		if l.Amount != pub.Amount {
			return dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("fee %q does not match the published amount", l.Name))
		}
		requested[l.Name] = true
	}
	for _, l := range pol.Lines {
		if l.Compulsory && !requested[l.Name] {
			return dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("compulsory fee %q is missing from the checkout", l.Name))
		}
	}
	return nil
}

func (s *Service) insertAttempt(ctx context.Context, reference string, kind RecordKind, email string, in InitiateInput) error {
	rec := PaymentRecord{
		Reference:  reference,
		Kind:       kind,
		FeeLines:   copyFeeLines(in.FeeLines),
		PayerEmail: email,
		Term:       in.Term,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record payment attempt")
	}
	return nil
}

func (s *Service) persistenceErr(span trace.Span, err error, op string) error {
	span.RecordError(err)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, op+" failed")
}
