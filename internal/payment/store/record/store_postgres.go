package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"schoolpay/internal/payment"
	pg "schoolpay/internal/platform/postgres"
	"schoolpay/pkg/platform/sentinel"
	txcontext "schoolpay/pkg/platform/tx"
)

// PostgresStore persists the append-only payment log. The primary key on
// reference is the idempotency boundary: marker inserts for an already
// processed event id fail with sentinel.ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Insert(ctx context.Context, rec payment.PaymentRecord) error {
	feeLines, err := json.Marshal(rec.FeeLines)
	if err != nil {
		return fmt.Errorf("marshal fee lines: %w", err)
	}

	query := `
		INSERT INTO payment_records (reference, kind, payer_email, term, fee_lines, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (reference) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		rec.Reference,
		string(rec.Kind),
		rec.PayerEmail,
		rec.Term,
		feeLines,
		rec.CreatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert payment record: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert payment record: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByReference(ctx context.Context, reference string) (*payment.PaymentRecord, error) {
	query := `
		SELECT reference, kind, payer_email, term, fee_lines, created_at
		FROM payment_records
		WHERE reference = $1
	`

	var (
		rec      payment.PaymentRecord
		kind     string
		feeLines []byte
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, reference).Scan(
		&rec.Reference,
		&kind,
		&rec.PayerEmail,
		&rec.Term,
		&feeLines,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment record: %w", err)
	}

	rec.Kind = payment.RecordKind(kind)
	if err := json.Unmarshal(feeLines, &rec.FeeLines); err != nil {
		return nil, fmt.Errorf("unmarshal fee lines: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) MarkerExists(ctx context.Context, eventID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payment_records
			WHERE reference = $1 AND kind = $2
		)
	`

	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, query, eventID, string(payment.RecordKindMarker)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query reconciliation marker: %w", err)
	}
	return exists, nil
}
