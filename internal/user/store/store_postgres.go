package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schoolpay/internal/payment"
	pg "schoolpay/internal/platform/postgres"
	"schoolpay/internal/user"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/sentinel"
	txcontext "schoolpay/pkg/platform/tx"
)

// PostgresStore persists users. Entitlement and custom values live as jsonb
// next to the row so entitlement writes stay a single-row conditional update.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const userColumns = `
	id, first_name, last_name, email, username, role, password_hash,
	bio, bank_name, bank_code, account_name, account_number, picture,
	school_id, custom_values, entitlement,
	reset_token_hash, reset_token_expires, version, created_at
`

func (s *PostgresStore) Create(ctx context.Context, u *user.User) error {
	customValues, entitlement, err := marshalJSONFields(u)
	if err != nil {
		return err
	}

	u.Version = 1
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		u.ID.String(), u.FirstName, u.LastName, u.Email, u.Username, string(u.Role), u.PasswordHash,
		u.Bio, u.BankName, u.BankCode, u.AccountName, u.AccountNumber, u.Picture,
		nullableSchool(u.School), customValues, entitlement,
		u.ResetTokenHash, nullableTime(u.ResetTokenExpires), u.Version, u.CreatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.execer(ctx).QueryRowContext(ctx, query, userID.String()))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.scanUser(s.execer(ctx).QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) Update(ctx context.Context, u *user.User) error {
	customValues, entitlement, err := marshalJSONFields(u)
	if err != nil {
		return err
	}

	query := `
		UPDATE users SET
			first_name = $3, last_name = $4, email = $5, username = $6, role = $7,
			password_hash = $8, bio = $9, bank_name = $10, bank_code = $11,
			account_name = $12, account_number = $13, picture = $14,
			school_id = $15, custom_values = $16, entitlement = $17,
			reset_token_hash = $18, reset_token_expires = $19,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		u.ID.String(), u.Version,
		u.FirstName, u.LastName, u.Email, u.Username, string(u.Role),
		u.PasswordHash, u.Bio, u.BankName, u.BankCode,
		u.AccountName, u.AccountNumber, u.Picture,
		nullableSchool(u.School), customValues, entitlement,
		u.ResetTokenHash, nullableTime(u.ResetTokenExpires),
	)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrVersionMismatch
	}
	u.Version++
	return nil
}

func (s *PostgresStore) UpdateEntitlement(ctx context.Context, userID id.UserID, version int64, ent payment.Entitlement) error {
	entitlement, err := json.Marshal(ent)
	if err != nil {
		return fmt.Errorf("marshal entitlement: %w", err)
	}

	query := `
		UPDATE users SET entitlement = $3, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, userID.String(), version, entitlement)
	if err != nil {
		return fmt.Errorf("update entitlement: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entitlement: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrVersionMismatch
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := s.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanUser(row *sql.Row) (*user.User, error) {
	u, err := s.scanUserRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return u, err
}

func (s *PostgresStore) scanUserRow(row rowScanner) (*user.User, error) {
	var (
		u            user.User
		userID       string
		role         string
		schoolID     sql.NullString
		customValues []byte
		entitlement  []byte
		resetExpires sql.NullTime
	)

	err := row.Scan(
		&userID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &role, &u.PasswordHash,
		&u.Bio, &u.BankName, &u.BankCode, &u.AccountName, &u.AccountNumber, &u.Picture,
		&schoolID, &customValues, &entitlement,
		&u.ResetTokenHash, &resetExpires, &u.Version, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("scan user id: %w", err)
	}
	u.ID = id.UserID(parsedID)
	u.Role = user.Role(role)
	if schoolID.Valid {
		parsedSchool, err := uuid.Parse(schoolID.String)
		if err != nil {
			return nil, fmt.Errorf("scan school id: %w", err)
		}
		u.School = id.SchoolID(parsedSchool)
	}
	if len(customValues) > 0 {
		if err := json.Unmarshal(customValues, &u.CustomValues); err != nil {
			return nil, fmt.Errorf("unmarshal custom values: %w", err)
		}
	}
	if len(entitlement) > 0 {
		var ent payment.Entitlement
		if err := json.Unmarshal(entitlement, &ent); err != nil {
			return nil, fmt.Errorf("unmarshal entitlement: %w", err)
		}
		u.Entitlement = &ent
	}
	if resetExpires.Valid {
		u.ResetTokenExpires = resetExpires.Time
	}
	return &u, nil
}

func marshalJSONFields(u *user.User) (customValues, entitlement []byte, err error) {
	if u.CustomValues != nil {
		customValues, err = json.Marshal(u.CustomValues)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal custom values: %w", err)
		}
	}
	if u.Entitlement != nil {
		entitlement, err = json.Marshal(u.Entitlement)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal entitlement: %w", err)
		}
	}
	return customValues, entitlement, nil
}

func nullableSchool(schoolID id.SchoolID) sql.NullString {
	if schoolID.IsNil() {
		return sql.NullString{}
	}
	return sql.NullString{String: schoolID.String(), Valid: true}
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
