package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	pg "schoolpay/internal/platform/postgres"
	"schoolpay/internal/school"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/sentinel"
	txcontext "schoolpay/pkg/platform/tx"
)

// PostgresStore persists schools. Fee items and the custom-field registry are
// jsonb columns; both are small and always read whole.
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

const schoolColumns = `
	id, name, slug, owner_id, address, phone, email, logo,
	tag, header, bio, color, social_links,
	fee_items, sessions, fee_deadline, installment, custom_fields,
	version, created_at
`

func (s *PostgresStore) Create(ctx context.Context, sc *school.School) error {
	cols, err := marshalJSONColumns(sc)
	if err != nil {
		return err
	}

	sc.Version = 1
	query := `
		INSERT INTO schools (` + schoolColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		sc.ID.String(), sc.Name, sc.Slug, sc.OwnerID.String(), sc.Address, sc.Phone, sc.Email, sc.Logo,
		sc.Tag, sc.Header, sc.Bio, sc.Color, cols.social,
		cols.feeItems, cols.sessions, sc.FeeDeadline, sc.Installment, cols.customFields,
		sc.Version, sc.CreatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert school: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, schoolID id.SchoolID) (*school.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1`
	return s.scanSchool(s.execer(ctx).QueryRowContext(ctx, query, schoolID.String()))
}

func (s *PostgresStore) FindByOwner(ctx context.Context, ownerID id.UserID) (*school.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE owner_id = $1`
	return s.scanSchool(s.execer(ctx).QueryRowContext(ctx, query, ownerID.String()))
}

func (s *PostgresStore) Update(ctx context.Context, sc *school.School) error {
	cols, err := marshalJSONColumns(sc)
	if err != nil {
		return err
	}

	query := `
		UPDATE schools SET
			name = $3, slug = $4, address = $5, phone = $6, email = $7, logo = $8,
			tag = $9, header = $10, bio = $11, color = $12, social_links = $13,
			fee_items = $14, sessions = $15, fee_deadline = $16, installment = $17,
			custom_fields = $18,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		sc.ID.String(), sc.Version,
		sc.Name, sc.Slug, sc.Address, sc.Phone, sc.Email, sc.Logo,
		sc.Tag, sc.Header, sc.Bio, sc.Color, cols.social,
		cols.feeItems, cols.sessions, sc.FeeDeadline, sc.Installment,
		cols.customFields,
	)
	if err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrVersionMismatch
	}
	sc.Version++
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, schoolID id.SchoolID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, schoolID.String())
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]school.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools ORDER BY created_at`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	defer rows.Close()

	var schools []school.School
	for rows.Next() {
		sc, err := s.scanSchoolRow(rows)
		if err != nil {
			return nil, err
		}
		schools = append(schools, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schools: %w", err)
	}
	return schools, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanSchool(row *sql.Row) (*school.School, error) {
	sc, err := s.scanSchoolRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return sc, err
}

func (s *PostgresStore) scanSchoolRow(row rowScanner) (*school.School, error) {
	var (
		sc           school.School
		schoolID     string
		ownerID      string
		social       []byte
		feeItems     []byte
		sessions     []byte
		feeDeadline  sql.NullTime
		customFields []byte
	)

	err := row.Scan(
		&schoolID, &sc.Name, &sc.Slug, &ownerID, &sc.Address, &sc.Phone, &sc.Email, &sc.Logo,
		&sc.Tag, &sc.Header, &sc.Bio, &sc.Color, &social,
		&feeItems, &sessions, &feeDeadline, &sc.Installment, &customFields,
		&sc.Version, &sc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan school: %w", err)
	}

	parsedID, err := uuid.Parse(schoolID)
	if err != nil {
		return nil, fmt.Errorf("scan school id: %w", err)
	}
	sc.ID = id.SchoolID(parsedID)
	parsedOwner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, fmt.Errorf("scan owner id: %w", err)
	}
	sc.OwnerID = id.UserID(parsedOwner)

	if feeDeadline.Valid {
		t := feeDeadline.Time
		sc.FeeDeadline = &t
	}
	for _, col := range []struct {
		raw  []byte
		dst  any
		name string
	}{
		{social, &sc.Social, "social links"},
		{feeItems, &sc.FeeItems, "fee items"},
		{sessions, &sc.Sessions, "sessions"},
		{customFields, &sc.CustomFields, "custom fields"},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", col.name, err)
		}
	}
	return &sc, nil
}

type jsonColumns struct {
	social       []byte
	feeItems     []byte
	sessions     []byte
	customFields []byte
}

func marshalJSONColumns(sc *school.School) (jsonColumns, error) {
	var cols jsonColumns
	var err error

	if cols.social, err = json.Marshal(sc.Social); err != nil {
		return cols, fmt.Errorf("marshal social links: %w", err)
	}
	if sc.FeeItems != nil {
		if cols.feeItems, err = json.Marshal(sc.FeeItems); err != nil {
			return cols, fmt.Errorf("marshal fee items: %w", err)
		}
	}
	if sc.Sessions != nil {
		if cols.sessions, err = json.Marshal(sc.Sessions); err != nil {
			return cols, fmt.Errorf("marshal sessions: %w", err)
		}
	}
	if sc.CustomFields != nil {
		if cols.customFields, err = json.Marshal(sc.CustomFields); err != nil {
			return cols, fmt.Errorf("marshal custom fields: %w", err)
		}
	}
	return cols, nil
}
