package adapters

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"schoolpay/internal/school/service"
	"schoolpay/internal/user"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/sentinel"
	"schoolpay/pkg/requestcontext"
)

// UserStore is the slice of the user store roster enrollment needs.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Update(ctx context.Context, u *user.User) error
}

// UserDirectory enrolls roster entries as student accounts. New students get
// an unusable random password and claim their account through the
// password-reset flow.
type UserDirectory struct {
	users UserStore
}

func NewUserDirectory(users UserStore) *UserDirectory {
	return &UserDirectory{users: users}
}

// enrollAttempts bounds retries when a concurrent write bumps the user's
// version mid-enrollment.
const enrollAttempts = 3

func (d *UserDirectory) EnrollStudent(ctx context.Context, schoolID id.SchoolID, entry service.RosterEntry) (bool, error) {
	email := user.NormalizeEmail(entry.Email)

	for attempt := 0; attempt < enrollAttempts; attempt++ {
		existing, err := d.users.FindByEmail(ctx, email)
		if errors.Is(err, sentinel.ErrNotFound) {
			created, err := d.create(ctx, schoolID, entry, email)
			if errors.Is(err, sentinel.ErrConflict) {
				// Raced another import of the same student; update instead.
				continue
			}
			return created, err
		}
		if err != nil {
			return false, fmt.Errorf("look up student: %w", err)
		}

		existing.School = schoolID
		for k, v := range entry.CustomValues {
			if existing.CustomValues == nil {
				existing.CustomValues = make(map[string]string)
			}
			existing.CustomValues[k] = v
		}
		err = d.users.Update(ctx, existing)
		if errors.Is(err, sentinel.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("update student: %w", err)
		}
		return false, nil
	}
	return false, errors.New("enrollment contention, row not applied")
}

func (d *UserDirectory) create(ctx context.Context, schoolID id.SchoolID, entry service.RosterEntry, email string) (bool, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return false, fmt.Errorf("generate placeholder password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(raw)), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash placeholder password: %w", err)
	}

	u := &user.User{
		ID:           id.NewUserID(),
		FirstName:    entry.FirstName,
		LastName:     entry.LastName,
		Email:        email,
		Username:     user.Slugify(entry.FirstName + " " + entry.LastName),
		Role:         user.RoleStudent,
		PasswordHash: hash,
		School:       schoolID,
		CustomValues: entry.CustomValues,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := d.users.Create(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
