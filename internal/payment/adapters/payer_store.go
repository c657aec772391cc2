package adapters

import (
	"context"

	"schoolpay/internal/payment"
	"schoolpay/internal/user"
	id "schoolpay/pkg/domain"
)

// UserStore is the slice of the user store the payment module reads.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	UpdateEntitlement(ctx context.Context, userID id.UserID, version int64, ent payment.Entitlement) error
}

// PayerStoreAdapter narrows the user store to the payer view the
// reconciliation flow needs, keeping the payment package free of a
// dependency on user internals.
type PayerStoreAdapter struct {
	users UserStore
}

func NewPayerStore(users UserStore) *PayerStoreAdapter {
	return &PayerStoreAdapter{users: users}
}

func (a *PayerStoreAdapter) FindByID(ctx context.Context, userID id.UserID) (*payment.Payer, error) {
	u, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toPayer(u), nil
}

func (a *PayerStoreAdapter) FindByEmail(ctx context.Context, email string) (*payment.Payer, error) {
	u, err := a.users.FindByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return toPayer(u), nil
}

func (a *PayerStoreAdapter) UpdateEntitlement(ctx context.Context, userID id.UserID, version int64, ent payment.Entitlement) error {
	return a.users.UpdateEntitlement(ctx, userID, version, ent)
}

func toPayer(u *user.User) *payment.Payer {
	return &payment.Payer{
		ID:          u.ID,
		Email:       u.Email,
		School:      u.School,
		Entitlement: u.Entitlement,
		Version:     u.Version,
	}
}
