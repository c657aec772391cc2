package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolpay/internal/payment"
	"schoolpay/internal/user"
	"schoolpay/internal/user/store"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/sentinel"
)

func sampleUser(email string) *user.User {
	return &user.User{
		ID:           id.NewUserID(),
		FirstName:    "Ada",
		LastName:     "Obi",
		Email:        email,
		Username:     "ada-obi",
		Role:         user.RoleStudent,
		PasswordHash: []byte("hash"),
		CreatedAt:    time.Now(),
	}
}

func TestInMemoryStore_CreateAndFind(t *testing.T) {
	s := store.NewInMemory()
	ctx := context.Background()
	u := sampleUser("ada@example.com")

	require.NoError(t, s.Create(ctx, u))
	assert.Equal(t, int64(1), u.Version)

	byID, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)

	byEmail, err := s.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.FindByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_CreateRejectsDuplicateEmail(t *testing.T) {
	s := store.NewInMemory()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, sampleUser("ada@example.com")))
	err := s.Create(ctx, sampleUser("ada@example.com"))
	require.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryStore_UpdateIsVersionConditional(t *testing.T) {
	s := store.NewInMemory()
	ctx := context.Background()
	u := sampleUser("ada@example.com")
	require.NoError(t, s.Create(ctx, u))

	u.Bio = "maths teacher"
	require.NoError(t, s.Update(ctx, u))
	assert.Equal(t, int64(2), u.Version)

	stale := *u
	stale.Version = 1
	err := s.Update(ctx, &stale)
	require.ErrorIs(t, err, sentinel.ErrVersionMismatch)
}

func TestInMemoryStore_UpdateEntitlement(t *testing.T) {
	s := store.NewInMemory()
	ctx := context.Background()
	u := sampleUser("ada@example.com")
	require.NoError(t, s.Create(ctx, u))

	ent := payment.Entitlement{Term: 1, FullyPaid: true, UpdatedAt: time.Now()}
	require.NoError(t, s.UpdateEntitlement(ctx, u.ID, 1, ent))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Entitlement)
	assert.True(t, got.Entitlement.FullyPaid)
	assert.Equal(t, int64(2), got.Version)

	// Stale version loses.
	err = s.UpdateEntitlement(ctx, u.ID, 1, ent)
	require.ErrorIs(t, err, sentinel.ErrVersionMismatch)
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	s := store.NewInMemory()
	ctx := context.Background()
	u := sampleUser("ada@example.com")
	u.CustomValues = map[string]string{"class": "JSS1"}
	require.NoError(t, s.Create(ctx, u))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.CustomValues["class"] = "JSS2"
	got.Email = "evil@example.com"

	fresh, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "JSS1", fresh.CustomValues["class"])
	assert.Equal(t, "ada@example.com", fresh.Email)
}

func TestInMemoryStore_Delete(t *testing.T) {
	s := store.NewInMemory()
	ctx := context.Background()
	u := sampleUser("ada@example.com")
	require.NoError(t, s.Create(ctx, u))

	require.NoError(t, s.Delete(ctx, u.ID))
	_, err := s.FindByID(ctx, u.ID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	// Email is free again.
	require.NoError(t, s.Create(ctx, sampleUser("ada@example.com")))
	require.ErrorIs(t, s.Delete(ctx, u.ID), sentinel.ErrNotFound)
}

func TestInMemoryStore_List(t *testing.T) {
	s := store.NewInMemory()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleUser("a@example.com")))
	require.NoError(t, s.Create(ctx, sampleUser("b@example.com")))

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
