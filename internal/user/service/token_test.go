package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolpay/internal/user"
	id "schoolpay/pkg/domain"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("signing-key", time.Hour)
	u := &user.User{ID: id.NewUserID(), Role: user.RoleSchool}

	token, err := issuer.Issue(u)
	require.NoError(t, err)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, string(user.RoleSchool), claims.Role)
}

func TestTokenIssuer_RejectsWrongKey(t *testing.T) {
	issuer := NewTokenIssuer("signing-key", time.Hour)
	other := NewTokenIssuer("different-key", time.Hour)

	token, err := issuer.Issue(&user.User{ID: id.NewUserID(), Role: user.RoleStudent})
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("signing-key", time.Minute)
	issued := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Issue(&user.User{ID: id.NewUserID(), Role: user.RoleStudent})
	require.NoError(t, err)

	issuer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = issuer.ValidateToken(token)
	require.Error(t, err)
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("signing-key", time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := issuer.ValidateToken(token)
		require.Error(t, err, "token %q", token)
	}
}
