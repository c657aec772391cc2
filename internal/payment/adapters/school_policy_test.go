package adapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolpay/internal/payment/adapters"
	"schoolpay/internal/school"
	schoolstore "schoolpay/internal/school/store"
	id "schoolpay/pkg/domain"
)

func seedSchool(t *testing.T, store *schoolstore.InMemoryStore) *school.School {
	t.Helper()
	sc := &school.School{
		ID:          id.NewSchoolID(),
		Name:        "Sunrise Academy",
		OwnerID:     id.NewUserID(),
		Installment: true,
		Sessions: []school.Session{{
			Name: "2026/2027",
			Terms: []school.TermPeriod{{
				No:        1,
				StartDate: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC),
			}},
		}},
		FeeItems: []school.FeeItem{
			{Name: "tuition", Compulsory: true, Amount: 45000, Session: "2026/2027", Term: 1},
			{Name: "bus", Amount: 10000, Session: "2026/2027", Term: 1},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), sc))
	return sc
}

func TestSchoolPolicy_PublishesCurrentSessionLines(t *testing.T) {
	store := schoolstore.NewInMemory()
	sc := seedSchool(t, store)
	policy := adapters.NewSchoolPolicy(store)

	inTerm := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	pol, err := policy.FeePolicy(context.Background(), sc.ID, inTerm, 1)
	require.NoError(t, err)
	require.NotNil(t, pol)

	assert.True(t, pol.InstallmentAllowed)
	require.Len(t, pol.Lines, 2)
	assert.True(t, pol.Lines[0].Compulsory)
	assert.Equal(t, "bus", pol.Lines[1].Name)
	assert.False(t, pol.Lines[1].Compulsory)
}

func TestSchoolPolicy_OutsideCalendarPublishesNoLines(t *testing.T) {
	store := schoolstore.NewInMemory()
	sc := seedSchool(t, store)
	policy := adapters.NewSchoolPolicy(store)

	holiday := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	pol, err := policy.FeePolicy(context.Background(), sc.ID, holiday, 1)
	require.NoError(t, err)
	require.NotNil(t, pol)

	assert.Empty(t, pol.Lines)
	assert.True(t, pol.InstallmentAllowed)
}

func TestSchoolPolicy_UnknownSchoolImposesNothing(t *testing.T) {
	policy := adapters.NewSchoolPolicy(schoolstore.NewInMemory())

	pol, err := policy.FeePolicy(context.Background(), id.NewSchoolID(), time.Now(), 1)
	require.NoError(t, err)
	assert.Nil(t, pol)
}
