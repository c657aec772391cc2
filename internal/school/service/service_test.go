package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolpay/internal/school"
	"schoolpay/internal/school/adapters"
	"schoolpay/internal/school/service"
	schoolstore "schoolpay/internal/school/store"
	"schoolpay/internal/user"
	userstore "schoolpay/internal/user/store"
	id "schoolpay/pkg/domain"
	dErrors "schoolpay/pkg/domain-errors"
	"schoolpay/pkg/requestcontext"
)

type fixture struct {
	service *service.Service
	users   *userstore.InMemoryStore
	ownerID id.UserID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := userstore.NewInMemory()
	return &fixture{
		service: service.NewService(schoolstore.NewInMemory(), adapters.NewUserDirectory(users)),
		users:   users,
		ownerID: id.NewUserID(),
	}
}

// ownerCtx simulates an authenticated school-role request.
func (f *fixture) ownerCtx() context.Context {
	ctx := requestcontext.WithUserID(context.Background(), f.ownerID)
	return requestcontext.WithUserRole(ctx, string(user.RoleSchool))
}

func adminCtx() context.Context {
	ctx := requestcontext.WithUserID(context.Background(), id.NewUserID())
	return requestcontext.WithUserRole(ctx, string(user.RoleAdmin))
}

func (f *fixture) createSchool(t *testing.T) *school.School {
	t.Helper()
	sc, err := f.service.Create(f.ownerCtx(), f.ownerID, service.CreateInput{
		Name:  "Sunrise Academy",
		Email: "Office@Sunrise.example",
	})
	require.NoError(t, err)
	return sc
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	sc := f.createSchool(t)

	assert.Equal(t, "Sunrise Academy", sc.Name)
	assert.Equal(t, "sunrise-academy", sc.Slug)
	assert.Equal(t, f.ownerID, sc.OwnerID)
	assert.Equal(t, "office@sunrise.example", sc.Email)
	assert.False(t, sc.ID.IsNil())
}

func TestCreate_OneSchoolPerOwner(t *testing.T) {
	f := newFixture(t)
	f.createSchool(t)

	_, err := f.service.Create(f.ownerCtx(), f.ownerID, service.CreateInput{Name: "Second School"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCreate_RequiresName(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(f.ownerCtx(), f.ownerID, service.CreateInput{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestGetMine(t *testing.T) {
	f := newFixture(t)
	created := f.createSchool(t)

	sc, err := f.service.GetMine(f.ownerCtx(), f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, sc.ID)

	_, err = f.service.GetMine(f.ownerCtx(), id.NewUserID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestUpdate_OwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	sc := f.createSchool(t)
	name := "Sunset Academy"

	// A different school-role account may not touch it.
	strangerCtx := requestcontext.WithUserRole(
		requestcontext.WithUserID(context.Background(), id.NewUserID()),
		string(user.RoleSchool),
	)
	_, err := f.service.Update(strangerCtx, sc.ID, service.UpdateInput{Name: &name})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	// The owner may; renaming recomputes the slug.
	updated, err := f.service.Update(f.ownerCtx(), sc.ID, service.UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Sunset Academy", updated.Name)
	assert.Equal(t, "sunset-academy", updated.Slug)

	// So may an admin.
	addr := "12 School Road"
	updated, err = f.service.Update(adminCtx(), sc.ID, service.UpdateInput{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "12 School Road", updated.Address)
	assert.Equal(t, "Sunset Academy", updated.Name)
}

func TestUpdate_Profile(t *testing.T) {
	f := newFixture(t)
	sc := f.createSchool(t)

	tag := "Knowledge is light"
	bio := "A private school in Enugu."
	color := "#1a8917"
	installment := true
	deadline := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	updated, err := f.service.Update(f.ownerCtx(), sc.ID, service.UpdateInput{
		Tag:         &tag,
		Bio:         &bio,
		Color:       &color,
		Social:      &school.SocialLinks{Twitter: "https://twitter.com/sunrise"},
		FeeDeadline: &deadline,
		Installment: &installment,
		Sessions: []school.Session{{
			Name: "2026/2027",
			Terms: []school.TermPeriod{
				{No: 1, StartDate: date(2026, 9, 14), EndDate: date(2026, 12, 18)},
				{No: 2, StartDate: date(2027, 1, 11), EndDate: date(2027, 4, 9)},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Knowledge is light", updated.Tag)
	assert.Equal(t, "A private school in Enugu.", updated.Bio)
	assert.Equal(t, "#1a8917", updated.Color)
	assert.Equal(t, "https://twitter.com/sunrise", updated.Social.Twitter)
	assert.True(t, updated.Installment)
	require.NotNil(t, updated.FeeDeadline)
	assert.Equal(t, deadline, *updated.FeeDeadline)
	assert.Equal(t, "2026/2027", updated.CurrentSession(date(2026, 10, 1)))

	// Untouched fields survive the partial update.
	assert.Equal(t, "Sunrise Academy", updated.Name)
	assert.Equal(t, "office@sunrise.example", updated.Email)
}

func TestUpdate_SessionValidation(t *testing.T) {
	f := newFixture(t)
	sc := f.createSchool(t)

	tests := []struct {
		name    string
		session school.Session
	}{
		{"unnamed", school.Session{Terms: []school.TermPeriod{{No: 1, StartDate: date(2026, 9, 1), EndDate: date(2026, 12, 1)}}}},
		{"bad term number", school.Session{Name: "2026/2027", Terms: []school.TermPeriod{{No: 4, StartDate: date(2026, 9, 1), EndDate: date(2026, 12, 1)}}}},
		{"ends before start", school.Session{Name: "2026/2027", Terms: []school.TermPeriod{{No: 1, StartDate: date(2026, 12, 1), EndDate: date(2026, 9, 1)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Update(f.ownerCtx(), sc.ID, service.UpdateInput{
				Sessions: []school.Session{tt.session},
			})
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSetFees(t *testing.T) {
	f := newFixture(t)
	sc := f.createSchool(t)

	items := []school.FeeItem{
		{Name: "tuition", Amount: 45000, Session: "2026/2027", Term: 1},
		{Name: "books", Amount: 5000, Session: "2026/2027", Term: 1},
		{Name: "tuition", Amount: 45000, Session: "2026/2027", Term: 2},
	}
	updated, err := f.service.SetFees(f.ownerCtx(), sc.ID, items)
	require.NoError(t, err)
	assert.Len(t, updated.FeeItems, 3)
	assert.Len(t, updated.FeesFor("2026/2027", 1), 2)
	assert.Len(t, updated.FeesFor("2026/2027", 3), 0)
}

func TestSetFees_Validation(t *testing.T) {
	f := newFixture(t)
	sc := f.createSchool(t)

	tests := []struct {
		name string
		item school.FeeItem
	}{
		{"unnamed", school.FeeItem{Amount: 1, Session: "2026/2027", Term: 1}},
		{"zero amount", school.FeeItem{Name: "tuition", Session: "2026/2027", Term: 1}},
		{"bad term", school.FeeItem{Name: "tuition", Amount: 1, Session: "2026/2027", Term: 4}},
		{"no session", school.FeeItem{Name: "tuition", Amount: 1, Term: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SetFees(f.ownerCtx(), sc.ID, []school.FeeItem{tt.item})
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	sc := f.createSchool(t)

	require.NoError(t, f.service.Delete(adminCtx(), sc.ID))
	_, err := f.service.Get(adminCtx(), sc.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
