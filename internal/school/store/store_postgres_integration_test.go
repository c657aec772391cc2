//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"schoolpay/internal/school"
	"schoolpay/internal/school/store"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/sentinel"
	"schoolpay/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "schools")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newSchool() *school.School {
	deadline := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	return &school.School{
		ID:      id.NewSchoolID(),
		Name:    "Sunrise Academy",
		Slug:    "sunrise-academy",
		OwnerID: id.NewUserID(),
		Tag:     "Knowledge is light",
		Color:   "#1a8917",
		Social:  school.SocialLinks{Twitter: "https://twitter.com/sunrise"},
		FeeItems: []school.FeeItem{
			{Name: "tuition", Compulsory: true, Amount: 45000, Session: "2026/2027", Term: 1},
		},
		Sessions: []school.Session{{
			Name: "2026/2027",
			Terms: []school.TermPeriod{{
				No:        1,
				StartDate: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC),
			}},
		}},
		FeeDeadline:  &deadline,
		Installment:  true,
		CustomFields: []string{"class"},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	sc := s.newSchool()
	s.Require().NoError(s.store.Create(ctx, sc))

	got, err := s.store.FindByOwner(ctx, sc.OwnerID)
	s.Require().NoError(err)
	s.Equal(sc.ID, got.ID)
	s.Equal(sc.Slug, got.Slug)
	s.Equal(sc.Social, got.Social)
	s.Equal(sc.FeeItems, got.FeeItems)
	s.Equal(sc.Sessions, got.Sessions)
	s.Require().NotNil(got.FeeDeadline)
	s.Equal(sc.FeeDeadline.UTC(), got.FeeDeadline.UTC())
	s.True(got.Installment)
	s.Equal(sc.CustomFields, got.CustomFields)
	s.Equal(int64(1), got.Version)
}

func (s *PostgresStoreSuite) TestOneSchoolPerOwner() {
	ctx := context.Background()
	sc := s.newSchool()
	s.Require().NoError(s.store.Create(ctx, sc))

	second := s.newSchool()
	second.OwnerID = sc.OwnerID
	err := s.store.Create(ctx, second)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateIsVersionConditional() {
	ctx := context.Background()
	sc := s.newSchool()
	s.Require().NoError(s.store.Create(ctx, sc))

	sc.CustomFields = append(sc.CustomFields, "house")
	s.Require().NoError(s.store.Update(ctx, sc))
	s.Equal(int64(2), sc.Version)

	stale := *sc
	stale.Version = 1
	err := s.store.Update(ctx, &stale)
	s.Require().ErrorIs(err, sentinel.ErrVersionMismatch)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	sc := s.newSchool()
	s.Require().NoError(s.store.Create(ctx, sc))

	s.Require().NoError(s.store.Delete(ctx, sc.ID))
	_, err := s.store.FindByID(ctx, sc.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
