//go:build integration

package record_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"schoolpay/internal/payment"
	"schoolpay/internal/payment/store/record"
	"schoolpay/pkg/platform/sentinel"
	"schoolpay/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *record.PostgresStore
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
	s.store = record.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "payment_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()
	rec := payment.PaymentRecord{
		Reference:  "ref-1",
		Kind:       payment.RecordKindFull,
		FeeLines:   []payment.FeeLine{{Name: "tuition", Amount: 50000}},
		PayerEmail: "ada@example.com",
		Term:       1,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Insert(ctx, rec))

	got, err := s.store.FindByReference(ctx, "ref-1")
	s.Require().NoError(err)
	s.Equal(rec.Kind, got.Kind)
	s.Equal(rec.FeeLines, got.FeeLines)
	s.Equal(rec.PayerEmail, got.PayerEmail)
	s.Equal(rec.Term, got.Term)
}

func (s *PostgresStoreSuite) TestDuplicateReferenceConflicts() {
	ctx := context.Background()
	rec := payment.PaymentRecord{Reference: "ref-1", Kind: payment.RecordKindFull,
		PayerEmail: "ada@example.com", Term: 1, CreatedAt: time.Now()}

	s.Require().NoError(s.store.Insert(ctx, rec))
	err := s.store.Insert(ctx, rec)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

// TestConcurrentMarkerInserts verifies the unique index arbitrates duplicate
// deliveries: exactly one insert wins, every loser sees ErrConflict.
func (s *PostgresStoreSuite) TestConcurrentMarkerInserts() {
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	var winners, losers atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Insert(ctx, payment.PaymentRecord{
				Reference:  "evt-1",
				Kind:       payment.RecordKindMarker,
				PayerEmail: "ada@example.com",
				Term:       1,
				CreatedAt:  time.Now(),
			})
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				losers.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
	s.Equal(int32(writers-1), losers.Load())
}

func (s *PostgresStoreSuite) TestMarkerExists() {
	ctx := context.Background()

	exists, err := s.store.MarkerExists(ctx, "evt-1")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.store.Insert(ctx, payment.PaymentRecord{
		Reference: "evt-1", Kind: payment.RecordKindMarker,
		PayerEmail: "ada@example.com", Term: 1, CreatedAt: time.Now(),
	}))

	exists, err = s.store.MarkerExists(ctx, "evt-1")
	s.Require().NoError(err)
	s.True(exists)
}
