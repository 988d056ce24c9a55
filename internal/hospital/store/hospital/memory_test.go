package hospital

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"medledger/internal/hospital/models"
	id "medledger/pkg/domain"
	"medledger/pkg/money"
	"medledger/pkg/platform/sentinel"
)

type HospitalStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *HospitalStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestHospitalStoreSuite(t *testing.T) {
	suite.Run(t, new(HospitalStoreSuite))
}

func (s *HospitalStoreSuite) newHospital(name string) *models.Hospital {
	hospitalID := id.NewHospitalID()
	_, grant, err := models.IssueCapability(hospitalID)
	s.Require().NoError(err)
	h, err := models.NewHospital(hospitalID, name, "1 Main St", id.Principal(uuid.New()), grant, time.Now())
	s.Require().NoError(err)
	return h
}

func (s *HospitalStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds hospital by ID", func() {
		h := s.newHospital("General")
		s.Require().NoError(s.store.Create(s.ctx, h))

		found, err := s.store.FindByID(s.ctx, h.ID)
		s.Require().NoError(err)
		s.Equal(h.Name, found.Name)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewHospitalID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate ID", func() {
		h := s.newHospital("Dup")
		s.Require().NoError(s.store.Create(s.ctx, h))
		s.ErrorIs(s.store.Create(s.ctx, h), sentinel.ErrConflict)
	})
}

// TestExecuteAtomicity verifies that a failing validate leaves the
// aggregate untouched.
func (s *HospitalStoreSuite) TestExecuteAtomicity() {
	h := s.newHospital("Atomic")
	s.Require().NoError(s.store.Create(s.ctx, h))

	_, err := s.store.Execute(s.ctx, h.ID,
		func(h *models.Hospital) error { return h.CanPayExpense(1) },
		func(h *models.Hospital) { h.ApplyPayExpense(1, time.Now()) },
	)
	s.Require().ErrorIs(err, sentinel.ErrInsufficientFunds)

	found, err := s.store.FindByID(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal(money.Amount(0), found.Balance)
}

// TestExecuteSerialization verifies that concurrent mutations of the same
// aggregate are serialized: concurrent deposits never lose updates.
func (s *HospitalStoreSuite) TestExecuteSerialization() {
	h := s.newHospital("Busy")
	s.Require().NoError(s.store.Create(s.ctx, h))

	const goroutines = 50
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, h.ID,
				func(h *models.Hospital) error { return h.CanDeposit(10) },
				func(h *models.Hospital) { h.ApplyDeposit(10, time.Now()) },
			)
			s.NoError(err)
		}()
	}
	wg.Wait()

	found, err := s.store.FindByID(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal(money.Amount(goroutines*10), found.Balance)
}

// TestReadsAreSnapshots verifies that mutating a FindByID result does not
// leak into the stored aggregate.
func (s *HospitalStoreSuite) TestReadsAreSnapshots() {
	h := s.newHospital("Snapshot")
	s.Require().NoError(s.store.Create(s.ctx, h))

	found, err := s.store.FindByID(s.ctx, h.ID)
	s.Require().NoError(err)
	found.ApplyDeposit(500, time.Now())

	again, err := s.store.FindByID(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal(money.Amount(0), again.Balance)
}
