// Package hospital stores hospital aggregates behind an exclusive-access
// discipline: every mutation runs inside Execute, which holds the
// aggregate's lock for the whole validate-then-mutate sequence. Operations
// against different hospitals run in parallel; operations against the same
// hospital are serialized.
package hospital

import (
	"context"
	"sync"

	"medledger/internal/hospital/models"
	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// InMemory keeps aggregates in process memory. Reads return deep copies so
// callers can never mutate shared state outside Execute.
type InMemory struct {
	mu        sync.RWMutex
	hospitals map[id.HospitalID]*entry
}

type entry struct {
	mu sync.Mutex
	h  *models.Hospital
}

func NewInMemory() *InMemory {
	return &InMemory{hospitals: make(map[id.HospitalID]*entry)}
}

// Create registers a new aggregate. Fails with sentinel.ErrConflict if the
// identifier is already present.
func (s *InMemory) Create(_ context.Context, h *models.Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hospitals[h.ID]; ok {
		return sentinel.ErrConflict
	}
	s.hospitals[h.ID] = &entry{h: h.Clone()}
	return nil
}

// FindByID returns a deep copy of the aggregate, or sentinel.ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, hospitalID id.HospitalID) (*models.Hospital, error) {
	e, err := s.entry(hospitalID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.h.Clone(), nil
}

// Execute runs validate then mutate with the aggregate lock held for both.
// If validate fails, mutate never runs and the aggregate is untouched;
// mutate itself must not fail. Returns a deep copy of the post-mutation
// state.
func (s *InMemory) Execute(
	_ context.Context,
	hospitalID id.HospitalID,
	validate func(*models.Hospital) error,
	mutate func(*models.Hospital),
) (*models.Hospital, error) {
	e, err := s.entry(hospitalID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validate(e.h); err != nil {
		return nil, err
	}
	mutate(e.h)
	return e.h.Clone(), nil
}

func (s *InMemory) entry(hospitalID id.HospitalID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.hospitals[hospitalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e, nil
}
