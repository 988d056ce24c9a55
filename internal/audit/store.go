package audit

import (
	"context"
	"sync"

	id "medledger/pkg/domain"
)

// Store is an append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByHospital(ctx context.Context, hospitalID id.HospitalID) ([]Event, error)
}

// InMemoryStore keeps events in process memory, keyed by hospital.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.HospitalID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.HospitalID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.HospitalID] = append(s.events[event.HospitalID], event)
	return nil
}

func (s *InMemoryStore) ListByHospital(_ context.Context, hospitalID id.HospitalID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[hospitalID]...), nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.HospitalID][]Event)
}
