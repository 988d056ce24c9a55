// Package registry stores detached staff and patient records: records that
// exist independently of any hospital and are referenced by principal, not
// by containment. Employment/admission snapshots a registry record into a
// hospital aggregate; the registry copy stays authoritative for self-record
// updates.
package registry

import (
	"context"
	"sync"

	"medledger/internal/hospital/models"
	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// InMemory keeps registry records in process memory. Reads return copies.
type InMemory struct {
	mu       sync.RWMutex
	staff    map[id.StaffID]*models.Staff
	patients map[id.PatientID]*models.Patient
}

func NewInMemory() *InMemory {
	return &InMemory{
		staff:    make(map[id.StaffID]*models.Staff),
		patients: make(map[id.PatientID]*models.Patient),
	}
}

func (s *InMemory) CreateStaff(_ context.Context, staff *models.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staff[staff.ID]; ok {
		return sentinel.ErrConflict
	}
	s.staff[staff.ID] = staff.Clone()
	return nil
}

func (s *InMemory) FindStaff(_ context.Context, staffID id.StaffID) (*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	staff, ok := s.staff[staffID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return staff.Clone(), nil
}

// ExecuteStaff runs validate then mutate under the store lock; a failing
// validate leaves the record untouched.
func (s *InMemory) ExecuteStaff(
	_ context.Context,
	staffID id.StaffID,
	validate func(*models.Staff) error,
	mutate func(*models.Staff),
) (*models.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staff, ok := s.staff[staffID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(staff); err != nil {
		return nil, err
	}
	mutate(staff)
	return staff.Clone(), nil
}

func (s *InMemory) CreatePatient(_ context.Context, patient *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[patient.ID]; ok {
		return sentinel.ErrConflict
	}
	s.patients[patient.ID] = patient.Clone()
	return nil
}

func (s *InMemory) FindPatient(_ context.Context, patientID id.PatientID) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	patient, ok := s.patients[patientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return patient.Clone(), nil
}

// ExecutePatient runs validate then mutate under the store lock.
func (s *InMemory) ExecutePatient(
	_ context.Context,
	patientID id.PatientID,
	validate func(*models.Patient) error,
	mutate func(*models.Patient),
) (*models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patient, ok := s.patients[patientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(patient); err != nil {
		return nil, err
	}
	mutate(patient)
	return patient.Clone(), nil
}
