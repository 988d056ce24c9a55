package models

import (
	"strings"
	"time"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

// Patient is a patient record with the same detached/admitted lifecycle as
// Staff: created standalone, optionally snapshotted into a hospital's
// patient collection on admission, destroyed on discharge.
//
// Invariants:
//   - Principal is set at creation and never changes
//   - Info fields are mutable only by the owning principal
type Patient struct {
	ID             id.PatientID `json:"id"`
	Name           string       `json:"name"`
	Age            int          `json:"age"`
	Address        string       `json:"address"`
	Principal      id.Principal `json:"principal"`
	MedicalHistory string       `json:"medical_history"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// PatientUpdate carries the mutable info fields; nil means leave unchanged.
type PatientUpdate struct {
	Name           *string `json:"name,omitempty"`
	Age            *int    `json:"age,omitempty"`
	Address        *string `json:"address,omitempty"`
	MedicalHistory *string `json:"medical_history,omitempty"`
}

func NewPatient(patientID id.PatientID, principal id.Principal, name string, age int, address, medicalHistory string, now time.Time) (*Patient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient name cannot be empty")
	}
	if age < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient age cannot be negative")
	}
	if principal.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient record requires an owning principal")
	}
	return &Patient{
		ID:             patientID,
		Name:           name,
		Age:            age,
		Address:        address,
		Principal:      principal,
		MedicalHistory: medicalHistory,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanUpdateInfo checks the self-record authorization rule.
func (p *Patient) CanUpdateInfo(caller id.Principal) error {
	if caller != p.Principal {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the record owner")
	}
	return nil
}

// ApplyUpdateInfo mutates the info fields in place. Call CanUpdateInfo first.
func (p *Patient) ApplyUpdateInfo(update PatientUpdate, now time.Time) {
	if update.Name != nil {
		p.Name = strings.TrimSpace(*update.Name)
	}
	if update.Age != nil {
		p.Age = *update.Age
	}
	if update.Address != nil {
		p.Address = *update.Address
	}
	if update.MedicalHistory != nil {
		p.MedicalHistory = *update.MedicalHistory
	}
	p.UpdatedAt = now
}

// Clone returns an independent copy.
func (p *Patient) Clone() *Patient {
	c := *p
	return &c
}
