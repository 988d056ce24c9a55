package models

import (
	"strings"
	"time"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/money"
)

// Staff is a staff record. It is created detached (owned by no hospital)
// and may later be copied into a hospital's staff collection by employment;
// the copy is a snapshot, so registry edits after employment do not
// propagate into the aggregate.
//
// Invariants:
//   - Principal is set at creation and never changes
//   - Balance is never negative (unsigned, debits check sufficiency)
//   - Info fields are mutable only by the owning principal
type Staff struct {
	ID         id.StaffID   `json:"id"`
	Name       string       `json:"name"`
	Role       string       `json:"role"`
	Department string       `json:"department"`
	HireDate   string       `json:"hire_date"`
	Principal  id.Principal `json:"principal"`
	Balance    money.Amount `json:"balance"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// StaffUpdate carries the mutable info fields; nil means leave unchanged.
type StaffUpdate struct {
	Name       *string `json:"name,omitempty"`
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	HireDate   *string `json:"hire_date,omitempty"`
}

func NewStaff(staffID id.StaffID, principal id.Principal, name, role, department, hireDate string, now time.Time) (*Staff, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "staff name cannot be empty")
	}
	if principal.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "staff record requires an owning principal")
	}
	return &Staff{
		ID:         staffID,
		Name:       name,
		Role:       role,
		Department: department,
		HireDate:   hireDate,
		Principal:  principal,
		Balance:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CanUpdateInfo checks the self-record authorization rule: only the owning
// principal may mutate the record.
func (s *Staff) CanUpdateInfo(caller id.Principal) error {
	if caller != s.Principal {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the record owner")
	}
	return nil
}

// ApplyUpdateInfo mutates the info fields in place. Call CanUpdateInfo first.
func (s *Staff) ApplyUpdateInfo(update StaffUpdate, now time.Time) {
	if update.Name != nil {
		s.Name = strings.TrimSpace(*update.Name)
	}
	if update.Role != nil {
		s.Role = *update.Role
	}
	if update.Department != nil {
		s.Department = *update.Department
	}
	if update.HireDate != nil {
		s.HireDate = *update.HireDate
	}
	s.UpdatedAt = now
}

// Clone returns an independent copy, used when snapshotting the record into
// a hospital aggregate and by stores that must not leak internal state.
func (s *Staff) Clone() *Staff {
	c := *s
	return &c
}
