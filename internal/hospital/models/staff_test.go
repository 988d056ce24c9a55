package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

func TestStaff_SelfUpdateAuthorization(t *testing.T) {
	owner := id.Principal(uuid.New())
	staff, err := NewStaff(id.NewStaffID(), owner, "Dr. Grey", "surgeon", "surgery", "2021-03-15", time.Now())
	require.NoError(t, err)

	t.Run("owner may update", func(t *testing.T) {
		require.NoError(t, staff.CanUpdateInfo(owner))
		role := "attending"
		staff.ApplyUpdateInfo(StaffUpdate{Role: &role}, time.Now())
		assert.Equal(t, "attending", staff.Role)
	})

	t.Run("stranger is refused and state is unchanged", func(t *testing.T) {
		err := staff.CanUpdateInfo(id.Principal(uuid.New()))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.Equal(t, "attending", staff.Role)
	})

	t.Run("principal is immutable through updates", func(t *testing.T) {
		name := "Dr. M. Grey"
		staff.ApplyUpdateInfo(StaffUpdate{Name: &name}, time.Now())
		assert.Equal(t, owner, staff.Principal)
	})
}

func TestNewStaff_Invariants(t *testing.T) {
	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewStaff(id.NewStaffID(), id.Principal(uuid.New()), " ", "r", "d", "2021-01-01", time.Now())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects nil principal", func(t *testing.T) {
		_, err := NewStaff(id.NewStaffID(), id.Principal{}, "Dr. Grey", "r", "d", "2021-01-01", time.Now())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("starts with zero balance", func(t *testing.T) {
		s, err := NewStaff(id.NewStaffID(), id.Principal(uuid.New()), "Dr. Grey", "r", "d", "2021-01-01", time.Now())
		require.NoError(t, err)
		assert.Zero(t, s.Balance)
	})
}

func TestPatient_SelfUpdateAuthorization(t *testing.T) {
	owner := id.Principal(uuid.New())
	patient, err := NewPatient(id.NewPatientID(), owner, "John Doe", 42, "2 Side St", "none", time.Now())
	require.NoError(t, err)

	t.Run("owner may update", func(t *testing.T) {
		require.NoError(t, patient.CanUpdateInfo(owner))
		history := "penicillin allergy"
		patient.ApplyUpdateInfo(PatientUpdate{MedicalHistory: &history}, time.Now())
		assert.Equal(t, "penicillin allergy", patient.MedicalHistory)
	})

	t.Run("stranger is refused", func(t *testing.T) {
		err := patient.CanUpdateInfo(id.Principal(uuid.New()))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestParseCapabilityToken(t *testing.T) {
	hospitalID := id.NewHospitalID()
	cap, _, err := IssueCapability(hospitalID)
	require.NoError(t, err)

	t.Run("round trips through the wire form", func(t *testing.T) {
		parsed, err := ParseCapabilityToken(hospitalID, cap.Token())
		require.NoError(t, err)
		assert.Equal(t, cap.ID, parsed.ID)
		assert.Equal(t, cap.Secret, parsed.Secret)
		assert.Equal(t, hospitalID, parsed.HospitalID)
	})

	t.Run("rejects malformed tokens", func(t *testing.T) {
		for _, raw := range []string{"", "no-separator", "bad-id.secret", cap.ID.String() + "."} {
			_, err := ParseCapabilityToken(hospitalID, raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden), "token %q", raw)
		}
	})
}
