//go:build integration

package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"medledger/internal/hospital/models"
	"medledger/internal/hospital/store/registry"
	id "medledger/pkg/domain"
	"medledger/pkg/money"
	"medledger/pkg/platform/sentinel"
	"medledger/pkg/testutil/containers"
)

type PostgresRegistrySuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *registry.Postgres
	ctx   context.Context
}

func (s *PostgresRegistrySuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = registry.NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresRegistrySuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
}

func TestPostgresRegistrySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRegistrySuite))
}

func (s *PostgresRegistrySuite) TestStaffRoundTrip() {
	staff, err := models.NewStaff(id.NewStaffID(), id.Principal(uuid.New()),
		"Dr. Bailey", "surgeon", "cardio", "2021-03-15", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateStaff(s.ctx, staff))

	found, err := s.store.FindStaff(s.ctx, staff.ID)
	s.Require().NoError(err)
	s.Equal(staff.Name, found.Name)
	s.Equal(staff.Role, found.Role)
	s.Equal(staff.Principal, found.Principal)
	s.Equal(money.Amount(0), found.Balance)
}

func (s *PostgresRegistrySuite) TestFindStaffNotFound() {
	_, err := s.store.FindStaff(s.ctx, id.NewStaffID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresRegistrySuite) TestExecuteStaffCommitsMutation() {
	staff, err := models.NewStaff(id.NewStaffID(), id.Principal(uuid.New()),
		"Dr. Bailey", "surgeon", "cardio", "2021-03-15", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateStaff(s.ctx, staff))

	dept := "neuro"
	updated, err := s.store.ExecuteStaff(s.ctx, staff.ID,
		func(st *models.Staff) error { return st.CanUpdateInfo(staff.Principal) },
		func(st *models.Staff) {
			st.ApplyUpdateInfo(models.StaffUpdate{Department: &dept}, time.Now().UTC())
		},
	)
	s.Require().NoError(err)
	s.Equal("neuro", updated.Department)

	found, err := s.store.FindStaff(s.ctx, staff.ID)
	s.Require().NoError(err)
	s.Equal("neuro", found.Department)
}

func (s *PostgresRegistrySuite) TestExecuteStaffRollsBackOnValidationFailure() {
	staff, err := models.NewStaff(id.NewStaffID(), id.Principal(uuid.New()),
		"Dr. Bailey", "surgeon", "cardio", "2021-03-15", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateStaff(s.ctx, staff))

	dept := "neuro"
	_, err = s.store.ExecuteStaff(s.ctx, staff.ID,
		func(st *models.Staff) error { return st.CanUpdateInfo(id.Principal(uuid.New())) },
		func(st *models.Staff) {
			st.ApplyUpdateInfo(models.StaffUpdate{Department: &dept}, time.Now().UTC())
		},
	)
	s.Require().Error(err)

	found, err := s.store.FindStaff(s.ctx, staff.ID)
	s.Require().NoError(err)
	s.Equal("cardio", found.Department)
}

func (s *PostgresRegistrySuite) TestPatientRoundTrip() {
	patient, err := models.NewPatient(id.NewPatientID(), id.Principal(uuid.New()),
		"John Doe", 42, "3 Elm St", "", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreatePatient(s.ctx, patient))

	history := "appendectomy 2019"
	updated, err := s.store.ExecutePatient(s.ctx, patient.ID,
		func(p *models.Patient) error { return p.CanUpdateInfo(patient.Principal) },
		func(p *models.Patient) {
			p.ApplyUpdateInfo(models.PatientUpdate{MedicalHistory: &history}, time.Now().UTC())
		},
	)
	s.Require().NoError(err)
	s.Equal(history, updated.MedicalHistory)

	found, err := s.store.FindPatient(s.ctx, patient.ID)
	s.Require().NoError(err)
	s.Equal(history, found.MedicalHistory)
	s.Equal(42, found.Age)
}
