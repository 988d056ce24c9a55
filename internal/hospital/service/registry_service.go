package service

import (
	"context"

	"medledger/internal/audit"
	"medledger/internal/hospital/models"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/requestcontext"
)

// RegistryService manages detached staff and patient records. Records are
// stamped with the caller's principal at creation; afterwards only that
// principal may update them. No capability is involved here, capabilities
// authorize hospital-scoped operations only.
type RegistryService struct {
	registry     RegistryStore
	auditEmitter *auditEmitter
}

func NewRegistryService(reg RegistryStore, opts ...Option) *RegistryService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &RegistryService{
		registry:     reg,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
	}
}

// RegisterStaff creates a detached staff record owned by the caller.
func (s *RegistryService) RegisterStaff(ctx context.Context, name, role, department, hireDate string) (*models.Staff, error) {
	principal, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	staff, err := models.NewStaff(id.NewStaffID(), principal, name, role, department, hireDate, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.registry.CreateStaff(ctx, staff); err != nil {
		return nil, wrapStoreErr(err, "staff record")
	}

	s.auditEmitter.emit(ctx, audit.Event{
		Action:  string(audit.EventStaffRegistered),
		Subject: staff.ID.String(),
	})
	return staff, nil
}

// GetStaff returns a detached staff record.
func (s *RegistryService) GetStaff(ctx context.Context, staffID id.StaffID) (*models.Staff, error) {
	if staffID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "staff id is required")
	}
	staff, err := s.registry.FindStaff(ctx, staffID)
	if err != nil {
		return nil, wrapStoreErr(err, "staff record")
	}
	return staff, nil
}

// UpdateStaff applies a self-update to a detached staff record. Fails with
// CodeForbidden when the caller is not the record owner; the record is
// untouched on any failure.
func (s *RegistryService) UpdateStaff(ctx context.Context, staffID id.StaffID, update models.StaffUpdate) (*models.Staff, error) {
	if staffID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "staff id is required")
	}
	caller, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	staff, err := s.registry.ExecuteStaff(ctx, staffID,
		func(st *models.Staff) error {
			return st.CanUpdateInfo(caller)
		},
		func(st *models.Staff) {
			st.ApplyUpdateInfo(update, now)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err, "staff record")
	}

	s.auditEmitter.emit(ctx, audit.Event{
		Action:  string(audit.EventStaffInfoUpdated),
		Subject: staffID.String(),
	})
	return staff, nil
}

// RegisterPatient creates a detached patient record owned by the caller.
func (s *RegistryService) RegisterPatient(ctx context.Context, name string, age int, address, medicalHistory string) (*models.Patient, error) {
	principal, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	patient, err := models.NewPatient(id.NewPatientID(), principal, name, age, address, medicalHistory, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.registry.CreatePatient(ctx, patient); err != nil {
		return nil, wrapStoreErr(err, "patient record")
	}

	s.auditEmitter.emit(ctx, audit.Event{
		Action:  string(audit.EventPatientRegistered),
		Subject: patient.ID.String(),
	})
	return patient, nil
}

// GetPatient returns a detached patient record.
func (s *RegistryService) GetPatient(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "patient id is required")
	}
	patient, err := s.registry.FindPatient(ctx, patientID)
	if err != nil {
		return nil, wrapStoreErr(err, "patient record")
	}
	return patient, nil
}

// UpdatePatient applies a self-update to a detached patient record.
func (s *RegistryService) UpdatePatient(ctx context.Context, patientID id.PatientID, update models.PatientUpdate) (*models.Patient, error) {
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "patient id is required")
	}
	caller, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if update.Age != nil && *update.Age < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "patient age cannot be negative")
	}

	now := requestcontext.Now(ctx)
	patient, err := s.registry.ExecutePatient(ctx, patientID,
		func(p *models.Patient) error {
			return p.CanUpdateInfo(caller)
		},
		func(p *models.Patient) {
			p.ApplyUpdateInfo(update, now)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err, "patient record")
	}

	s.auditEmitter.emit(ctx, audit.Event{
		Action:  string(audit.EventPatientInfoUpdated),
		Subject: patientID.String(),
	})
	return patient, nil
}
