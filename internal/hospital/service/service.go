// Package service orchestrates hospital and registry operations. Services
// validate input at the trust boundary, run domain logic through the
// stores' Execute callback and translate store sentinels into coded errors
// for the transport layer.
package service

import (
	"context"
	"errors"
	"log/slog"

	"medledger/internal/audit"
	"medledger/internal/hospital/metrics"
	"medledger/internal/hospital/models"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/platform/sentinel"
	"medledger/pkg/requestcontext"
)

// HospitalStore persists hospital aggregates. Execute holds the aggregate
// lock (mutex or FOR UPDATE) across both validate and mutate, which is what
// gives operations their all-or-nothing semantics.
type HospitalStore interface {
	Create(ctx context.Context, h *models.Hospital) error
	FindByID(ctx context.Context, hospitalID id.HospitalID) (*models.Hospital, error)
	Execute(ctx context.Context, hospitalID id.HospitalID, validate func(*models.Hospital) error, mutate func(*models.Hospital)) (*models.Hospital, error)
}

// RegistryStore persists detached staff and patient records.
type RegistryStore interface {
	CreateStaff(ctx context.Context, staff *models.Staff) error
	FindStaff(ctx context.Context, staffID id.StaffID) (*models.Staff, error)
	ExecuteStaff(ctx context.Context, staffID id.StaffID, validate func(*models.Staff) error, mutate func(*models.Staff)) (*models.Staff, error)
	CreatePatient(ctx context.Context, patient *models.Patient) error
	FindPatient(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	ExecutePatient(ctx context.Context, patientID id.PatientID, validate func(*models.Patient) error, mutate func(*models.Patient)) (*models.Patient, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(cfg *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *serviceConfig) {
		cfg.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(cfg *serviceConfig) {
		cfg.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *serviceConfig) {
		cfg.metrics = m
	}
}

// auditEmitter fans audit events out to the structured log and the audit
// publisher. Emission is best effort; a full audit buffer never fails the
// operation that triggered it.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (e *auditEmitter) emit(ctx context.Context, event audit.Event) {
	event.Actor = requestcontext.Principal(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if e.logger != nil {
		e.logger.InfoContext(ctx, event.Action,
			"hospital_id", event.HospitalID.String(),
			"subject", event.Subject,
			"amount", event.Amount,
			"request_id", event.RequestID,
			"log_type", "audit",
		)
	}
	if e.publisher != nil {
		_ = e.publisher.Emit(ctx, event)
	}
}

// callerPrincipal extracts the authenticated caller, failing closed when the
// middleware did not attach one.
func callerPrincipal(ctx context.Context) (id.Principal, error) {
	p := requestcontext.Principal(ctx)
	if p.IsNil() {
		return id.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "caller principal required")
	}
	return p, nil
}

func requireHospitalID(hospitalID id.HospitalID) error {
	if hospitalID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "hospital id is required")
	}
	return nil
}

// wrapStoreErr translates store sentinels into coded errors the transport
// layer can map to a status. Already-coded errors pass through untouched.
func wrapStoreErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, what+" already exists")
	case errors.Is(err, sentinel.ErrInsufficientFunds):
		return dErrors.New(dErrors.CodeInsufficientFunds, "insufficient balance")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvariantViolation, "operation would overflow a balance")
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}
