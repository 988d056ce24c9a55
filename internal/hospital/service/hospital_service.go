package service

import (
	"context"
	"time"

	"medledger/internal/audit"
	"medledger/internal/hospital/metrics"
	"medledger/internal/hospital/models"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/money"
	"medledger/pkg/requestcontext"
)

// HospitalService orchestrates the hospital aggregate lifecycle: creation,
// the balance ledger, collection membership and capability management.
//
// Every privileged operation re-verifies the capability token inside the
// store's Execute validate phase, so verification and mutation happen under
// the same aggregate lock. A rotated token can never slip through a race.
type HospitalService struct {
	hospitals    HospitalStore
	registry     RegistryStore
	auditEmitter *auditEmitter
	metrics      *metrics.Metrics
}

func NewHospitalService(hospitals HospitalStore, reg RegistryStore, opts ...Option) *HospitalService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &HospitalService{
		hospitals:    hospitals,
		registry:     reg,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
	}
}

// CreateHospital registers a new hospital owned by the caller and returns
// it together with the freshly minted capability. The cleartext secret is
// available only in this response; the aggregate retains a hash.
func (s *HospitalService) CreateHospital(ctx context.Context, name, address string) (*models.Hospital, *models.Capability, error) {
	owner, err := callerPrincipal(ctx)
	if err != nil {
		return nil, nil, err
	}

	hospitalID := id.NewHospitalID()
	cap, grant, err := models.IssueCapability(hospitalID)
	if err != nil {
		return nil, nil, err
	}

	h, err := models.NewHospital(hospitalID, name, address, owner, grant, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, nil, err
	}

	if err := s.hospitals.Create(ctx, h); err != nil {
		return nil, nil, wrapStoreErr(err, "hospital")
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: h.ID,
		Action:     string(audit.EventHospitalCreated),
	})
	if s.metrics != nil {
		s.metrics.IncrementHospitalsCreated()
	}
	return h, cap, nil
}

// GetHospital returns a snapshot of the aggregate. Reading the balance and
// collections is privileged, so the capability is required here too.
func (s *HospitalService) GetHospital(ctx context.Context, hospitalID id.HospitalID, token string) (*models.Hospital, error) {
	if err := requireHospitalID(hospitalID); err != nil {
		return nil, err
	}
	h, err := s.hospitals.FindByID(ctx, hospitalID)
	if err != nil {
		return nil, wrapStoreErr(err, "hospital")
	}
	cap, err := models.ParseCapabilityToken(hospitalID, token)
	if err != nil {
		return nil, err
	}
	if err := h.VerifyCapability(cap); err != nil {
		return nil, err
	}
	return h, nil
}

// RotateCapability mints a replacement capability and installs its grant,
// invalidating the presented token in the same atomic step.
func (s *HospitalService) RotateCapability(ctx context.Context, hospitalID id.HospitalID, token string) (*models.Capability, error) {
	if err := requireHospitalID(hospitalID); err != nil {
		return nil, err
	}
	cap, err := models.ParseCapabilityToken(hospitalID, token)
	if err != nil {
		return nil, err
	}
	next, grant, err := models.IssueCapability(hospitalID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	_, err = s.hospitals.Execute(ctx, hospitalID,
		func(h *models.Hospital) error {
			return h.VerifyCapability(cap)
		},
		func(h *models.Hospital) {
			h.ApplyRotateCapability(grant, now)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err, "hospital")
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventCapabilityRotated),
	})
	return next, nil
}

// Deposit credits external funds to the hospital balance.
func (s *HospitalService) Deposit(ctx context.Context, hospitalID id.HospitalID, token string, amount money.Amount) (*models.Hospital, error) {
	now := requestcontext.Now(ctx)
	h, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			return h.CanDeposit(amount)
		},
		func(h *models.Hospital) {
			h.ApplyDeposit(amount, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventDeposited),
		Amount:     uint64(amount),
	})
	if s.metrics != nil {
		s.metrics.AddDeposited(uint64(amount))
	}
	return h, nil
}

// PayStaff moves amount from the hospital balance to an employed staff
// member's balance. The sum of the two balances is conserved; on any
// failure neither balance changes.
func (s *HospitalService) PayStaff(ctx context.Context, hospitalID id.HospitalID, token string, staffID id.StaffID, amount money.Amount) (*models.Hospital, error) {
	if staffID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "staff id is required")
	}
	start := time.Now()
	now := requestcontext.Now(ctx)
	h, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			if err := h.CanPayStaff(staffID, amount); err != nil {
				return wrapStoreErr(err, "staff member")
			}
			return nil
		},
		func(h *models.Hospital) {
			h.ApplyPayStaff(staffID, amount, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventStaffPaid),
		Subject:    staffID.String(),
		Amount:     uint64(amount),
	})
	if s.metrics != nil {
		s.metrics.AddPayroll(uint64(amount))
		s.metrics.ObservePayStaff(start)
	}
	return h, nil
}

// PayExpense debits amount from the hospital balance and returns it as
// detached funds leaving the system boundary.
func (s *HospitalService) PayExpense(ctx context.Context, hospitalID id.HospitalID, token string, amount money.Amount) (*money.Value, error) {
	now := requestcontext.Now(ctx)
	var paid *money.Value
	_, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			return h.CanPayExpense(amount)
		},
		func(h *models.Hospital) {
			paid = h.ApplyPayExpense(amount, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventExpensePaid),
		Amount:     uint64(amount),
	})
	if s.metrics != nil {
		s.metrics.AddExpense(uint64(amount))
	}
	return paid, nil
}

// EmployStaff snapshots a registry staff record into the hospital's staff
// collection. The registry copy stays authoritative for self-record
// updates; the employed copy carries the balance the hospital pays into.
func (s *HospitalService) EmployStaff(ctx context.Context, hospitalID id.HospitalID, token string, staffID id.StaffID) (*models.Hospital, error) {
	if staffID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "staff id is required")
	}
	record, err := s.registry.FindStaff(ctx, staffID)
	if err != nil {
		return nil, wrapStoreErr(err, "staff record")
	}

	now := requestcontext.Now(ctx)
	h, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			if err := h.CanEmployStaff(record); err != nil {
				return wrapStoreErr(err, "staff member")
			}
			return nil
		},
		func(h *models.Hospital) {
			h.ApplyEmployStaff(record, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventStaffEmployed),
		Subject:    staffID.String(),
	})
	return h, nil
}

// AdmitPatient snapshots a registry patient record into the hospital's
// patient collection.
func (s *HospitalService) AdmitPatient(ctx context.Context, hospitalID id.HospitalID, token string, patientID id.PatientID) (*models.Hospital, error) {
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "patient id is required")
	}
	record, err := s.registry.FindPatient(ctx, patientID)
	if err != nil {
		return nil, wrapStoreErr(err, "patient record")
	}

	now := requestcontext.Now(ctx)
	h, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			if err := h.CanAdmitPatient(record); err != nil {
				return wrapStoreErr(err, "patient")
			}
			return nil
		},
		func(h *models.Hospital) {
			h.ApplyAdmitPatient(record, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventPatientAdmitted),
		Subject:    patientID.String(),
	})
	return h, nil
}

// DischargePatient removes the contained patient record. Appointments that
// reference the patient's principal are left in place; they hold snapshots,
// not links.
func (s *HospitalService) DischargePatient(ctx context.Context, hospitalID id.HospitalID, token string, patientID id.PatientID) (*models.Hospital, error) {
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "patient id is required")
	}
	now := requestcontext.Now(ctx)
	h, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			if err := h.CanDischargePatient(patientID); err != nil {
				return wrapStoreErr(err, "patient")
			}
			return nil
		},
		func(h *models.Hospital) {
			h.ApplyDischargePatient(patientID, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventPatientDischarged),
		Subject:    patientID.String(),
	})
	return h, nil
}

// ScheduleAppointment creates an appointment between an admitted patient
// and an employed staff member, snapshotting their principals.
func (s *HospitalService) ScheduleAppointment(ctx context.Context, hospitalID id.HospitalID, token string, patientID id.PatientID, doctorID id.StaffID, date, timeOfDay, description string) (*models.Appointment, error) {
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "patient id is required")
	}
	if doctorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "doctor id is required")
	}

	apptID := id.NewAppointmentID()
	now := requestcontext.Now(ctx)
	var appt *models.Appointment
	_, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			patient, ok := h.Patients[patientID]
			if !ok {
				return dErrors.New(dErrors.CodeNotFound, "patient not found")
			}
			doctor, ok := h.Staff[doctorID]
			if !ok {
				return dErrors.New(dErrors.CodeNotFound, "staff member not found")
			}
			built, err := models.NewAppointment(apptID, patient, doctor, date, timeOfDay, description, now)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.New(dErrors.CodeValidation, err.Error())
				}
				return err
			}
			if err := h.CanScheduleAppointment(built); err != nil {
				return wrapStoreErr(err, "appointment")
			}
			appt = built
			return nil
		},
		func(h *models.Hospital) {
			h.ApplyScheduleAppointment(appt, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventAppointmentScheduled),
		Subject:    apptID.String(),
	})
	return appt, nil
}

// CancelAppointment removes the appointment entirely.
func (s *HospitalService) CancelAppointment(ctx context.Context, hospitalID id.HospitalID, token string, apptID id.AppointmentID) (*models.Hospital, error) {
	if apptID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "appointment id is required")
	}
	now := requestcontext.Now(ctx)
	h, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			if err := h.CanCancelAppointment(apptID); err != nil {
				return wrapStoreErr(err, "appointment")
			}
			return nil
		},
		func(h *models.Hospital) {
			h.ApplyCancelAppointment(apptID, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventAppointmentCancelled),
		Subject:    apptID.String(),
	})
	return h, nil
}

// StockItem adds a new inventory item.
func (s *HospitalService) StockItem(ctx context.Context, hospitalID id.HospitalID, token string, name string, quantity uint64, unitPrice money.Amount) (*models.InventoryItem, error) {
	itemID := id.NewItemID()
	now := requestcontext.Now(ctx)
	item, err := models.NewInventoryItem(itemID, name, quantity, unitPrice, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	_, err = s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			if err := h.CanStockItem(item); err != nil {
				return wrapStoreErr(err, "inventory item")
			}
			return nil
		},
		func(h *models.Hospital) {
			h.ApplyStockItem(item, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventItemStocked),
		Subject:    itemID.String(),
	})
	return item, nil
}

// UpdateItem mutates an inventory item's fields in place.
func (s *HospitalService) UpdateItem(ctx context.Context, hospitalID id.HospitalID, token string, itemID id.ItemID, update models.ItemUpdate) (*models.InventoryItem, error) {
	if itemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "item id is required")
	}
	now := requestcontext.Now(ctx)
	h, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			if err := h.CanUpdateItem(itemID); err != nil {
				return wrapStoreErr(err, "inventory item")
			}
			return nil
		},
		func(h *models.Hospital) {
			h.ApplyUpdateItem(itemID, update, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventItemUpdated),
		Subject:    itemID.String(),
	})
	return h.Inventory[itemID], nil
}

// RemoveItem removes and destroys an inventory item.
func (s *HospitalService) RemoveItem(ctx context.Context, hospitalID id.HospitalID, token string, itemID id.ItemID) (*models.Hospital, error) {
	if itemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "item id is required")
	}
	now := requestcontext.Now(ctx)
	h, err := s.privileged(ctx, hospitalID, token,
		func(h *models.Hospital) error {
			if err := h.CanRemoveItem(itemID); err != nil {
				return wrapStoreErr(err, "inventory item")
			}
			return nil
		},
		func(h *models.Hospital) {
			h.ApplyRemoveItem(itemID, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     string(audit.EventItemRemoved),
		Subject:    itemID.String(),
	})
	return h, nil
}

// privileged wraps Execute so that the capability is verified in the
// validate phase, under the same aggregate lock as the mutation.
func (s *HospitalService) privileged(
	ctx context.Context,
	hospitalID id.HospitalID,
	token string,
	validate func(*models.Hospital) error,
	mutate func(*models.Hospital),
) (*models.Hospital, error) {
	if err := requireHospitalID(hospitalID); err != nil {
		return nil, err
	}
	cap, err := models.ParseCapabilityToken(hospitalID, token)
	if err != nil {
		return nil, err
	}
	h, err := s.hospitals.Execute(ctx, hospitalID,
		func(h *models.Hospital) error {
			if err := h.VerifyCapability(cap); err != nil {
				return err
			}
			return validate(h)
		},
		mutate,
	)
	if err != nil {
		return nil, wrapStoreErr(err, "hospital")
	}
	return h, nil
}
