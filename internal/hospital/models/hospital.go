package models

import (
	"crypto/subtle"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/money"
	"medledger/pkg/platform/sentinel"
)

// Hospital is the aggregate root for one hospital's operational state: the
// shared balance and the four entity collections it exclusively owns.
//
// Invariants:
//   - Balance is never negative; every debit checks sufficiency first
//   - Collection membership is exclusive: removal destroys the record
//   - Exactly one live capability grant; privileged mutations require it
//   - Mutations happen only inside the store's Execute callback, which
//     holds the aggregate lock for validate and mutate together
//
// Methods come in CanX/ApplyX pairs. CanX never mutates; ApplyX never
// fails. The service runs CanX in the Execute validate phase and ApplyX in
// the mutate phase, which gives every operation all-or-nothing semantics:
// a failed operation is observably a no-op.
type Hospital struct {
	ID        id.HospitalID   `json:"id"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	Owner     id.Principal    `json:"owner"`
	Balance   money.Amount    `json:"balance"`
	Grant     CapabilityGrant `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Staff        map[id.StaffID]*Staff             `json:"staff"`
	Patients     map[id.PatientID]*Patient         `json:"patients"`
	Appointments map[id.AppointmentID]*Appointment `json:"appointments"`
	Inventory    map[id.ItemID]*InventoryItem      `json:"inventory"`
}

func NewHospital(hospitalID id.HospitalID, name, address string, owner id.Principal, grant CapabilityGrant, now time.Time) (*Hospital, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hospital name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hospital name must be 128 characters or less")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hospital requires an owning principal")
	}
	return &Hospital{
		ID:           hospitalID,
		Name:         name,
		Address:      address,
		Owner:        owner,
		Balance:      0,
		Grant:        grant,
		CreatedAt:    now,
		UpdatedAt:    now,
		Staff:        make(map[id.StaffID]*Staff),
		Patients:     make(map[id.PatientID]*Patient),
		Appointments: make(map[id.AppointmentID]*Appointment),
		Inventory:    make(map[id.ItemID]*InventoryItem),
	}, nil
}

// VerifyCapability checks that cap is the live grant for this hospital.
// The secret comparison is bcrypt's constant-time compare.
func (h *Hospital) VerifyCapability(cap *Capability) error {
	if cap == nil {
		return dErrors.New(dErrors.CodeForbidden, "capability token required")
	}
	if cap.HospitalID != h.ID {
		return dErrors.New(dErrors.CodeForbidden, "capability is bound to a different hospital")
	}
	if subtle.ConstantTimeCompare([]byte(cap.ID.String()), []byte(h.Grant.ID.String())) != 1 {
		return dErrors.New(dErrors.CodeForbidden, "capability has been superseded")
	}
	if err := bcrypt.CompareHashAndPassword(h.Grant.SecretHash, []byte(cap.Secret)); err != nil {
		return dErrors.New(dErrors.CodeForbidden, "capability secret mismatch")
	}
	return nil
}

// ApplyRotateCapability installs a new grant, invalidating the old token
// immediately.
func (h *Hospital) ApplyRotateCapability(grant CapabilityGrant, now time.Time) {
	h.Grant = grant
	h.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// Balance ledger
// ---------------------------------------------------------------------------

// CanDeposit checks that crediting amount would not overflow the balance.
func (h *Hospital) CanDeposit(amount money.Amount) error {
	_, err := h.Balance.Add(amount)
	return err
}

// ApplyDeposit credits amount to the hospital balance.
func (h *Hospital) ApplyDeposit(amount money.Amount, now time.Time) {
	h.Balance += amount
	h.UpdatedAt = now
}

// CanPayStaff checks that staffID is employed here, the hospital balance
// covers amount, and the staff balance would not overflow.
func (h *Hospital) CanPayStaff(staffID id.StaffID, amount money.Amount) error {
	staff, ok := h.Staff[staffID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, err := h.Balance.Sub(amount); err != nil {
		return err
	}
	if _, err := staff.Balance.Add(amount); err != nil {
		return err
	}
	return nil
}

// ApplyPayStaff moves amount from the hospital balance to the staff
// balance. The total across both is conserved.
func (h *Hospital) ApplyPayStaff(staffID id.StaffID, amount money.Amount, now time.Time) {
	staff := h.Staff[staffID]
	h.Balance -= amount
	staff.Balance += amount
	staff.UpdatedAt = now
	h.UpdatedAt = now
}

// CanPayExpense checks that the hospital balance covers amount.
func (h *Hospital) CanPayExpense(amount money.Amount) error {
	_, err := h.Balance.Sub(amount)
	return err
}

// ApplyPayExpense debits amount and returns it as detached funds leaving
// the system boundary.
func (h *Hospital) ApplyPayExpense(amount money.Amount, now time.Time) *money.Value {
	h.Balance -= amount
	h.UpdatedAt = now
	return money.NewValue(amount)
}

// ---------------------------------------------------------------------------
// Staff and patient collections
// ---------------------------------------------------------------------------

// CanEmployStaff checks for a duplicate key in the staff collection.
func (h *Hospital) CanEmployStaff(staff *Staff) error {
	if staff == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "staff record required")
	}
	if _, ok := h.Staff[staff.ID]; ok {
		return sentinel.ErrConflict
	}
	return nil
}

// ApplyEmployStaff snapshots the record into the staff collection.
func (h *Hospital) ApplyEmployStaff(staff *Staff, now time.Time) {
	h.Staff[staff.ID] = staff.Clone()
	h.UpdatedAt = now
}

// CanAdmitPatient checks for a duplicate key in the patient collection.
func (h *Hospital) CanAdmitPatient(patient *Patient) error {
	if patient == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "patient record required")
	}
	if _, ok := h.Patients[patient.ID]; ok {
		return sentinel.ErrConflict
	}
	return nil
}

// ApplyAdmitPatient snapshots the record into the patient collection.
func (h *Hospital) ApplyAdmitPatient(patient *Patient, now time.Time) {
	h.Patients[patient.ID] = patient.Clone()
	h.UpdatedAt = now
}

// CanDischargePatient checks that the patient is admitted.
func (h *Hospital) CanDischargePatient(patientID id.PatientID) error {
	if _, ok := h.Patients[patientID]; !ok {
		return sentinel.ErrNotFound
	}
	return nil
}

// ApplyDischargePatient removes and destroys the contained record. Any
// appointments still referencing the patient's principal are left as-is;
// appointment references are snapshots, not links.
func (h *Hospital) ApplyDischargePatient(patientID id.PatientID, now time.Time) {
	delete(h.Patients, patientID)
	h.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// Appointments
// ---------------------------------------------------------------------------

// CanScheduleAppointment checks for a duplicate appointment key.
func (h *Hospital) CanScheduleAppointment(appt *Appointment) error {
	if appt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "appointment required")
	}
	if _, ok := h.Appointments[appt.ID]; ok {
		return sentinel.ErrConflict
	}
	return nil
}

// ApplyScheduleAppointment inserts the appointment.
func (h *Hospital) ApplyScheduleAppointment(appt *Appointment, now time.Time) {
	h.Appointments[appt.ID] = appt
	h.UpdatedAt = now
}

// CanCancelAppointment checks that the appointment exists.
func (h *Hospital) CanCancelAppointment(apptID id.AppointmentID) error {
	if _, ok := h.Appointments[apptID]; !ok {
		return sentinel.ErrNotFound
	}
	return nil
}

// ApplyCancelAppointment removes and destroys the appointment.
func (h *Hospital) ApplyCancelAppointment(apptID id.AppointmentID, now time.Time) {
	delete(h.Appointments, apptID)
	h.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// CanStockItem checks for a duplicate inventory key.
func (h *Hospital) CanStockItem(item *InventoryItem) error {
	if item == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "inventory item required")
	}
	if _, ok := h.Inventory[item.ID]; ok {
		return sentinel.ErrConflict
	}
	return nil
}

// ApplyStockItem inserts the inventory item.
func (h *Hospital) ApplyStockItem(item *InventoryItem, now time.Time) {
	h.Inventory[item.ID] = item
	h.UpdatedAt = now
}

// CanUpdateItem checks that the inventory item exists.
func (h *Hospital) CanUpdateItem(itemID id.ItemID) error {
	if _, ok := h.Inventory[itemID]; !ok {
		return sentinel.ErrNotFound
	}
	return nil
}

// ApplyUpdateItem mutates the item fields in place.
func (h *Hospital) ApplyUpdateItem(itemID id.ItemID, update ItemUpdate, now time.Time) {
	h.Inventory[itemID].ApplyUpdate(update, now)
	h.UpdatedAt = now
}

// CanRemoveItem checks that the inventory item exists.
func (h *Hospital) CanRemoveItem(itemID id.ItemID) error {
	if _, ok := h.Inventory[itemID]; !ok {
		return sentinel.ErrNotFound
	}
	return nil
}

// ApplyRemoveItem removes and destroys the inventory item.
func (h *Hospital) ApplyRemoveItem(itemID id.ItemID, now time.Time) {
	delete(h.Inventory, itemID)
	h.UpdatedAt = now
}

// Clone returns a deep copy of the aggregate. Stores return clones so
// callers can never mutate shared state outside Execute.
func (h *Hospital) Clone() *Hospital {
	c := *h
	c.Staff = make(map[id.StaffID]*Staff, len(h.Staff))
	for k, v := range h.Staff {
		c.Staff[k] = v.Clone()
	}
	c.Patients = make(map[id.PatientID]*Patient, len(h.Patients))
	for k, v := range h.Patients {
		c.Patients[k] = v.Clone()
	}
	c.Appointments = make(map[id.AppointmentID]*Appointment, len(h.Appointments))
	for k, v := range h.Appointments {
		c.Appointments[k] = v.Clone()
	}
	c.Inventory = make(map[id.ItemID]*InventoryItem, len(h.Inventory))
	for k, v := range h.Inventory {
		c.Inventory[k] = v.Clone()
	}
	return &c
}
