package audit

import (
	"time"

	id "medledger/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time
	HospitalID id.HospitalID
	Actor      id.Principal
	Subject    string
	Action     string
	Amount     uint64
	RequestID  string
}

// EventAction names an auditable action.
type EventAction string

const (
	EventHospitalCreated      EventAction = "hospital.created"
	EventCapabilityRotated    EventAction = "hospital.capability_rotated"
	EventDeposited            EventAction = "hospital.deposited"
	EventStaffPaid            EventAction = "hospital.staff_paid"
	EventExpensePaid          EventAction = "hospital.expense_paid"
	EventStaffEmployed        EventAction = "hospital.staff_employed"
	EventPatientAdmitted      EventAction = "hospital.patient_admitted"
	EventPatientDischarged    EventAction = "hospital.patient_discharged"
	EventAppointmentScheduled EventAction = "hospital.appointment_scheduled"
	EventAppointmentCancelled EventAction = "hospital.appointment_cancelled"
	EventItemStocked          EventAction = "hospital.item_stocked"
	EventItemUpdated          EventAction = "hospital.item_updated"
	EventItemRemoved          EventAction = "hospital.item_removed"
	EventStaffRegistered      EventAction = "registry.staff_registered"
	EventStaffInfoUpdated     EventAction = "registry.staff_updated"
	EventPatientRegistered    EventAction = "registry.patient_registered"
	EventPatientInfoUpdated   EventAction = "registry.patient_updated"
)
