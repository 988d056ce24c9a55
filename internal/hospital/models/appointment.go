package models

import (
	"time"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

// Appointment lives only inside a hospital's appointment collection. It
// references the patient and doctor by PRINCIPAL, snapshotted at creation;
// there is no back-link to the live records, so later changes to (or
// discharge of) the referenced staff/patient do not propagate here.
// Cancellation deletes the record entirely; there is no soft-cancel state.
type Appointment struct {
	ID               id.AppointmentID `json:"id"`
	PatientPrincipal id.Principal     `json:"patient_principal"`
	DoctorPrincipal  id.Principal     `json:"doctor_principal"`
	Date             string           `json:"date"`
	Time             string           `json:"time"`
	Description      string           `json:"description"`
	CreatedAt        time.Time        `json:"created_at"`
}

// NewAppointment synthesizes an appointment from live patient and staff
// records, copying their principals.
func NewAppointment(apptID id.AppointmentID, patient *Patient, doctor *Staff, date, timeOfDay, description string, now time.Time) (*Appointment, error) {
	if patient == nil || doctor == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "appointment requires a patient and a doctor")
	}
	if date == "" || timeOfDay == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "appointment requires a date and time")
	}
	return &Appointment{
		ID:               apptID,
		PatientPrincipal: patient.Principal,
		DoctorPrincipal:  doctor.Principal,
		Date:             date,
		Time:             timeOfDay,
		Description:      description,
		CreatedAt:        now,
	}, nil
}

// Clone returns an independent copy.
func (a *Appointment) Clone() *Appointment {
	c := *a
	return &c
}
