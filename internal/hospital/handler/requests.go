package handler

import (
	"medledger/internal/hospital/models"
	"medledger/pkg/money"
)

type createHospitalRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type createHospitalResponse struct {
	Hospital   *models.Hospital `json:"hospital"`
	Capability string           `json:"capability"`
}

type rotateCapabilityResponse struct {
	Capability string `json:"capability"`
}

type amountRequest struct {
	Amount money.Amount `json:"amount"`
}

type payStaffRequest struct {
	StaffID string       `json:"staff_id"`
	Amount  money.Amount `json:"amount"`
}

type payExpenseResponse struct {
	Paid money.Amount `json:"paid"`
}

type employStaffRequest struct {
	StaffID string `json:"staff_id"`
}

type admitPatientRequest struct {
	PatientID string `json:"patient_id"`
}

type scheduleAppointmentRequest struct {
	PatientID   string `json:"patient_id"`
	DoctorID    string `json:"doctor_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

type stockItemRequest struct {
	Name      string       `json:"name"`
	Quantity  uint64       `json:"quantity"`
	UnitPrice money.Amount `json:"unit_price"`
}

type registerStaffRequest struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	HireDate   string `json:"hire_date"`
}

type registerPatientRequest struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medical_history"`
}
