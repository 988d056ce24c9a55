// Package handler exposes the hospital and registry services over HTTP.
//
// Authentication is a bearer JWT carrying the caller principal; hospital
// authorization is the capability token presented in the
// X-Hospital-Capability header. The handler decodes and validates wire
// input, delegates to the services and maps coded errors onto statuses.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medledger/internal/hospital/models"
	"medledger/internal/platform/middleware"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/money"
	"medledger/pkg/platform/httputil"
)

// CapabilityHeader carries the hospital capability token.
const CapabilityHeader = "X-Hospital-Capability"

// HospitalService defines the hospital aggregate operations the handler
// exposes.
type HospitalService interface {
	CreateHospital(ctx context.Context, name, address string) (*models.Hospital, *models.Capability, error)
	GetHospital(ctx context.Context, hospitalID id.HospitalID, token string) (*models.Hospital, error)
	RotateCapability(ctx context.Context, hospitalID id.HospitalID, token string) (*models.Capability, error)
	Deposit(ctx context.Context, hospitalID id.HospitalID, token string, amount money.Amount) (*models.Hospital, error)
	PayStaff(ctx context.Context, hospitalID id.HospitalID, token string, staffID id.StaffID, amount money.Amount) (*models.Hospital, error)
	PayExpense(ctx context.Context, hospitalID id.HospitalID, token string, amount money.Amount) (*money.Value, error)
	EmployStaff(ctx context.Context, hospitalID id.HospitalID, token string, staffID id.StaffID) (*models.Hospital, error)
	AdmitPatient(ctx context.Context, hospitalID id.HospitalID, token string, patientID id.PatientID) (*models.Hospital, error)
	DischargePatient(ctx context.Context, hospitalID id.HospitalID, token string, patientID id.PatientID) (*models.Hospital, error)
	ScheduleAppointment(ctx context.Context, hospitalID id.HospitalID, token string, patientID id.PatientID, doctorID id.StaffID, date, timeOfDay, description string) (*models.Appointment, error)
	CancelAppointment(ctx context.Context, hospitalID id.HospitalID, token string, apptID id.AppointmentID) (*models.Hospital, error)
	StockItem(ctx context.Context, hospitalID id.HospitalID, token string, name string, quantity uint64, unitPrice money.Amount) (*models.InventoryItem, error)
	UpdateItem(ctx context.Context, hospitalID id.HospitalID, token string, itemID id.ItemID, update models.ItemUpdate) (*models.InventoryItem, error)
	RemoveItem(ctx context.Context, hospitalID id.HospitalID, token string, itemID id.ItemID) (*models.Hospital, error)
}

// RegistryService defines the detached staff/patient record operations.
type RegistryService interface {
	RegisterStaff(ctx context.Context, name, role, department, hireDate string) (*models.Staff, error)
	GetStaff(ctx context.Context, staffID id.StaffID) (*models.Staff, error)
	UpdateStaff(ctx context.Context, staffID id.StaffID, update models.StaffUpdate) (*models.Staff, error)
	RegisterPatient(ctx context.Context, name string, age int, address, medicalHistory string) (*models.Patient, error)
	GetPatient(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	UpdatePatient(ctx context.Context, patientID id.PatientID, update models.PatientUpdate) (*models.Patient, error)
}

// Handler handles hospital and registry endpoints.
type Handler struct {
	logger       *slog.Logger
	hospitals    HospitalService
	registry     RegistryService
	jwtValidator middleware.JWTValidator
}

// New creates a new Handler.
func New(hospitals HospitalService, registry RegistryService, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		hospitals:    hospitals,
		registry:     registry,
		jwtValidator: jwtValidator,
	}
}

// Register registers the routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(middleware.Metrics)
	router.Use(middleware.Tracing)
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Route("/hospitals", func(r chi.Router) {
		r.Post("/", h.handleCreateHospital)
		r.Route("/{hospitalID}", func(r chi.Router) {
			r.Get("/", h.handleGetHospital)
			r.Post("/capability/rotate", h.handleRotateCapability)
			r.Post("/deposits", h.handleDeposit)
			r.Post("/payroll", h.handlePayStaff)
			r.Post("/expenses", h.handlePayExpense)
			r.Post("/staff", h.handleEmployStaff)
			r.Post("/patients", h.handleAdmitPatient)
			r.Delete("/patients/{patientID}", h.handleDischargePatient)
			r.Post("/appointments", h.handleScheduleAppointment)
			r.Delete("/appointments/{appointmentID}", h.handleCancelAppointment)
			r.Post("/inventory", h.handleStockItem)
			r.Patch("/inventory/{itemID}", h.handleUpdateItem)
			r.Delete("/inventory/{itemID}", h.handleRemoveItem)
		})
	})

	router.Route("/staff", func(r chi.Router) {
		r.Post("/", h.handleRegisterStaff)
		r.Get("/{staffID}", h.handleGetStaff)
		r.Patch("/{staffID}", h.handleUpdateStaff)
	})

	router.Route("/patients", func(r chi.Router) {
		r.Post("/", h.handleRegisterPatient)
		r.Get("/{patientID}", h.handleGetPatient)
		r.Patch("/{patientID}", h.handleUpdatePatient)
	})

	r.Mount("/", router)
}

func (h *Handler) handleCreateHospital(w http.ResponseWriter, r *http.Request) {
	var req createHospitalRequest
	if !h.decode(w, r, &req) {
		return
	}
	hospital, cap, err := h.hospitals.CreateHospital(r.Context(), req.Name, req.Address)
	if err != nil {
		h.writeServiceError(w, r, "create hospital", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createHospitalResponse{
		Hospital:   hospital,
		Capability: cap.Token(),
	})
}

func (h *Handler) handleGetHospital(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	hospital, err := h.hospitals.GetHospital(r.Context(), hospitalID, h.capability(r))
	if err != nil {
		h.writeServiceError(w, r, "get hospital", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, hospital)
}

func (h *Handler) handleRotateCapability(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	next, err := h.hospitals.RotateCapability(r.Context(), hospitalID, h.capability(r))
	if err != nil {
		h.writeServiceError(w, r, "rotate capability", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rotateCapabilityResponse{Capability: next.Token()})
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	hospital, err := h.hospitals.Deposit(r.Context(), hospitalID, h.capability(r), req.Amount)
	if err != nil {
		h.writeServiceError(w, r, "deposit", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, hospital)
}

func (h *Handler) handlePayStaff(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	var req payStaffRequest
	if !h.decode(w, r, &req) {
		return
	}
	staffID, err := id.ParseStaffID(req.StaffID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hospital, err := h.hospitals.PayStaff(r.Context(), hospitalID, h.capability(r), staffID, req.Amount)
	if err != nil {
		h.writeServiceError(w, r, "pay staff", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, hospital)
}

func (h *Handler) handlePayExpense(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	paid, err := h.hospitals.PayExpense(r.Context(), hospitalID, h.capability(r), req.Amount)
	if err != nil {
		h.writeServiceError(w, r, "pay expense", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payExpenseResponse{Paid: paid.Amount()})
}

func (h *Handler) handleEmployStaff(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	var req employStaffRequest
	if !h.decode(w, r, &req) {
		return
	}
	staffID, err := id.ParseStaffID(req.StaffID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hospital, err := h.hospitals.EmployStaff(r.Context(), hospitalID, h.capability(r), staffID)
	if err != nil {
		h.writeServiceError(w, r, "employ staff", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, hospital)
}

func (h *Handler) handleAdmitPatient(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	var req admitPatientRequest
	if !h.decode(w, r, &req) {
		return
	}
	patientID, err := id.ParsePatientID(req.PatientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hospital, err := h.hospitals.AdmitPatient(r.Context(), hospitalID, h.capability(r), patientID)
	if err != nil {
		h.writeServiceError(w, r, "admit patient", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, hospital)
}

func (h *Handler) handleDischargePatient(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.hospitals.DischargePatient(r.Context(), hospitalID, h.capability(r), patientID); err != nil {
		h.writeServiceError(w, r, "discharge patient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleScheduleAppointment(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	var req scheduleAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	patientID, err := id.ParsePatientID(req.PatientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doctorID, err := id.ParseStaffID(req.DoctorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appt, err := h.hospitals.ScheduleAppointment(r.Context(), hospitalID, h.capability(r),
		patientID, doctorID, req.Date, req.Time, req.Description)
	if err != nil {
		h.writeServiceError(w, r, "schedule appointment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, appt)
}

func (h *Handler) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	apptID, err := id.ParseAppointmentID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.hospitals.CancelAppointment(r.Context(), hospitalID, h.capability(r), apptID); err != nil {
		h.writeServiceError(w, r, "cancel appointment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStockItem(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	var req stockItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.hospitals.StockItem(r.Context(), hospitalID, h.capability(r), req.Name, req.Quantity, req.UnitPrice)
	if err != nil {
		h.writeServiceError(w, r, "stock item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var update models.ItemUpdate
	if !h.decode(w, r, &update) {
		return
	}
	item, err := h.hospitals.UpdateItem(r.Context(), hospitalID, h.capability(r), itemID, update)
	if err != nil {
		h.writeServiceError(w, r, "update item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	hospitalID, ok := h.hospitalID(w, r)
	if !ok {
		return
	}
	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.hospitals.RemoveItem(r.Context(), hospitalID, h.capability(r), itemID); err != nil {
		h.writeServiceError(w, r, "remove item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegisterStaff(w http.ResponseWriter, r *http.Request) {
	var req registerStaffRequest
	if !h.decode(w, r, &req) {
		return
	}
	staff, err := h.registry.RegisterStaff(r.Context(), req.Name, req.Role, req.Department, req.HireDate)
	if err != nil {
		h.writeServiceError(w, r, "register staff", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, staff)
}

func (h *Handler) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	staffID, err := id.ParseStaffID(chi.URLParam(r, "staffID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	staff, err := h.registry.GetStaff(r.Context(), staffID)
	if err != nil {
		h.writeServiceError(w, r, "get staff", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, staff)
}

func (h *Handler) handleUpdateStaff(w http.ResponseWriter, r *http.Request) {
	staffID, err := id.ParseStaffID(chi.URLParam(r, "staffID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var update models.StaffUpdate
	if !h.decode(w, r, &update) {
		return
	}
	staff, err := h.registry.UpdateStaff(r.Context(), staffID, update)
	if err != nil {
		h.writeServiceError(w, r, "update staff", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, staff)
}

func (h *Handler) handleRegisterPatient(w http.ResponseWriter, r *http.Request) {
	var req registerPatientRequest
	if !h.decode(w, r, &req) {
		return
	}
	patient, err := h.registry.RegisterPatient(r.Context(), req.Name, req.Age, req.Address, req.MedicalHistory)
	if err != nil {
		h.writeServiceError(w, r, "register patient", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, patient)
}

func (h *Handler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	patient, err := h.registry.GetPatient(r.Context(), patientID)
	if err != nil {
		h.writeServiceError(w, r, "get patient", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var update models.PatientUpdate
	if !h.decode(w, r, &update) {
		return
	}
	patient, err := h.registry.UpdatePatient(r.Context(), patientID, update)
	if err != nil {
		h.writeServiceError(w, r, "update patient", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, patient)
}

// capability returns the raw capability token header; the service parses
// and verifies it.
func (h *Handler) capability(r *http.Request) string {
	return r.Header.Get(CapabilityHeader)
}

func (h *Handler) hospitalID(w http.ResponseWriter, r *http.Request) (id.HospitalID, bool) {
	hospitalID, err := id.ParseHospitalID(chi.URLParam(r, "hospitalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.HospitalID{}, false
	}
	return hospitalID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), "operation failed",
			"operation", op,
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
