package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medledger/internal/hospital/service"
	hospitalstore "medledger/internal/hospital/store/hospital"
	"medledger/internal/hospital/store/registry"
	jwttoken "medledger/internal/jwt_token"
	id "medledger/pkg/domain"
)

var jwtService = jwttoken.NewJWTService("test-signing-key", "medledger", "medledger-api")

type testEnv struct {
	router http.Handler
	bearer string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.NewInMemory()
	hospitals := service.NewHospitalService(hospitalstore.NewInMemory(), reg, service.WithLogger(logger))
	registrySvc := service.NewRegistryService(reg, service.WithLogger(logger))

	h := New(hospitals, registrySvc, logger, jwttoken.NewJWTServiceAdapter(jwtService))
	r := chi.NewRouter()
	h.Register(r)

	token, err := jwtService.GenerateAccessToken(id.Principal(uuid.New()), time.Hour)
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}
	return &testEnv{router: r, bearer: "Bearer " + token}
}

// do runs an authenticated JSON request and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, capability string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", e.bearer)
	if capability != "" {
		req.Header.Set(CapabilityHeader, capability)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

// createHospital returns the hospital ID and capability token.
func (e *testEnv) createHospital(t *testing.T) (string, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/hospitals", "", map[string]string{
		"name": "General Hospital", "address": "1 Main St",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating hospital, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Hospital struct {
			ID string `json:"id"`
		} `json:"hospital"`
		Capability string `json:"capability"`
	}](t, rec)
	if resp.Hospital.ID == "" || resp.Capability == "" {
		t.Fatalf("expected hospital id and capability in response")
	}
	return resp.Hospital.ID, resp.Capability
}

// registerStaff creates a detached staff record and returns its ID.
func (e *testEnv) registerStaff(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/staff", "", map[string]string{
		"name": "Dr. Bailey", "role": "surgeon", "department": "cardio", "hire_date": "2021-03-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering staff, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[struct {
		ID string `json:"id"`
	}](t, rec).ID
}

func TestBearerTokenRequired(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/hospitals", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", rec.Code)
	}
}

func TestCreateAndGetHospital(t *testing.T) {
	env := newTestEnv(t)
	hospitalID, capability := env.createHospital(t)

	rec := env.do(t, http.MethodGet, "/hospitals/"+hospitalID, capability, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching hospital, got %d", rec.Code)
	}
	resp := decode[struct {
		Balance uint64 `json:"balance"`
		Name    string `json:"name"`
	}](t, rec)
	if resp.Balance != 0 {
		t.Fatalf("expected zero starting balance, got %d", resp.Balance)
	}
	if resp.Name != "General Hospital" {
		t.Fatalf("unexpected hospital name %q", resp.Name)
	}
}

func TestGetHospitalWithoutCapability(t *testing.T) {
	env := newTestEnv(t)
	hospitalID, _ := env.createHospital(t)

	rec := env.do(t, http.MethodGet, "/hospitals/"+hospitalID, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without capability, got %d", rec.Code)
	}
}

func TestPayrollFlow(t *testing.T) {
	env := newTestEnv(t)
	hospitalID, capability := env.createHospital(t)
	staffID := env.registerStaff(t)

	rec := env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/staff", capability,
		map[string]string{"staff_id": staffID})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 employing staff, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/deposits", capability,
		map[string]uint64{"amount": 500})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 depositing, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/payroll", capability,
		map[string]any{"staff_id": staffID, "amount": 200})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 paying staff, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Balance uint64 `json:"balance"`
		Staff   map[string]struct {
			Balance uint64 `json:"balance"`
		} `json:"staff"`
	}](t, rec)
	if resp.Balance != 300 {
		t.Fatalf("expected hospital balance 300, got %d", resp.Balance)
	}
	if resp.Staff[staffID].Balance != 200 {
		t.Fatalf("expected staff balance 200, got %d", resp.Staff[staffID].Balance)
	}

	// Overdraft attempt returns 402 and changes nothing.
	rec = env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/payroll", capability,
		map[string]any{"staff_id": staffID, "amount": 400})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 on overdraft, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/hospitals/"+hospitalID, capability, nil)
	after := decode[struct {
		Balance uint64 `json:"balance"`
	}](t, rec)
	if after.Balance != 300 {
		t.Fatalf("expected balance unchanged at 300 after overdraft, got %d", after.Balance)
	}
}

func TestExpense(t *testing.T) {
	env := newTestEnv(t)
	hospitalID, capability := env.createHospital(t)

	env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/deposits", capability,
		map[string]uint64{"amount": 500})

	rec := env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/expenses", capability,
		map[string]uint64{"amount": 150})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 paying expense, got %d", rec.Code)
	}
	resp := decode[struct {
		Paid uint64 `json:"paid"`
	}](t, rec)
	if resp.Paid != 150 {
		t.Fatalf("expected paid 150, got %d", resp.Paid)
	}
}

func TestForgedCapabilityRejected(t *testing.T) {
	env := newTestEnv(t)
	hospitalID, _ := env.createHospital(t)

	forged := uuid.NewString() + ".deadbeef"
	rec := env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/deposits", forged,
		map[string]uint64{"amount": 100})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with forged capability, got %d", rec.Code)
	}
}

func TestCapabilityRotation(t *testing.T) {
	env := newTestEnv(t)
	hospitalID, capability := env.createHospital(t)

	rec := env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/capability/rotate", capability, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 rotating capability, got %d", rec.Code)
	}
	next := decode[struct {
		Capability string `json:"capability"`
	}](t, rec).Capability

	rec = env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/deposits", capability,
		map[string]uint64{"amount": 100})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with superseded capability, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/deposits", next,
		map[string]uint64{"amount": 100})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with rotated capability, got %d", rec.Code)
	}
}

func TestPatientAdmissionAndDischarge(t *testing.T) {
	env := newTestEnv(t)
	hospitalID, capability := env.createHospital(t)

	rec := env.do(t, http.MethodPost, "/patients", "", map[string]any{
		"name": "John Doe", "age": 42, "address": "3 Elm St",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering patient, got %d", rec.Code)
	}
	patientID := decode[struct {
		ID string `json:"id"`
	}](t, rec).ID

	rec = env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/patients", capability,
		map[string]string{"patient_id": patientID})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 admitting patient, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/hospitals/"+hospitalID+"/patients/"+patientID, capability, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 discharging patient, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/hospitals/"+hospitalID+"/patients/"+patientID, capability, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second discharge, got %d", rec.Code)
	}
}

func TestInventoryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	hospitalID, capability := env.createHospital(t)

	rec := env.do(t, http.MethodPost, "/hospitals/"+hospitalID+"/inventory", capability,
		map[string]any{"name": "saline bags", "quantity": 40, "unit_price": 299})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 stocking item, got %d", rec.Code)
	}
	itemID := decode[struct {
		ID string `json:"id"`
	}](t, rec).ID

	rec = env.do(t, http.MethodPatch, "/hospitals/"+hospitalID+"/inventory/"+itemID, capability,
		map[string]any{"quantity": 35})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 updating item, got %d", rec.Code)
	}
	updated := decode[struct {
		Quantity uint64 `json:"quantity"`
	}](t, rec)
	if updated.Quantity != 35 {
		t.Fatalf("expected quantity 35, got %d", updated.Quantity)
	}

	rec = env.do(t, http.MethodDelete, "/hospitals/"+hospitalID+"/inventory/"+itemID, capability, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 removing item, got %d", rec.Code)
	}
}

func TestStaffSelfUpdateAuthorization(t *testing.T) {
	env := newTestEnv(t)
	staffID := env.registerStaff(t)

	rec := env.do(t, http.MethodPatch, "/staff/"+staffID, "", map[string]string{"role": "chief"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on self update, got %d", rec.Code)
	}

	// A different authenticated principal is rejected.
	otherToken, err := jwtService.GenerateAccessToken(id.Principal(uuid.New()), time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	raw, _ := json.Marshal(map[string]string{"role": "impostor"})
	req := httptest.NewRequest(http.MethodPatch, "/staff/"+staffID, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+otherToken)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner update, got %d", rec.Code)
	}
}
