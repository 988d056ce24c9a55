package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medledger/internal/hospital/models"
	id "medledger/pkg/domain"
	"medledger/pkg/money"
	"medledger/pkg/platform/sentinel"
)

// Schema creates the registry tables. Applied by the test containers and by
// deployments that manage the schema out of band.
const Schema = `
CREATE TABLE IF NOT EXISTS staff_records (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	hire_date  TEXT NOT NULL DEFAULT '',
	principal  UUID NOT NULL,
	balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS patient_records (
	id              UUID PRIMARY KEY,
	name            TEXT NOT NULL,
	age             INT NOT NULL CHECK (age >= 0),
	address         TEXT NOT NULL DEFAULT '',
	principal       UUID NOT NULL,
	medical_history TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
`

// Postgres persists registry records through database/sql (pgx stdlib
// driver). ExecuteStaff/ExecutePatient use SELECT ... FOR UPDATE so the
// validate-then-mutate sequence holds the row lock, matching the memory
// store's semantics.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateStaff(ctx context.Context, staff *models.Staff) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff_records (id, name, role, department, hire_date, principal, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		uuid.UUID(staff.ID), staff.Name, staff.Role, staff.Department, staff.HireDate,
		uuid.UUID(staff.Principal), int64(staff.Balance), staff.CreatedAt, staff.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert staff record: %w", err)
	}
	return nil
}

func (s *Postgres) FindStaff(ctx context.Context, staffID id.StaffID) (*models.Staff, error) {
	return scanStaff(s.db.QueryRowContext(ctx, `
		SELECT id, name, role, department, hire_date, principal, balance, created_at, updated_at
		FROM staff_records WHERE id = $1`, uuid.UUID(staffID)))
}

func (s *Postgres) ExecuteStaff(
	ctx context.Context,
	staffID id.StaffID,
	validate func(*models.Staff) error,
	mutate func(*models.Staff),
) (*models.Staff, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	staff, err := scanStaff(tx.QueryRowContext(ctx, `
		SELECT id, name, role, department, hire_date, principal, balance, created_at, updated_at
		FROM staff_records WHERE id = $1 FOR UPDATE`, uuid.UUID(staffID)))
	if err != nil {
		return nil, err
	}

	if err := validate(staff); err != nil {
		return nil, err
	}
	mutate(staff)

	if _, err := tx.ExecContext(ctx, `
		UPDATE staff_records
		SET name = $2, role = $3, department = $4, hire_date = $5, balance = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(staff.ID), staff.Name, staff.Role, staff.Department, staff.HireDate,
		int64(staff.Balance), staff.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update staff record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return staff, nil
}

func (s *Postgres) CreatePatient(ctx context.Context, patient *models.Patient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patient_records (id, name, age, address, principal, medical_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		uuid.UUID(patient.ID), patient.Name, patient.Age, patient.Address,
		uuid.UUID(patient.Principal), patient.MedicalHistory, patient.CreatedAt, patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert patient record: %w", err)
	}
	return nil
}

func (s *Postgres) FindPatient(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	return scanPatient(s.db.QueryRowContext(ctx, `
		SELECT id, name, age, address, principal, medical_history, created_at, updated_at
		FROM patient_records WHERE id = $1`, uuid.UUID(patientID)))
}

func (s *Postgres) ExecutePatient(
	ctx context.Context,
	patientID id.PatientID,
	validate func(*models.Patient) error,
	mutate func(*models.Patient),
) (*models.Patient, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	patient, err := scanPatient(tx.QueryRowContext(ctx, `
		SELECT id, name, age, address, principal, medical_history, created_at, updated_at
		FROM patient_records WHERE id = $1 FOR UPDATE`, uuid.UUID(patientID)))
	if err != nil {
		return nil, err
	}

	if err := validate(patient); err != nil {
		return nil, err
	}
	mutate(patient)

	if _, err := tx.ExecContext(ctx, `
		UPDATE patient_records
		SET name = $2, age = $3, address = $4, medical_history = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(patient.ID), patient.Name, patient.Age, patient.Address,
		patient.MedicalHistory, patient.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update patient record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return patient, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStaff(row rowScanner) (*models.Staff, error) {
	var (
		staff     models.Staff
		staffID   uuid.UUID
		principal uuid.UUID
		balance   int64
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&staffID, &staff.Name, &staff.Role, &staff.Department, &staff.HireDate,
		&principal, &balance, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan staff record: %w", err)
	}
	staff.ID = id.StaffID(staffID)
	staff.Principal = id.Principal(principal)
	staff.Balance = money.Amount(balance)
	staff.CreatedAt = createdAt
	staff.UpdatedAt = updatedAt
	return &staff, nil
}

func scanPatient(row rowScanner) (*models.Patient, error) {
	var (
		patient   models.Patient
		patientID uuid.UUID
		principal uuid.UUID
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&patientID, &patient.Name, &patient.Age, &patient.Address,
		&principal, &patient.MedicalHistory, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient record: %w", err)
	}
	patient.ID = id.PatientID(patientID)
	patient.Principal = id.Principal(principal)
	patient.CreatedAt = createdAt
	patient.UpdatedAt = updatedAt
	return &patient, nil
}
