// Package domain defines the typed identifiers shared across the codebase.
//
// Every entity kind gets its own UUID-backed type so that a StaffID can
// never be passed where a PatientID is expected. Principal is the caller
// identity stamped onto self-owned records at creation; it is an identity,
// not a containment link (appointments reference staff and patients by
// principal only).
package domain

import (
	"github.com/google/uuid"

	dErrors "medledger/pkg/domain-errors"
)

type (
	// HospitalID identifies a hospital aggregate.
	HospitalID uuid.UUID
	// StaffID identifies a staff record, detached or employed.
	StaffID uuid.UUID
	// PatientID identifies a patient record, detached or admitted.
	PatientID uuid.UUID
	// AppointmentID identifies an appointment inside a hospital.
	AppointmentID uuid.UUID
	// ItemID identifies an inventory item inside a hospital.
	ItemID uuid.UUID
	// CapabilityID identifies an issued capability token (jti).
	CapabilityID uuid.UUID
	// Principal is the caller identity attributed to records at creation.
	Principal uuid.UUID
)

func (id HospitalID) String() string    { return uuid.UUID(id).String() }
func (id StaffID) String() string       { return uuid.UUID(id).String() }
func (id PatientID) String() string     { return uuid.UUID(id).String() }
func (id AppointmentID) String() string { return uuid.UUID(id).String() }
func (id ItemID) String() string        { return uuid.UUID(id).String() }
func (id CapabilityID) String() string  { return uuid.UUID(id).String() }
func (p Principal) String() string      { return uuid.UUID(p).String() }

func (id HospitalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id StaffID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PatientID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AppointmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CapabilityID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (p Principal) IsNil() bool      { return uuid.UUID(p) == uuid.Nil }

// Text marshalling renders IDs as canonical UUID strings in JSON and cache
// payloads.

func (id HospitalID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id StaffID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id PatientID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id AppointmentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ItemID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id CapabilityID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (p Principal) MarshalText() ([]byte, error)      { return []byte(p.String()), nil }

func unmarshalUUID(dst *uuid.UUID, text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

func (id *HospitalID) UnmarshalText(text []byte) error {
	return unmarshalUUID((*uuid.UUID)(id), text)
}

func (id *StaffID) UnmarshalText(text []byte) error {
	return unmarshalUUID((*uuid.UUID)(id), text)
}

func (id *PatientID) UnmarshalText(text []byte) error {
	return unmarshalUUID((*uuid.UUID)(id), text)
}

func (id *AppointmentID) UnmarshalText(text []byte) error {
	return unmarshalUUID((*uuid.UUID)(id), text)
}

func (id *ItemID) UnmarshalText(text []byte) error {
	return unmarshalUUID((*uuid.UUID)(id), text)
}

func (id *CapabilityID) UnmarshalText(text []byte) error {
	return unmarshalUUID((*uuid.UUID)(id), text)
}

func (p *Principal) UnmarshalText(text []byte) error {
	return unmarshalUUID((*uuid.UUID)(p), text)
}

// NewHospitalID allocates a fresh hospital identifier.
func NewHospitalID() HospitalID { return HospitalID(uuid.New()) }

// NewStaffID allocates a fresh staff identifier.
func NewStaffID() StaffID { return StaffID(uuid.New()) }

// NewPatientID allocates a fresh patient identifier.
func NewPatientID() PatientID { return PatientID(uuid.New()) }

// NewAppointmentID allocates a fresh appointment identifier.
func NewAppointmentID() AppointmentID { return AppointmentID(uuid.New()) }

// NewItemID allocates a fresh inventory item identifier.
func NewItemID() ItemID { return ItemID(uuid.New()) }

// NewCapabilityID allocates a fresh capability token identifier.
func NewCapabilityID() CapabilityID { return CapabilityID(uuid.New()) }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(kind, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s id", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be nil", kind)
	}
	return parsed, nil
}

func ParseHospitalID(raw string) (HospitalID, error) {
	u, err := parseUUID("hospital", raw)
	return HospitalID(u), err
}

func ParseStaffID(raw string) (StaffID, error) {
	u, err := parseUUID("staff", raw)
	return StaffID(u), err
}

func ParsePatientID(raw string) (PatientID, error) {
	u, err := parseUUID("patient", raw)
	return PatientID(u), err
}

func ParseAppointmentID(raw string) (AppointmentID, error) {
	u, err := parseUUID("appointment", raw)
	return AppointmentID(u), err
}

func ParseItemID(raw string) (ItemID, error) {
	u, err := parseUUID("item", raw)
	return ItemID(u), err
}

func ParseCapabilityID(raw string) (CapabilityID, error) {
	u, err := parseUUID("capability", raw)
	return CapabilityID(u), err
}

func ParsePrincipal(raw string) (Principal, error) {
	u, err := parseUUID("principal", raw)
	return Principal(u), err
}
