package models

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

// Capability is the credential for privileged operations on exactly one
// hospital. The cleartext secret exists only in this struct, handed to the
// creator once at issuance (and again on rotation); the aggregate retains
// only a bcrypt hash. Possession of the secret is the proof of right.
//
// Invariants:
//   - Exactly one live grant per hospital (rotation replaces, never adds)
//   - HospitalID binding is immutable
type Capability struct {
	ID         id.CapabilityID
	HospitalID id.HospitalID
	Secret     string
}

// CapabilityGrant is what the aggregate stores: the token ID and the bcrypt
// hash of its secret. It cannot be used to reconstruct the secret.
type CapabilityGrant struct {
	ID         id.CapabilityID
	SecretHash []byte
}

// IssueCapability mints a fresh capability for hospitalID and the grant the
// aggregate must retain to verify it later.
func IssueCapability(hospitalID id.HospitalID) (*Capability, CapabilityGrant, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, CapabilityGrant{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate capability secret")
	}
	secret := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, CapabilityGrant{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash capability secret")
	}

	capID := id.NewCapabilityID()
	return &Capability{ID: capID, HospitalID: hospitalID, Secret: secret},
		CapabilityGrant{ID: capID, SecretHash: hash},
		nil
}

// Token renders the capability in its wire form "<id>.<secret>".
func (c *Capability) Token() string {
	return c.ID.String() + "." + c.Secret
}

// ParseCapabilityToken parses the wire form produced by Token. The hospital
// binding comes from the call target, not the token itself.
func ParseCapabilityToken(hospitalID id.HospitalID, token string) (*Capability, error) {
	rawID, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || secret == "" {
		return nil, dErrors.New(dErrors.CodeForbidden, "malformed capability token")
	}
	capID, err := id.ParseCapabilityID(rawID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "malformed capability token")
	}
	return &Capability{ID: capID, HospitalID: hospitalID, Secret: secret}, nil
}
