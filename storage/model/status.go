package model

import (
	"fmt"
)

// CertificateStatus is the derived state of a certificate at a point in time.
// It is never stored; revocation is stored and expiry is evaluated on query.
type CertificateStatus int

// Constants for CertificateStatus
const (
	StatusActive CertificateStatus = iota
	StatusRevoked
	StatusExpired
	StatusUnknown
)

// String returns the canonical string representation for the status.
func (s CertificateStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRevoked:
		return "revoked"
	case StatusExpired:
		return "expired"
	case StatusUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Valid reports whether the status is one of the defined constants.
func (s CertificateStatus) Valid() bool {
	switch s {
	case StatusActive, StatusRevoked, StatusExpired, StatusUnknown:
		return true
	default:
		return false
	}
}

// MarshalJSON encodes the status as a JSON string.
func (s CertificateStatus) MarshalJSON() ([]byte, error) {
	return []byte("\"" + s.String() + "\""), nil
}

// UnmarshalJSON decodes the status from a JSON string.
func (s *CertificateStatus) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("status must be a JSON string")
	}
	ps, err := ParseCertificateStatus(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*s = ps
	return nil
}

// ParseCertificateStatus converts a string to a CertificateStatus, returning an error for invalid values.
func ParseCertificateStatus(v string) (CertificateStatus, error) {
	switch v {
	case "active":
		return StatusActive, nil
	case "revoked":
		return StatusRevoked, nil
	case "expired":
		return StatusExpired, nil
	case "unknown":
		return StatusUnknown, nil
	}
	return 0, fmt.Errorf("invalid status: %s", v)
}
