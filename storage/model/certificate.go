package model

// Certificate is a credential record issued to a holder. All fields are
// fixed at issuance except Revoked, which may only go from false to true.
type Certificate struct {
	ID         Identifier `json:"id" msgpack:"id"`
	Holder     Account    `json:"holder" msgpack:"holder"`
	Issuer     Account    `json:"issuer" msgpack:"issuer"`
	FileURL    string     `json:"file_url" msgpack:"file_url"`
	Score      uint16     `json:"score" msgpack:"score"`
	IssueDate  int64      `json:"issue_date" msgpack:"issue_date"`
	ExpireDate int64      `json:"expire_date" msgpack:"expire_date"`
	Revoked    bool       `json:"is_revoked" msgpack:"revoked"`
	// Sequence is the per-holder issuance counter that went into ID
	Sequence uint64 `json:"sequence" msgpack:"sequence"`
}

// Exists reports whether this is a stored certificate rather than the zero
// value returned for unknown identifiers.
func (c Certificate) Exists() bool {
	return c.ID != (Identifier{})
}

// Status returns the CertificateStatus at the passed unix time.
func (c Certificate) Status(now int64) CertificateStatus {
	switch {
	case !c.Exists():
		return StatusUnknown
	case c.Revoked:
		return StatusRevoked
	case now > c.ExpireDate:
		return StatusExpired
	default:
		return StatusActive
	}
}

// Valid reports whether the certificate verifies at the passed unix time.
func (c Certificate) Valid(now int64) bool {
	return c.Status(now) == StatusActive
}
