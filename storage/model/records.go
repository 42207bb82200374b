package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// IssuerMembership is a row of the authorized issuers set.
type IssuerMembership struct {
	Account   string `gorm:"primaryKey;size:42" json:"account"`
	CreatedAt int    `json:"created_at"`
}

// CertificateRecord is the database representation of a Certificate.
type CertificateRecord struct {
	Holder     string `gorm:"primaryKey;size:42"`
	ID         string `gorm:"primaryKey;size:66"`
	CreatedAt  int
	UpdatedAt  int
	Issuer     string `gorm:"index;size:42"`
	FileURL    string `gorm:"type:text"`
	Score      uint16
	IssueDate  int64
	ExpireDate int64 `gorm:"index"`
	Revoked    bool  `gorm:"index"`
	Sequence   uint64
}

// TableName implements the gorm tabler interface
func (CertificateRecord) TableName() string {
	return "certificates"
}

// NewCertificateRecord creates the CertificateRecord for a Certificate
func NewCertificateRecord(c Certificate) CertificateRecord {
	return CertificateRecord{
		Holder:     c.Holder.Hex(),
		ID:         c.ID.Hex(),
		Issuer:     c.Issuer.Hex(),
		FileURL:    c.FileURL,
		Score:      c.Score,
		IssueDate:  c.IssueDate,
		ExpireDate: c.ExpireDate,
		Revoked:    c.Revoked,
		Sequence:   c.Sequence,
	}
}

// Certificate converts the record back to a Certificate
func (r CertificateRecord) Certificate() Certificate {
	return Certificate{
		ID:         common.HexToHash(r.ID),
		Holder:     common.HexToAddress(r.Holder),
		Issuer:     common.HexToAddress(r.Issuer),
		FileURL:    r.FileURL,
		Score:      r.Score,
		IssueDate:  r.IssueDate,
		ExpireDate: r.ExpireDate,
		Revoked:    r.Revoked,
		Sequence:   r.Sequence,
	}
}

// HolderCounter holds the per-holder counters of the certificate registry.
type HolderCounter struct {
	Holder    string `gorm:"primaryKey;size:42"`
	UpdatedAt int
	Active    uint64
	Sequence  uint64
}
