// Package events defines the events emitted by the ledger registries and the
// publishers they are delivered through.
package events

import (
	"context"
	"fmt"

	"github.com/fatih/structs"

	"github.com/go-oidfed/certledger/storage/model"
)

// Event names
const (
	NameIssuerAdded          = "IssuerAdded"
	NameIssuerRevoked        = "IssuerRevoked"
	NameOwnershipTransferred = "OwnershipTransferred"
	NameCertificateIssued    = "CertificateIssued"
	NameRevokedCertificate   = "RevokedCertificate"
)

// Event is something that happened in a committed ledger call.
type Event interface {
	// Name returns the event name, e.g. "CertificateIssued"
	Name() string
	// Encode encodes the event to a flat map of strings and numbers.
	Encode() (map[string]any, error)
}

// Publisher delivers committed events.
type Publisher interface {
	// Publish publishes one event.
	Publish(ctx context.Context, event Event) error
	// Close gracefully closes the publisher.
	Close() error
}

// IssuerAdded is emitted when an account becomes an authorized issuer.
type IssuerAdded struct {
	Issuer model.Account `structs:"issuer"`
}

// IssuerRevoked is emitted when an account loses its issuer authorization.
type IssuerRevoked struct {
	Issuer model.Account `structs:"issuer"`
}

// OwnershipTransferred is emitted at deploy time and whenever the issuer
// registry owner changes. NewOwner is the null account on renouncement.
type OwnershipTransferred struct {
	PreviousOwner model.Account `structs:"previous_owner"`
	NewOwner      model.Account `structs:"new_owner"`
}

// CertificateIssued is emitted for every issued certificate.
type CertificateIssued struct {
	Holder     model.Account    `structs:"holder"`
	Issuer     model.Account    `structs:"issuer"`
	FileURL    string           `structs:"file_url"`
	IssueDate  int64            `structs:"issue_date"`
	ExpireDate int64            `structs:"expire_date"`
	ID         model.Identifier `structs:"certificate_hash"`
}

// RevokedCertificate is emitted when a certificate is revoked.
type RevokedCertificate struct {
	Issuer model.Account    `structs:"issuer"`
	Holder model.Account    `structs:"holder"`
	ID     model.Identifier `structs:"certificate_hash"`
}

func (IssuerAdded) Name() string          { return NameIssuerAdded }
func (IssuerRevoked) Name() string        { return NameIssuerRevoked }
func (OwnershipTransferred) Name() string { return NameOwnershipTransferred }
func (CertificateIssued) Name() string    { return NameCertificateIssued }
func (RevokedCertificate) Name() string   { return NameRevokedCertificate }

func (e IssuerAdded) Encode() (map[string]any, error)          { return encode(e) }
func (e IssuerRevoked) Encode() (map[string]any, error)        { return encode(e) }
func (e OwnershipTransferred) Encode() (map[string]any, error) { return encode(e) }
func (e CertificateIssued) Encode() (map[string]any, error)    { return encode(e) }
func (e RevokedCertificate) Encode() (map[string]any, error)   { return encode(e) }

// encode flattens an event struct; accounts and identifiers are rendered in
// their hex form so the map can be written to text based sinks directly.
func encode(e Event) (map[string]any, error) {
	m := structs.Map(e)
	for k, v := range m {
		if s, ok := v.(fmt.Stringer); ok {
			m[k] = s.String()
		}
	}
	m["event"] = e.Name()
	return m, nil
}
