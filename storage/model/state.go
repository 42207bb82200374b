package model

// IssuerState is the storage view owned by the issuer registry.
type IssuerState interface {
	// Deployed reports whether the registry genesis has run
	Deployed() (bool, error)
	// MarkDeployed records that the registry genesis has run
	MarkDeployed() error
	// Owner returns the current owner; NullAccount if renounced or not deployed
	Owner() (Account, error)
	// SetOwner replaces the owner
	SetOwner(owner Account) error
	// IsIssuer reports whether the account is an authorized issuer
	IsIssuer(account Account) (bool, error)
	// AddIssuer inserts an account into the authorized set
	AddIssuer(account Account) error
	// RemoveIssuer removes an account from the authorized set
	RemoveIssuer(account Account) error
	// Issuers lists all authorized issuers
	Issuers() ([]Account, error)
}

// CertificateState is the storage view owned by the certificate registry.
type CertificateState interface {
	// Certificate returns the record at (holder, id), or (nil, nil) if there is none
	Certificate(holder Account, id Identifier) (*Certificate, error)
	// Insert stores a new record
	Insert(cert Certificate) error
	// MarkRevoked sets the revoked flag of the record at (holder, id)
	MarkRevoked(holder Account, id Identifier) error
	// ActiveCount returns the number of non-revoked records of the holder
	ActiveCount(holder Account) (uint64, error)
	// SetActiveCount stores the number of non-revoked records of the holder
	SetActiveCount(holder Account, n uint64) error
	// Sequence returns the next issuance sequence number of the holder
	Sequence(holder Account) (uint64, error)
	// SetSequence stores the next issuance sequence number of the holder
	SetSequence(holder Account, seq uint64) error
	// Certificates lists all records of the holder ordered by sequence
	Certificates(holder Account) ([]Certificate, error)
	// Holders lists every holder that has been issued a certificate, ordered
	// by account
	Holders() ([]Account, error)
}

// State groups the registry views of one transaction.
type State interface {
	Issuers() IssuerState
	Certificates() CertificateState
}

// Backend is a transactional store for the ledger state.
//
// Update runs fn in a single transaction: if fn returns an error none of its
// writes are kept. View runs fn against a consistent read-only state.
type Backend interface {
	Update(fn func(state State) error) error
	View(fn func(state State) error) error
	Close() error
}
