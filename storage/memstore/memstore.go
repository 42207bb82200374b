// Package memstore provides an in-memory model.Backend. Writes made during
// Update are recorded in an undo log that is replayed backwards when the
// update fails, so failed calls leave no trace.
package memstore

import (
	"sort"
	"sync"

	"github.com/go-oidfed/certledger/storage/model"
)

type certKey struct {
	holder model.Account
	id     model.Identifier
}

// Backend is an in-memory model.Backend
type Backend struct {
	mu sync.RWMutex

	deployed bool
	owner    model.Account
	issuers  map[model.Account]struct{}

	certs    map[certKey]model.Certificate
	active   map[model.Account]uint64
	sequence map[model.Account]uint64

	undo []func()
}

// New returns an empty Backend
func New() *Backend {
	return &Backend{
		issuers:  make(map[model.Account]struct{}),
		certs:    make(map[certKey]model.Certificate),
		active:   make(map[model.Account]uint64),
		sequence: make(map[model.Account]uint64),
	}
}

// Update implements the model.Backend interface
func (b *Backend) Update(fn func(state model.State) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.undo = b.undo[:0]
	err := fn(state{b: b})
	if err != nil {
		for i := len(b.undo) - 1; i >= 0; i-- {
			b.undo[i]()
		}
	}
	b.undo = b.undo[:0]
	return err
}

// View implements the model.Backend interface
func (b *Backend) View(fn func(state model.State) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(state{b: b, readOnly: true})
}

// Close implements the model.Backend interface
func (*Backend) Close() error {
	return nil
}

type state struct {
	b        *Backend
	readOnly bool
}

func (s state) Issuers() model.IssuerState           { return issuerState(s) }
func (s state) Certificates() model.CertificateState { return certificateState(s) }

func (s state) write(apply, revert func()) error {
	if s.readOnly {
		return errReadOnly
	}
	apply()
	s.b.undo = append(s.b.undo, revert)
	return nil
}

var errReadOnly = readOnlyError("memstore: write in read-only view")

type readOnlyError string

func (e readOnlyError) Error() string { return string(e) }

type issuerState state

func (s issuerState) Deployed() (bool, error) {
	return s.b.deployed, nil
}

func (s issuerState) MarkDeployed() error {
	prev := s.b.deployed
	return state(s).write(
		func() { s.b.deployed = true },
		func() { s.b.deployed = prev },
	)
}

func (s issuerState) Owner() (model.Account, error) {
	return s.b.owner, nil
}

func (s issuerState) SetOwner(owner model.Account) error {
	prev := s.b.owner
	return state(s).write(
		func() { s.b.owner = owner },
		func() { s.b.owner = prev },
	)
}

func (s issuerState) IsIssuer(account model.Account) (bool, error) {
	_, ok := s.b.issuers[account]
	return ok, nil
}

func (s issuerState) AddIssuer(account model.Account) error {
	if _, ok := s.b.issuers[account]; ok {
		return model.AlreadyExistsErrorFmt("issuer %s already exists", account.Hex())
	}
	return state(s).write(
		func() { s.b.issuers[account] = struct{}{} },
		func() { delete(s.b.issuers, account) },
	)
}

func (s issuerState) RemoveIssuer(account model.Account) error {
	if _, ok := s.b.issuers[account]; !ok {
		return model.NotFoundErrorFmt("issuer %s not found", account.Hex())
	}
	return state(s).write(
		func() { delete(s.b.issuers, account) },
		func() { s.b.issuers[account] = struct{}{} },
	)
}

func (s issuerState) Issuers() ([]model.Account, error) {
	out := make([]model.Account, 0, len(s.b.issuers))
	for a := range s.b.issuers {
		out = append(out, a)
	}
	sort.Slice(
		out, func(i, j int) bool {
			return out[i].Cmp(out[j]) < 0
		},
	)
	return out, nil
}

type certificateState state

func (s certificateState) Certificate(holder model.Account, id model.Identifier) (*model.Certificate, error) {
	c, ok := s.b.certs[certKey{holder: holder, id: id}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s certificateState) Insert(cert model.Certificate) error {
	k := certKey{holder: cert.Holder, id: cert.ID}
	if _, ok := s.b.certs[k]; ok {
		return model.CollisionErrorFmt("certificate %s already exists", cert.ID.Hex())
	}
	return state(s).write(
		func() { s.b.certs[k] = cert },
		func() { delete(s.b.certs, k) },
	)
}

func (s certificateState) MarkRevoked(holder model.Account, id model.Identifier) error {
	k := certKey{holder: holder, id: id}
	c, ok := s.b.certs[k]
	if !ok {
		return model.NotFoundErrorFmt("certificate %s not found", id.Hex())
	}
	prev := c
	c.Revoked = true
	return state(s).write(
		func() { s.b.certs[k] = c },
		func() { s.b.certs[k] = prev },
	)
}

func (s certificateState) ActiveCount(holder model.Account) (uint64, error) {
	return s.b.active[holder], nil
}

func (s certificateState) SetActiveCount(holder model.Account, n uint64) error {
	prev, had := s.b.active[holder]
	return state(s).write(
		func() { s.b.active[holder] = n },
		func() { restore(s.b.active, holder, prev, had) },
	)
}

func (s certificateState) Sequence(holder model.Account) (uint64, error) {
	return s.b.sequence[holder], nil
}

func (s certificateState) SetSequence(holder model.Account, seq uint64) error {
	prev, had := s.b.sequence[holder]
	return state(s).write(
		func() { s.b.sequence[holder] = seq },
		func() { restore(s.b.sequence, holder, prev, had) },
	)
}

func (s certificateState) Certificates(holder model.Account) ([]model.Certificate, error) {
	var out []model.Certificate
	for k, c := range s.b.certs {
		if k.holder == holder {
			out = append(out, c)
		}
	}
	sort.Slice(
		out, func(i, j int) bool {
			return out[i].Sequence < out[j].Sequence
		},
	)
	return out, nil
}

func (s certificateState) Holders() ([]model.Account, error) {
	out := make([]model.Account, 0, len(s.b.sequence))
	for h := range s.b.sequence {
		out = append(out, h)
	}
	sort.Slice(
		out, func(i, j int) bool {
			return out[i].Cmp(out[j]) < 0
		},
	)
	return out, nil
}

func restore(m map[model.Account]uint64, k model.Account, v uint64, had bool) {
	if had {
		m[k] = v
		return
	}
	delete(m, k)
}
