// Package certledger hosts the issuer and certificate registries. A Ledger
// serializes calls, commits each mutating call as one storage transaction,
// and publishes the call's events once it is committed.
package certledger

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/go-oidfed/certledger/events"
	"github.com/go-oidfed/certledger/registry"
	"github.com/go-oidfed/certledger/storage/model"
)

// Ledger is the runtime the registries are executed in
type Ledger struct {
	mu        sync.RWMutex
	backend   model.Backend
	publisher events.Publisher
	now       func() time.Time
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock sets the clock that provides the ledger time
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates a Ledger on the passed backend. Events are delivered
// through publisher; a nil publisher drops them.
func NewLedger(backend model.Backend, publisher events.Publisher, opts ...Option) *Ledger {
	if publisher == nil {
		publisher = events.Discard{}
	}
	l := &Ledger{
		backend:   backend,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the current ledger time
func (l *Ledger) Now() time.Time {
	return l.now()
}

type registries struct {
	issuers      *registry.IssuerRegistry
	certificates *registry.CertificateRegistry
}

func bind(s model.State) registries {
	issuers := registry.NewIssuerRegistry(s.Issuers())
	return registries{
		issuers:      issuers,
		certificates: registry.NewCertificateRegistry(s.Certificates(), issuers),
	}
}

// execute runs a mutating call. Either all writes of fn are committed and its
// events are published, or nothing happens.
func (l *Ledger) execute(
	ctx context.Context, operation string, caller model.Account, fn func(call *registry.Call, r registries) error,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	call := registry.NewCall(caller, l.now())
	err := l.backend.Update(
		func(s model.State) error {
			return fn(call, bind(s))
		},
	)
	logger := log.WithFields(
		log.Fields{
			"operation": operation,
			"caller":    caller.Hex(),
		},
	)
	if err != nil {
		logger.WithError(err).Debug("ledger call failed")
		return err
	}
	logger.Debug("ledger call committed")
	// committed events are published even if the caller gives up
	pubCtx := context.WithoutCancel(ctx)
	for _, e := range call.Events() {
		if perr := l.publisher.Publish(pubCtx, e); perr != nil {
			logger.WithError(perr).WithField("event", e.Name()).Error("failed to publish event")
		}
	}
	return nil
}

// query runs a read-only call
func (l *Ledger) query(fn func(r registries) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.backend.View(
		func(s model.State) error {
			return fn(bind(s))
		},
	)
}

// Deploy runs the issuer registry genesis with caller as owner and first
// issuer.
func (l *Ledger) Deploy(ctx context.Context, caller model.Account) error {
	return l.execute(
		ctx, "deploy", caller, func(call *registry.Call, r registries) error {
			return r.issuers.Deploy(call)
		},
	)
}

// Deployed reports whether Deploy has run
func (l *Ledger) Deployed() (deployed bool, err error) {
	err = l.query(
		func(r registries) error {
			deployed, err = r.issuers.Deployed()
			return err
		},
	)
	return
}

// EnsureDeployed deploys the ledger with caller as owner unless it is
// deployed already.
func (l *Ledger) EnsureDeployed(ctx context.Context, caller model.Account) error {
	err := l.Deploy(ctx, caller)
	var alreadyExists model.AlreadyExistsError
	if errors.As(err, &alreadyExists) {
		return nil
	}
	return err
}

// AddIssuer authorizes issuer; caller must be the owner
func (l *Ledger) AddIssuer(ctx context.Context, caller, issuer model.Account) error {
	return l.execute(
		ctx, "addIssuer", caller, func(call *registry.Call, r registries) error {
			return r.issuers.AddIssuer(call, issuer)
		},
	)
}

// RevokeIssuer removes the authorization of issuer; caller must be the owner
func (l *Ledger) RevokeIssuer(ctx context.Context, caller, issuer model.Account) error {
	return l.execute(
		ctx, "revokeIssuer", caller, func(call *registry.Call, r registries) error {
			return r.issuers.RevokeIssuer(call, issuer)
		},
	)
}

// IsAuthorized reports whether account is an authorized issuer
func (l *Ledger) IsAuthorized(account model.Account) (ok bool, err error) {
	err = l.query(
		func(r registries) error {
			ok, err = r.issuers.IsAuthorized(account)
			return err
		},
	)
	return
}

// Owner returns the owner of the issuer registry
func (l *Ledger) Owner() (owner model.Account, err error) {
	err = l.query(
		func(r registries) error {
			owner, err = r.issuers.Owner()
			return err
		},
	)
	return
}

// Issuers returns all authorized issuers
func (l *Ledger) Issuers() (issuers []model.Account, err error) {
	err = l.query(
		func(r registries) error {
			issuers, err = r.issuers.Issuers()
			return err
		},
	)
	return
}

// TransferOwnership hands the issuer registry to newOwner; caller must be
// the owner
func (l *Ledger) TransferOwnership(ctx context.Context, caller, newOwner model.Account) error {
	return l.execute(
		ctx, "transferOwnership", caller, func(call *registry.Call, r registries) error {
			return r.issuers.TransferOwnership(call, newOwner)
		},
	)
}

// RenounceOwnership leaves the issuer registry without owner; caller must be
// the owner
func (l *Ledger) RenounceOwnership(ctx context.Context, caller model.Account) error {
	return l.execute(
		ctx, "renounceOwnership", caller, func(call *registry.Call, r registries) error {
			return r.issuers.RenounceOwnership(call)
		},
	)
}

// IssueCertificate issues a certificate for holder with caller as issuer
func (l *Ledger) IssueCertificate(
	ctx context.Context, caller, holder model.Account, fileURL string, score uint16, expireDate int64,
) (id model.Identifier, err error) {
	err = l.execute(
		ctx, "issueCertificate", caller, func(call *registry.Call, r registries) error {
			id, err = r.certificates.IssueCertificate(call, holder, fileURL, score, expireDate)
			return err
		},
	)
	if err != nil {
		return model.Identifier{}, err
	}
	return id, nil
}

// RevokeCertificate revokes the certificate at (holder, id); caller must be
// its issuer
func (l *Ledger) RevokeCertificate(ctx context.Context, caller, holder model.Account, id model.Identifier) (
	revoked bool, err error,
) {
	err = l.execute(
		ctx, "revokeCertificate", caller, func(call *registry.Call, r registries) error {
			revoked, err = r.certificates.RevokeCertificate(call, holder, id)
			return err
		},
	)
	return
}

// VerifyCertificate reports whether the certificate at (holder, id) is valid
// at the current ledger time
func (l *Ledger) VerifyCertificate(holder model.Account, id model.Identifier) (valid bool, err error) {
	now := l.now().Unix()
	err = l.query(
		func(r registries) error {
			valid, err = r.certificates.VerifyCertificate(holder, id, now)
			return err
		},
	)
	return
}

// Status returns the status of the certificate at (holder, id) at the
// current ledger time
func (l *Ledger) Status(holder model.Account, id model.Identifier) (status model.CertificateStatus, err error) {
	now := l.now().Unix()
	err = l.query(
		func(r registries) error {
			status, err = r.certificates.Status(holder, id, now)
			return err
		},
	)
	return
}

// GetCertificateByHash returns the certificate at (holder, id), or the zero
// Certificate
func (l *Ledger) GetCertificateByHash(holder model.Account, id model.Identifier) (cert model.Certificate, err error) {
	err = l.query(
		func(r registries) error {
			cert, err = r.certificates.GetCertificateByHash(holder, id)
			return err
		},
	)
	return
}

// GetCertificatesCount returns the number of non-revoked certificates of holder
func (l *Ledger) GetCertificatesCount(holder model.Account) (count uint64, err error) {
	err = l.query(
		func(r registries) error {
			count, err = r.certificates.GetCertificatesCount(holder)
			return err
		},
	)
	return
}

// Certificates returns all certificates of holder ordered by issuance
func (l *Ledger) Certificates(holder model.Account) (certs []model.Certificate, err error) {
	err = l.query(
		func(r registries) error {
			certs, err = r.certificates.Certificates(holder)
			return err
		},
	)
	return
}

// Close closes the publisher and the backend
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	perr := l.publisher.Close()
	if err := l.backend.Close(); err != nil {
		return errors.Wrap(err, "closing backend failed")
	}
	return errors.Wrap(perr, "closing publisher failed")
}
