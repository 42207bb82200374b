package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-oidfed/certledger/storage/memstore"
	"github.com/go-oidfed/certledger/storage/model"
)

var (
	owner    = model.Account{0x01}
	issuerA  = model.Account{0x0a}
	issuerB  = model.Account{0x0b}
	holder   = model.Account{0x10}
	holder2  = model.Account{0x11}
	stranger = model.Account{0xff}
)

var genesis = time.Unix(1_700_000_000, 0)

// fixture runs registry calls against a memstore, each in its own update
type fixture struct {
	t       *testing.T
	backend *memstore.Backend
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		t:       t,
		backend: memstore.New(),
		now:     genesis,
	}
}

func (f *fixture) update(caller model.Account, fn func(call *Call, issuers *IssuerRegistry, certs *CertificateRegistry) error) (
	*Call, error,
) {
	call := NewCall(caller, f.now)
	err := f.backend.Update(
		func(s model.State) error {
			issuers := NewIssuerRegistry(s.Issuers())
			return fn(call, issuers, NewCertificateRegistry(s.Certificates(), issuers))
		},
	)
	return call, err
}

func (f *fixture) view(fn func(issuers *IssuerRegistry, certs *CertificateRegistry)) {
	err := f.backend.View(
		func(s model.State) error {
			issuers := NewIssuerRegistry(s.Issuers())
			fn(issuers, NewCertificateRegistry(s.Certificates(), issuers))
			return nil
		},
	)
	require.NoError(f.t, err)
}

func (f *fixture) deploy() {
	_, err := f.update(
		owner, func(call *Call, issuers *IssuerRegistry, _ *CertificateRegistry) error {
			return issuers.Deploy(call)
		},
	)
	require.NoError(f.t, err)
}

func (f *fixture) addIssuer(issuer model.Account) {
	_, err := f.update(
		owner, func(call *Call, issuers *IssuerRegistry, _ *CertificateRegistry) error {
			return issuers.AddIssuer(call, issuer)
		},
	)
	require.NoError(f.t, err)
}

func (f *fixture) issue(issuer, h model.Account, fileURL string, score uint16, expireDate int64) (
	model.Identifier, *Call, error,
) {
	var id model.Identifier
	call, err := f.update(
		issuer, func(call *Call, _ *IssuerRegistry, certs *CertificateRegistry) (err error) {
			id, err = certs.IssueCertificate(call, h, fileURL, score, expireDate)
			return
		},
	)
	return id, call, err
}

func (f *fixture) revoke(caller, h model.Account, id model.Identifier) (bool, *Call, error) {
	var ok bool
	call, err := f.update(
		caller, func(call *Call, _ *IssuerRegistry, certs *CertificateRegistry) (err error) {
			ok, err = certs.RevokeCertificate(call, h, id)
			return
		},
	)
	return ok, call, err
}

func (f *fixture) count(h model.Account) uint64 {
	var n uint64
	f.view(
		func(_ *IssuerRegistry, certs *CertificateRegistry) {
			var err error
			n, err = certs.GetCertificatesCount(h)
			require.NoError(f.t, err)
		},
	)
	return n
}

func (f *fixture) certificate(h model.Account, id model.Identifier) model.Certificate {
	var c model.Certificate
	f.view(
		func(_ *IssuerRegistry, certs *CertificateRegistry) {
			var err error
			c, err = certs.GetCertificateByHash(h, id)
			require.NoError(f.t, err)
		},
	)
	return c
}

func eventNames(call *Call) []string {
	var names []string
	for _, e := range call.Events() {
		names = append(names, e.Name())
	}
	return names
}
