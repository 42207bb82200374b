// Package storagetest holds a conformance suite that every model.Backend
// implementation runs from its own tests.
package storagetest

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-oidfed/certledger/storage/model"
)

var (
	alice = model.Account{0x0a}
	bob   = model.Account{0x0b}
	carol = model.Account{0x0c}
)

var errAbort = errors.New("abort")

// RunBackendTests runs the conformance suite. newBackend must return a fresh,
// empty backend for every call.
func RunBackendTests(t *testing.T, newBackend func(t *testing.T) model.Backend) {
	t.Run("IssuerRoundTrip", func(t *testing.T) { testIssuerRoundTrip(t, newBackend(t)) })
	t.Run("CertificateRoundTrip", func(t *testing.T) { testCertificateRoundTrip(t, newBackend(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newBackend(t)) })
	t.Run("ViewIsReadOnly", func(t *testing.T) { testViewIsReadOnly(t, newBackend(t)) })
	t.Run("Ordering", func(t *testing.T) { testOrdering(t, newBackend(t)) })
	t.Run("Holders", func(t *testing.T) { testHolders(t, newBackend(t)) })
}

func closeBackend(t *testing.T, b model.Backend) {
	t.Helper()
	assert.NoError(t, b.Close())
}

func cert(holder, issuer model.Account, seq uint64) model.Certificate {
	return model.Certificate{
		ID:         model.Identifier{byte(seq + 1), holder[0]},
		Holder:     holder,
		Issuer:     issuer,
		FileURL:    "ipfs://cert",
		Score:      90,
		IssueDate:  1000,
		ExpireDate: 2000,
		Sequence:   seq,
	}
}

func testIssuerRoundTrip(t *testing.T, b model.Backend) {
	defer closeBackend(t, b)

	err := b.View(
		func(s model.State) error {
			deployed, err := s.Issuers().Deployed()
			require.NoError(t, err)
			assert.False(t, deployed)
			owner, err := s.Issuers().Owner()
			require.NoError(t, err)
			assert.Equal(t, model.NullAccount, owner)
			issuers, err := s.Issuers().Issuers()
			require.NoError(t, err)
			assert.Empty(t, issuers)
			return nil
		},
	)
	require.NoError(t, err)

	err = b.Update(
		func(s model.State) error {
			is := s.Issuers()
			if err := is.MarkDeployed(); err != nil {
				return err
			}
			if err := is.SetOwner(alice); err != nil {
				return err
			}
			if err := is.AddIssuer(alice); err != nil {
				return err
			}
			return is.AddIssuer(bob)
		},
	)
	require.NoError(t, err)

	err = b.Update(
		func(s model.State) error {
			return s.Issuers().RemoveIssuer(alice)
		},
	)
	require.NoError(t, err)

	err = b.View(
		func(s model.State) error {
			is := s.Issuers()
			deployed, err := is.Deployed()
			require.NoError(t, err)
			assert.True(t, deployed)
			owner, err := is.Owner()
			require.NoError(t, err)
			assert.Equal(t, alice, owner)
			ok, err := is.IsIssuer(alice)
			require.NoError(t, err)
			assert.False(t, ok)
			ok, err = is.IsIssuer(bob)
			require.NoError(t, err)
			assert.True(t, ok)
			issuers, err := is.Issuers()
			require.NoError(t, err)
			assert.Equal(t, []model.Account{bob}, issuers)
			return nil
		},
	)
	require.NoError(t, err)
}

func testCertificateRoundTrip(t *testing.T, b model.Backend) {
	defer closeBackend(t, b)

	c := cert(carol, bob, 0)
	err := b.Update(
		func(s model.State) error {
			cs := s.Certificates()
			if err := cs.Insert(c); err != nil {
				return err
			}
			if err := cs.SetActiveCount(carol, 1); err != nil {
				return err
			}
			return cs.SetSequence(carol, 1)
		},
	)
	require.NoError(t, err)

	err = b.View(
		func(s model.State) error {
			cs := s.Certificates()
			got, err := cs.Certificate(carol, c.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, c, *got)

			missing, err := cs.Certificate(alice, c.ID)
			require.NoError(t, err)
			assert.Nil(t, missing)

			n, err := cs.ActiveCount(carol)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n)
			seq, err := cs.Sequence(carol)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), seq)

			n, err = cs.ActiveCount(alice)
			require.NoError(t, err)
			assert.Zero(t, n)
			return nil
		},
	)
	require.NoError(t, err)

	err = b.Update(
		func(s model.State) error {
			if err := s.Certificates().MarkRevoked(carol, c.ID); err != nil {
				return err
			}
			return s.Certificates().SetActiveCount(carol, 0)
		},
	)
	require.NoError(t, err)

	err = b.View(
		func(s model.State) error {
			got, err := s.Certificates().Certificate(carol, c.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, got.Revoked)
			assert.Equal(t, c.ExpireDate, got.ExpireDate)
			return nil
		},
	)
	require.NoError(t, err)
}

func testRollback(t *testing.T, b model.Backend) {
	defer closeBackend(t, b)

	err := b.Update(
		func(s model.State) error {
			if err := s.Issuers().SetOwner(alice); err != nil {
				return err
			}
			if err := s.Issuers().AddIssuer(bob); err != nil {
				return err
			}
			if err := s.Certificates().Insert(cert(carol, bob, 0)); err != nil {
				return err
			}
			if err := s.Certificates().SetActiveCount(carol, 1); err != nil {
				return err
			}
			return errAbort
		},
	)
	require.ErrorIs(t, err, errAbort)

	err = b.View(
		func(s model.State) error {
			owner, err := s.Issuers().Owner()
			require.NoError(t, err)
			assert.Equal(t, model.NullAccount, owner)
			ok, err := s.Issuers().IsIssuer(bob)
			require.NoError(t, err)
			assert.False(t, ok)
			certs, err := s.Certificates().Certificates(carol)
			require.NoError(t, err)
			assert.Empty(t, certs)
			n, err := s.Certificates().ActiveCount(carol)
			require.NoError(t, err)
			assert.Zero(t, n)
			return nil
		},
	)
	require.NoError(t, err)
}

func testViewIsReadOnly(t *testing.T, b model.Backend) {
	defer closeBackend(t, b)

	err := b.View(
		func(s model.State) error {
			return s.Issuers().SetOwner(alice)
		},
	)
	assert.Error(t, err)

	err = b.View(
		func(s model.State) error {
			owner, err := s.Issuers().Owner()
			require.NoError(t, err)
			assert.Equal(t, model.NullAccount, owner)
			return nil
		},
	)
	require.NoError(t, err)
}

func testOrdering(t *testing.T, b model.Backend) {
	defer closeBackend(t, b)

	err := b.Update(
		func(s model.State) error {
			for _, seq := range []uint64{2, 0, 1} {
				if err := s.Certificates().Insert(cert(carol, bob, seq)); err != nil {
					return err
				}
			}
			return s.Certificates().Insert(cert(alice, bob, 0))
		},
	)
	require.NoError(t, err)

	err = b.View(
		func(s model.State) error {
			certs, err := s.Certificates().Certificates(carol)
			require.NoError(t, err)
			require.Len(t, certs, 3)
			for i, c := range certs {
				assert.Equal(t, uint64(i), c.Sequence)
				assert.Equal(t, carol, c.Holder)
			}
			return nil
		},
	)
	require.NoError(t, err)
}

func testHolders(t *testing.T, b model.Backend) {
	defer closeBackend(t, b)

	err := b.View(
		func(s model.State) error {
			holders, err := s.Certificates().Holders()
			require.NoError(t, err)
			assert.Empty(t, holders)
			return nil
		},
	)
	require.NoError(t, err)

	err = b.Update(
		func(s model.State) error {
			if err := s.Certificates().SetSequence(carol, 1); err != nil {
				return err
			}
			return s.Certificates().SetSequence(alice, 3)
		},
	)
	require.NoError(t, err)

	err = b.View(
		func(s model.State) error {
			holders, err := s.Certificates().Holders()
			require.NoError(t, err)
			assert.Equal(t, []model.Account{alice, carol}, holders)
			return nil
		},
	)
	require.NoError(t, err)
}
