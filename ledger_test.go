package certledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-oidfed/certledger/events"
	"github.com/go-oidfed/certledger/storage/memstore"
	"github.com/go-oidfed/certledger/storage/model"
)

var (
	owner   = model.Account{0x01}
	issuer  = model.Account{0x0a}
	holder  = model.Account{0x10}
	nobody  = model.Account{0xee}
	genesis = time.Unix(1_700_000_000, 0)
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLedger(t *testing.T, publisher events.Publisher) (*Ledger, *clock) {
	t.Helper()
	c := &clock{now: genesis}
	l := NewLedger(memstore.New(), publisher, WithClock(c.Now))
	require.NoError(t, l.Deploy(context.Background(), owner))
	return l, c
}

func TestLedgerScenario(t *testing.T) {
	rec := &events.Recorder{}
	l, c := newTestLedger(t, rec)
	ctx := context.Background()

	require.NoError(t, l.AddIssuer(ctx, owner, issuer))
	id, err := l.IssueCertificate(ctx, issuer, holder, "http://x/c.pdf", 90, c.Now().Unix()+3600)
	require.NoError(t, err)

	n, err := l.GetCertificatesCount(holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	valid, err := l.VerifyCertificate(holder, id)
	require.NoError(t, err)
	assert.True(t, valid)

	revoked, err := l.RevokeCertificate(ctx, issuer, holder, id)
	require.NoError(t, err)
	assert.True(t, revoked)

	n, err = l.GetCertificatesCount(holder)
	require.NoError(t, err)
	assert.Zero(t, n)
	valid, err = l.VerifyCertificate(holder, id)
	require.NoError(t, err)
	assert.False(t, valid)

	assert.Equal(
		t, []string{
			events.NameOwnershipTransferred,
			events.NameIssuerAdded,
			events.NameCertificateIssued,
			events.NameRevokedCertificate,
		}, rec.Names(),
	)
}

func TestLedgerFailedCallPublishesNothing(t *testing.T) {
	rec := &events.Recorder{}
	l, c := newTestLedger(t, rec)
	rec.Reset()
	ctx := context.Background()

	err := l.AddIssuer(ctx, nobody, issuer)
	var authErr model.AuthorizationError
	require.ErrorAs(t, err, &authErr)

	_, err = l.IssueCertificate(ctx, nobody, holder, "ipfs://x", 1, c.Now().Unix()+10)
	require.ErrorAs(t, err, &authErr)

	_, err = l.RevokeCertificate(ctx, owner, holder, model.Identifier{0x01})
	require.ErrorAs(t, err, &authErr)

	assert.Empty(t, rec.Events())
	issuers, err := l.Issuers()
	require.NoError(t, err)
	assert.Equal(t, []model.Account{owner}, issuers)
}

func TestLedgerExpiry(t *testing.T) {
	l, c := newTestLedger(t, nil)
	ctx := context.Background()

	id, err := l.IssueCertificate(ctx, owner, holder, "ipfs://x", 1, c.Now().Unix()+60)
	require.NoError(t, err)

	status, err := l.Status(holder, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, status)

	c.Advance(61 * time.Second)
	valid, err := l.VerifyCertificate(holder, id)
	require.NoError(t, err)
	assert.False(t, valid)
	status, err = l.Status(holder, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, status)

	n, err := l.GetCertificatesCount(holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	cert, err := l.GetCertificateByHash(holder, id)
	require.NoError(t, err)
	assert.Equal(t, genesis.Unix(), cert.IssueDate)
}

type failingPublisher struct {
	events.Recorder
}

func (*failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("broker down")
}

func TestLedgerPublishFailureKeepsCommit(t *testing.T) {
	l, _ := newTestLedger(t, &failingPublisher{})
	require.NoError(t, l.AddIssuer(context.Background(), owner, issuer))
	ok, err := l.IsAuthorized(issuer)
	require.NoError(t, err)
	assert.True(t, ok)
}

// contextPublisher fails like a network client would once its context is done
type contextPublisher struct {
	events.Recorder
}

func (p *contextPublisher) Publish(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Recorder.Publish(ctx, e)
}

func TestLedgerPublishesAfterCallerCanceled(t *testing.T) {
	pub := &contextPublisher{}
	l, _ := newTestLedger(t, pub)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, l.AddIssuer(ctx, owner, issuer))
	recorded := pub.Events()
	require.NotEmpty(t, recorded)
	assert.Equal(t, events.NameIssuerAdded, recorded[len(recorded)-1].Name())
}

func TestLedgerEnsureDeployed(t *testing.T) {
	l, _ := newTestLedger(t, nil)
	require.NoError(t, l.EnsureDeployed(context.Background(), nobody))
	o, err := l.Owner()
	require.NoError(t, err)
	assert.Equal(t, owner, o)

	deployed, err := l.Deployed()
	require.NoError(t, err)
	assert.True(t, deployed)
}

func TestLedgerOwnership(t *testing.T) {
	rec := &events.Recorder{}
	l, _ := newTestLedger(t, rec)
	ctx := context.Background()

	require.NoError(t, l.TransferOwnership(ctx, owner, issuer))
	o, err := l.Owner()
	require.NoError(t, err)
	assert.Equal(t, issuer, o)

	require.NoError(t, l.RenounceOwnership(ctx, issuer))
	o, err = l.Owner()
	require.NoError(t, err)
	assert.Equal(t, model.NullAccount, o)

	err = l.AddIssuer(ctx, issuer, nobody)
	var authErr model.AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

func TestLedgerConcurrentIssuance(t *testing.T) {
	l, c := newTestLedger(t, &events.Recorder{})
	ctx := context.Background()

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	ids := make(chan model.Identifier, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := l.IssueCertificate(ctx, owner, holder, "ipfs://same", 1, c.Now().Unix()+60)
				if assert.NoError(t, err) {
					ids <- id
				}
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[model.Identifier]bool{}
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
	n, err := l.GetCertificatesCount(holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(workers*perWorker), n)

	certs, err := l.Certificates(holder)
	require.NoError(t, err)
	assert.Len(t, certs, workers*perWorker)
}

func TestLedgerClose(t *testing.T) {
	l, _ := newTestLedger(t, nil)
	assert.NoError(t, l.Close())
}
