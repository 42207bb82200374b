package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-oidfed/certledger"
	"github.com/go-oidfed/certledger/storage/memstore"
	"github.com/go-oidfed/certledger/storage/model"
)

var (
	owner  = model.Account{0x01}
	alice  = model.Account{0xa1}
	bob    = model.Account{0xb0}
	holder = model.Account{0x10}
)

type harness struct {
	t      *testing.T
	ledger *certledger.Ledger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	return &harness{
		t: t,
		ledger: certledger.NewLedger(
			memstore.New(), nil, certledger.WithClock(func() time.Time { return now }),
		),
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	app := &cli{
		ledger: h.ledger,
		out:    &out,
	}
	root := newRootCmd(app)
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, strings.Join(args, " "))
	return out
}

func TestDeployAndIssuers(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("deploy")
	assert.Error(t, err)

	h.mustRun("deploy", "--as", owner.Hex())
	assert.Equal(t, owner.Hex()+"\n", h.mustRun("owner", "show"))

	h.mustRun("issuers", "add", alice.Hex(), "--as", owner.Hex())
	assert.Contains(t, h.mustRun("issuers", "check", alice.Hex()), "authorized: true")

	_, err = h.run("issuers", "add", bob.Hex(), "--as", alice.Hex())
	var authErr model.AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	h.mustRun("issuers", "revoke", alice.Hex(), "--as", owner.Hex())
	assert.Contains(t, h.mustRun("issuers", "check", alice.Hex()), "authorized: false")
	assert.Equal(t, owner.Hex()+"\n", h.mustRun("issuers", "list"))

	_, err = h.run("issuers", "add", "0x12", "--as", owner.Hex())
	var verr model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestIssuersSync(t *testing.T) {
	h := newHarness(t)
	h.mustRun("deploy", "--as", owner.Hex())
	h.mustRun("issuers", "add", alice.Hex(), "--as", owner.Hex())

	out := h.mustRun("issuers", "sync", bob.Hex(), "--dry-run", "--as", owner.Hex())
	assert.Contains(t, out, "add    "+bob.Hex())
	assert.Contains(t, out, "revoke "+alice.Hex())
	assert.Contains(t, out, "keep   "+owner.Hex())
	issuers, err := h.ledger.Issuers()
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Account{owner, alice}, issuers)

	h.mustRun("issuers", "sync", bob.Hex(), bob.Hex(), "--as", owner.Hex())
	issuers, err = h.ledger.Issuers()
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Account{owner, bob}, issuers)
}

func TestPlanSync(t *testing.T) {
	plan := planSync([]model.Account{owner, alice}, []model.Account{alice, bob}, owner)
	assert.Equal(t, []model.Account{bob}, plan.add)
	assert.Empty(t, plan.revoke)
	assert.ElementsMatch(t, []model.Account{alice, owner}, plan.unchanged)

	plan = planSync([]model.Account{owner, alice}, []model.Account{bob}, bob)
	assert.ElementsMatch(t, []model.Account{owner, alice}, plan.revoke)
}

func TestOwnership(t *testing.T) {
	h := newHarness(t)
	h.mustRun("deploy", "--as", owner.Hex())

	h.mustRun("owner", "transfer", alice.Hex(), "--as", owner.Hex())
	assert.Equal(t, alice.Hex()+"\n", h.mustRun("owner", "show"))

	_, err := h.run("owner", "renounce", "--as", alice.Hex())
	assert.ErrorContains(t, err, "--yes")

	h.mustRun("owner", "renounce", "--yes", "--as", alice.Hex())
	assert.Equal(t, model.NullAccount.Hex()+"\n", h.mustRun("owner", "show"))
}

func TestCertificates(t *testing.T) {
	h := newHarness(t)
	h.mustRun("deploy", "--as", owner.Hex())

	_, err := h.run("certs", "issue", "--holder", holder.Hex(), "--as", owner.Hex())
	assert.ErrorContains(t, err, "--valid-for")

	_, err = h.run(
		"certs", "issue", "--holder", holder.Hex(), "--valid-for", "1h", "--expire-date", "1", "--as",
		owner.Hex(),
	)
	assert.ErrorContains(t, err, "mutually exclusive")

	out := h.mustRun(
		"certs", "issue", "--holder", holder.Hex(), "--file-url", "http://x/c.pdf", "--score", "75",
		"--valid-for", "24h", "--as", owner.Hex(),
	)
	id, err := model.ParseIdentifier(strings.TrimSpace(out))
	require.NoError(t, err)

	assert.Equal(t, "1\n", h.mustRun("certs", "count", holder.Hex()))
	assert.Equal(t, "valid: true (active)\n", h.mustRun("certs", "verify", holder.Hex(), id.Hex()))

	var cert model.Certificate
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("certs", "show", holder.Hex(), id.Hex())), &cert))
	assert.Equal(t, id, cert.ID)
	assert.Equal(t, uint16(75), cert.Score)
	assert.Equal(t, int64(1_700_000_000+24*3600), cert.ExpireDate)

	_, err = h.run("certs", "revoke", holder.Hex(), id.Hex(), "--as", alice.Hex())
	var authErr model.AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	h.mustRun("certs", "revoke", holder.Hex(), id.Hex(), "--as", owner.Hex())
	assert.Equal(t, "0\n", h.mustRun("certs", "count", holder.Hex()))
	assert.Equal(t, "valid: false (revoked)\n", h.mustRun("certs", "verify", holder.Hex(), id.Hex()))

	var certs []model.Certificate
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("certs", "list", holder.Hex())), &certs))
	require.Len(t, certs, 1)
	assert.True(t, certs[0].Revoked)

	assert.Equal(t, "[]\n", h.mustRun("certs", "list", alice.Hex()))
}
