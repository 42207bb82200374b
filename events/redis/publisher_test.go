package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-oidfed/certledger/events"
	"github.com/go-oidfed/certledger/storage/model"
)

func TestNewPublisherInvalidURL(t *testing.T) {
	_, err := NewPublisher("http://invalid", "ledger", time.Second)
	assert.Error(t, err)
}

func TestPublishBuffersWhenUnreachable(t *testing.T) {
	p, err := NewPublisher("redis://127.0.0.1:1/0", "ledger", time.Hour)
	require.NoError(t, err)
	defer p.Close()

	err = p.Publish(context.Background(), events.IssuerAdded{Issuer: model.Account{0x01}})
	require.NoError(t, err)
	err = p.Publish(context.Background(), events.IssuerRevoked{Issuer: model.Account{0x01}})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Pending())

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, events.NameIssuerAdded, p.backlog[0].Values.(map[string]any)["event"])
	assert.Equal(t, events.NameIssuerRevoked, p.backlog[1].Values.(map[string]any)["event"])
}

func TestIsRejected(t *testing.T) {
	assert.False(t, isRejected(context.DeadlineExceeded))
	assert.False(t, isRejected(errors.New("dial tcp 127.0.0.1:1: connect: connection refused")))
}

func TestPublish(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping redis test. Set REDIS_URL environment variable")
	}
	ctx := context.Background()
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	stream := "certledger.eventstest"
	require.NoError(t, client.Del(ctx, stream).Err())

	p, err := NewPublisher(url, stream, time.Second)
	require.NoError(t, err)
	defer p.Close()

	holder := model.Account{0x0a}
	err = p.Publish(
		ctx, events.CertificateIssued{
			Holder:     holder,
			Issuer:     model.Account{0x0b},
			FileURL:    "ipfs://cert",
			IssueDate:  1,
			ExpireDate: 2,
			ID:         model.Identifier{0x01},
		},
	)
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, events.NameCertificateIssued, msgs[0].Values["event"])
	assert.Equal(t, holder.Hex(), msgs[0].Values["holder"])
}

func TestPublishKeepsOrderAfterOutage(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping redis test. Set REDIS_URL environment variable")
	}
	ctx := context.Background()
	stream := "certledger.orderingtest"

	p, err := NewPublisher(url, stream, time.Hour)
	require.NoError(t, err)
	defer p.Close()
	online := p.client
	require.NoError(t, online.Del(ctx, stream).Err())

	offline := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer offline.Close()
	p.mu.Lock()
	p.client = offline
	p.mu.Unlock()

	issuer := model.Account{0x0b}
	require.NoError(t, p.Publish(ctx, events.IssuerAdded{Issuer: issuer}))
	require.NoError(t, p.Publish(ctx, events.IssuerRevoked{Issuer: issuer}))
	require.Equal(t, 2, p.Pending())

	p.mu.Lock()
	p.client = online
	p.mu.Unlock()

	require.NoError(t, p.Publish(ctx, events.IssuerAdded{Issuer: model.Account{0x0c}}))
	assert.Zero(t, p.Pending())

	msgs, err := online.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	var names []any
	for _, m := range msgs {
		names = append(names, m.Values["event"])
	}
	assert.Equal(
		t, []any{events.NameIssuerAdded, events.NameIssuerRevoked, events.NameIssuerAdded}, names,
	)
}
