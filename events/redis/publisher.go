// Package redis publishes ledger events to a redis stream.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/go-oidfed/certledger/events"
)

const (
	// MaxUnpublishedEvents is the number of events buffered while redis is unreachable
	MaxUnpublishedEvents = 1 << 14
	// MaxStreamLen is the approximate maximum length of the stream
	MaxStreamLen = 1 << 20
	// connCheckTimeout bounds the connection check done before each publish
	connCheckTimeout = 100 * time.Millisecond
)

// Publisher is an events.Publisher writing to a redis stream. Events
// published while redis is unreachable are buffered and written, in order,
// before any later event once the connection is back.
type Publisher struct {
	client *redis.Client
	stream string

	mu sync.Mutex
	// backlog holds the unpublished events, oldest first
	backlog []*redis.XAddArgs

	flushPeriod time.Duration
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewPublisher creates a Publisher for the redis instance at url
func NewPublisher(url, stream string, flushPeriod time.Duration) (*Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "redis: invalid url")
	}
	if flushPeriod <= 0 {
		flushPeriod = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		client:      redis.NewClient(opts),
		stream:      stream,
		flushPeriod: flushPeriod,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go p.flushUnpublished(ctx)
	return p, nil
}

// Publish implements the events.Publisher interface. The event is buffered
// if redis is unreachable or older events are still buffered and cannot be
// written first.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	values, err := event.Encode()
	if err != nil {
		return err
	}
	values["occurred_at"] = time.Now().UnixNano()

	record := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: MaxStreamLen,
		Approx: true,
		Values: values,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err = p.flushLocked(ctx); err == nil {
		err = p.client.XAdd(ctx, record).Err()
		if err == nil || isRejected(err) {
			return err
		}
	}
	if len(p.backlog) >= MaxUnpublishedEvents {
		log.WithField("event", event.Name()).Warn("redis unreachable and event buffer full, dropping event")
		return nil
	}
	log.WithError(err).WithField("event", event.Name()).Debug("redis unreachable, buffering event")
	p.backlog = append(p.backlog, record)
	return nil
}

// Pending returns the number of buffered events
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.backlog)
}

func (p *Publisher) flushUnpublished(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.flush(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Publisher) flush(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.flushLocked(ctx); err != nil {
		log.WithError(err).WithField("pending", len(p.backlog)).Debug("could not flush buffered events")
	}
}

// flushLocked writes the backlog oldest first and stops at the first
// connection failure. p.mu must be held. It returns nil once the backlog is
// empty.
func (p *Publisher) flushLocked(ctx context.Context) error {
	if err := p.checkConnection(ctx); err != nil {
		return err
	}
	for len(p.backlog) > 0 {
		err := p.client.XAdd(ctx, p.backlog[0]).Err()
		if err != nil && !isRejected(err) {
			return err
		}
		if err != nil {
			log.WithError(err).Error("redis rejected buffered event, dropping it")
		}
		p.backlog[0] = nil
		p.backlog = p.backlog[1:]
	}
	p.backlog = nil
	return nil
}

// isRejected reports whether err is an error reply of the redis server, as
// opposed to a connection failure. Retrying a rejected event cannot succeed.
func isRejected(err error) bool {
	var rerr redis.Error
	return errors.As(err, &rerr)
}

// Close implements the events.Publisher interface. Buffered events are
// flushed one last time if redis is reachable.
func (p *Publisher) Close() error {
	p.cancel()
	<-p.done
	p.flush(context.Background())
	return p.client.Close()
}

func (p *Publisher) checkConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connCheckTimeout)
	defer cancel()
	return p.client.Ping(ctx).Err()
}
