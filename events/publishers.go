package events

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LogPublisher writes events to the logrus logger.
type LogPublisher struct {
	Logger *log.Logger
}

// Publish implements the Publisher interface
func (p LogPublisher) Publish(_ context.Context, event Event) error {
	values, err := event.Encode()
	if err != nil {
		return err
	}
	logger := p.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.WithFields(values).Info("ledger event")
	return nil
}

// Close implements the Publisher interface
func (LogPublisher) Close() error {
	return nil
}

// Recorder keeps all published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements the Publisher interface
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Close implements the Publisher interface
func (*Recorder) Close() error {
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the names of the recorded events in order
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name()
	}
	return names
}

// Reset drops all recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans an event out to several publishers. All publishers are tried;
// the first error is returned.
type Multi []Publisher

// Publish implements the Publisher interface
func (m Multi) Publish(ctx context.Context, event Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = errors.Wrapf(err, "failed to publish %s", event.Name())
		}
	}
	return first
}

// Close implements the Publisher interface
func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Discard drops all events.
type Discard struct{}

// Publish implements the Publisher interface
func (Discard) Publish(context.Context, Event) error { return nil }

// Close implements the Publisher interface
func (Discard) Close() error { return nil }
