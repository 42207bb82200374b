// Package registry implements the issuer registry and the certificate
// registry. Registries hold no locks and no global state; the caller binds
// them to a storage view and is responsible for serializing calls and
// committing or discarding their writes as a whole.
package registry

import (
	"time"

	"github.com/go-oidfed/certledger/events"
	"github.com/go-oidfed/certledger/storage/model"
)

// Call is one invocation of a registry operation: the calling account, the
// ledger time it observes, and the events it emitted so far.
type Call struct {
	Caller model.Account
	// Now is the ledger time in unix seconds
	Now    int64
	events []events.Event
}

// NewCall creates a Call for the passed caller at the passed ledger time
func NewCall(caller model.Account, now time.Time) *Call {
	return &Call{
		Caller: caller,
		Now:    now.Unix(),
	}
}

// Emit buffers an event. Buffered events must only be published once the
// call's writes are committed.
func (c *Call) Emit(e events.Event) {
	c.events = append(c.events, e)
}

// Events returns the buffered events in emission order
func (c *Call) Events() []events.Event {
	return c.events
}
