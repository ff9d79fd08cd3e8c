package store

import (
	"log/slog"
	"sync"

	"github.com/waabox/deploydeck/internal/event"
)

const subscriberBuffer = 256

// Change is published to subscribers after every mutation. Event is nil for
// mutations that did not come from the channel (connection state, fetches).
type Change struct {
	Event event.Event
	State Dashboard
}

// Controller is the single writer of a Dashboard. Readers either take a
// Snapshot or Subscribe to changes.
type Controller struct {
	mu     sync.Mutex
	state  Dashboard
	subs   map[int]chan Change
	nextID int
}

// NewController creates a controller holding initial.
func NewController(initial Dashboard) *Controller {
	return &Controller{state: initial, subs: make(map[int]chan Change)}
}

// Apply folds ev into the state and publishes the result.
func (c *Controller) Apply(ev event.Event) Dashboard {
	return c.mutate(ev, func(d Dashboard) Dashboard { return d.Apply(ev) })
}

// Update applies fn to the state and publishes the result.
func (c *Controller) Update(fn func(Dashboard) Dashboard) Dashboard {
	return c.mutate(nil, fn)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel receiving every subsequent Change, and a cancel
// func that unregisters and closes it. A subscriber that falls more than
// subscriberBuffer changes behind misses the overflow.
func (c *Controller) Subscribe() (<-chan Change, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	ch := make(chan Change, subscriberBuffer)
	c.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

func (c *Controller) mutate(ev event.Event, fn func(Dashboard) Dashboard) Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = fn(c.state)
	change := Change{Event: ev, State: c.state}
	for id, ch := range c.subs {
		select {
		case ch <- change:
		default:
			slog.Warn("subscriber lagging, change dropped", "subscriber", id)
		}
	}
	return c.state
}
