// Package notify fans favorites changes out to independently mounted UI
// surfaces. Delivery is synchronous and in subscription order.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Op identifies what changed.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpToggle Op = "toggle"
	OpImport Op = "import"
	OpClear  Op = "clear"
	OpMode   Op = "mode"
)

// Event describes a change. Listeners are free to ignore it and re-read
// state from the preference service.
type Event struct {
	Op        Op        `json:"op"`
	ID        string    `json:"id,omitempty"`
	Favorited bool      `json:"favorited,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	At        time.Time `json:"at"`
}

// Listener receives change events.
type Listener func(Event)

type subscription struct {
	id       uint64
	listener Listener
}

// Notifier is a copy-on-write set of listeners.
type Notifier struct {
	mu     sync.Mutex
	subs   []subscription
	nextID uint64

	logger *zap.Logger
	panics prometheus.Counter
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger used for listener failures.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// WithPanicCounter counts recovered listener panics.
func WithPanicCounter(c prometheus.Counter) Option {
	return func(n *Notifier) {
		n.panics = c
	}
}

// New creates a notifier with no subscribers.
func New(opts ...Option) *Notifier {
	n := &Notifier{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscribe registers listener and returns a function that removes it.
// The returned function is safe to call more than once.
func (n *Notifier) Subscribe(listener Listener) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID

	next := make([]subscription, len(n.subs), len(n.subs)+1)
	copy(next, n.subs)
	n.subs = append(next, subscription{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() { n.unsubscribe(id) })
	}
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	next := make([]subscription, 0, len(n.subs))
	for _, s := range n.subs {
		if s.id != id {
			next = append(next, s)
		}
	}
	n.subs = next
}

// Len returns the number of current subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Notify delivers event to every listener subscribed at the time of the
// call. A panicking listener is logged and skipped.
func (n *Notifier) Notify(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	n.mu.Lock()
	subs := n.subs
	n.mu.Unlock()

	for _, s := range subs {
		n.deliver(s, event)
	}
}

func (n *Notifier) deliver(s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			if n.panics != nil {
				n.panics.Inc()
			}
			n.logger.Error("change listener failed",
				zap.Uint64("subscriber", s.id),
				zap.String("op", string(event.Op)),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	s.listener(event)
}
