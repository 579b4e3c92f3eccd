// Package events delivers a change notification per committed mutating
// operation. Observers (cache invalidation, UI refresh) subscribe instead
// of the core assuming any particular invalidation call.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation names the committed operation an event describes.
type Operation string

const (
	OpRequestCreated      Operation = "request.created"
	OpRequestTransitioned Operation = "request.transitioned"
	OpRequestAmended      Operation = "request.amended"
	OpRequestDeleted      Operation = "request.deleted"
	OpPaymentCreated      Operation = "payment.created"
	OpCategoryCreated     Operation = "category.created"
)

// Event describes one committed operation.
type Event struct {
	ID         string    `json:"id"`
	Operation  Operation `json:"operation"`
	RequestID  string    `json:"request_id,omitempty"`
	CategoryID string    `json:"category_id,omitempty"`
	PaymentID  string    `json:"payment_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier fans events out to subscribers. Publishing never blocks: a
// subscriber that has fallen behind its buffer misses the event.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewNotifier returns a notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new observer and returns its channel plus an
// unsubscribe function.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
		n.mu.Unlock()
	}

	return ch, cancel
}

// Publish assigns the event an id and timestamp and delivers it to every
// subscriber with buffer room.
func (n *Notifier) Publish(event Event) {
	event.ID = uuid.NewString()
	event.OccurredAt = time.Now().UTC()

	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
