// Package progress fans processing updates out to interested listeners.
// Publishing never blocks the pipeline: each subscription owns a bounded
// buffer and the oldest update is dropped when a listener falls behind.
package progress

import (
	"sync"
	"time"

	"outloud/internal/library"
)

// Event is a single progress update for an item.
type Event struct {
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	ItemID    int64     `json:"item_id"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Percent   float64   `json:"percent"`
	Error     string    `json:"error,omitempty"`
	Terminal  bool      `json:"terminal"`
}

// EventFromItem builds a snapshot event from an item's durable fields.
func EventFromItem(item *library.Item) Event {
	if item == nil {
		return Event{}
	}
	return Event{
		Timestamp: time.Now().UTC(),
		ItemID:    item.ID,
		Stage:     string(item.Stage),
		Status:    string(item.Status),
		Message:   item.ProgressMessage,
		Percent:   item.ProgressPercent,
		Error:     item.ErrorMessage,
		Terminal:  item.Stage.IsTerminal(),
	}
}

// Subscription delivers events for one item (or all items) until closed.
type Subscription struct {
	hub    *Hub
	id     int
	itemID int64
	events chan Event

	closeOnce sync.Once
}

// Events returns the channel updates arrive on. The channel is closed when
// the watched item reaches a terminal stage or the subscription is closed.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s)
		close(s.events)
	})
}

// Hub is the in-process broadcast point for progress events.
type Hub struct {
	mu       sync.Mutex
	capacity int
	nextSub  int
	nextSeq  uint64
	subs     map[int]*Subscription
	closed   bool
}

// NewHub constructs a Hub whose subscriptions buffer up to capacity events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 16
	}
	return &Hub{
		capacity: capacity,
		subs:     make(map[int]*Subscription),
	}
}

// Subscribe registers a listener for one item's updates. An itemID of zero
// subscribes to every item.
func (h *Hub) Subscribe(itemID int64) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSub++
	sub := &Subscription{
		hub:    h,
		id:     h.nextSub,
		itemID: itemID,
		events: make(chan Event, h.capacity),
	}
	if h.closed {
		close(sub.events)
		sub.closeOnce.Do(func() {})
		return sub
	}
	h.subs[sub.id] = sub
	return sub
}

// Publish delivers an event to matching subscriptions without blocking.
// Terminal events close the per-item subscriptions after delivery.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	var finished []*Subscription
	for _, sub := range h.subs {
		if sub.itemID != 0 && sub.itemID != evt.ItemID {
			continue
		}
		deliver(sub.events, evt)
		if evt.Terminal && sub.itemID != 0 {
			delete(h.subs, sub.id)
			finished = append(finished, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range finished {
		sub.closeOnce.Do(func() {
			close(sub.events)
		})
	}
}

// Close shuts the hub down and closes every open subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[int]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.closeOnce.Do(func() {
			close(sub.events)
		})
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub.id)
	h.mu.Unlock()
}

// deliver sends without blocking, dropping the oldest buffered event when
// the subscription is full.
func deliver(ch chan Event, evt Event) {
	for {
		select {
		case ch <- evt:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
