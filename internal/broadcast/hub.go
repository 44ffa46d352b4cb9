// Package broadcast provides the per-runsheet publish/subscribe hub.
// It is transport agnostic: the websocket handler is one consumer, an
// in-process observer is another.  The hub is a "something changed,
// refetch" signal: persisted state stays authoritative and observers
// can always pull it in full over HTTP after a (re)connect.
package broadcast

import (
	"sync"
	"time"
)

// subscriberBuffer is the per-subscriber channel depth.  A subscriber
// that falls this far behind is dropped, which a client experiences as
// a disconnect and answers by reconnecting and refetching.
const subscriberBuffer = 32

// Change describes one committed show-call change.  Seq is monotonic
// per runsheet in commit order; cross-runsheet ordering is undefined.
type Change struct {
	Seq        uint64    `json:"seq"`
	RunsheetID uint64    `json:"runsheet_id"`
	CueID      *uint64   `json:"cue_id,omitempty"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

// Subscriber is one observer of a single runsheet's change stream.
type Subscriber struct {
	id         int64
	runsheetID uint64
	ch         chan Change
}

// Changes returns the receive channel.  It is closed when the
// subscriber is unsubscribed or dropped by the hub.
func (s *Subscriber) Changes() <-chan Change { return s.ch }

// RunsheetID returns the runsheet this subscriber observes.
func (s *Subscriber) RunsheetID() uint64 { return s.runsheetID }

// Hub fans committed changes out to the subscribers of each runsheet.
// Zero subscribers is a valid operating mode; publishing never blocks
// and never fails.
type Hub struct {
	mu     sync.Mutex
	nextID int64
	seq    map[uint64]uint64
	subs   map[uint64]map[int64]*Subscriber
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		seq:  make(map[uint64]uint64),
		subs: make(map[uint64]map[int64]*Subscriber),
	}
}

// Subscribe registers a new observer for the given runsheet.
func (h *Hub) Subscribe(runsheetID uint64) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &Subscriber{
		id:         h.nextID,
		runsheetID: runsheetID,
		ch:         make(chan Change, subscriberBuffer),
	}
	m := h.subs[runsheetID]
	if m == nil {
		m = make(map[int64]*Subscriber)
		h.subs[runsheetID] = m
	}
	m[s.id] = s
	return s
}

// Unsubscribe removes the observer and closes its channel.  Calling it
// twice, or after the hub dropped the subscriber, is harmless.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(s)
}

// Publish delivers a committed change to every current subscriber of
// the runsheet, in commit order.  The hub assigns the per-runsheet
// sequence number.  A subscriber with a full buffer is dropped so one
// slow connection never stalls delivery to the rest.
func (h *Hub) Publish(runsheetID uint64, c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq[runsheetID]++
	c.Seq = h.seq[runsheetID]
	c.RunsheetID = runsheetID
	for _, s := range h.subs[runsheetID] {
		select {
		case s.ch <- c:
		default:
			h.remove(s)
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(s *Subscriber) {
	m := h.subs[s.runsheetID]
	if m == nil {
		return
	}
	if _, ok := m[s.id]; !ok {
		return
	}
	delete(m, s.id)
	close(s.ch)
	if len(m) == 0 {
		delete(h.subs, s.runsheetID)
	}
}
