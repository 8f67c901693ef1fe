package events

import (
	"sync"
	"time"
)

// Type identifies a progress event
type Type string

const (
	TypeAuthenticated   Type = "authenticated"
	TypePostingStarted  Type = "posting-started"
	TypePostingFinished Type = "posting-finished"
	TypeRunFinished     Type = "run-finished"
)

// PostingInfo is the posting slice carried on posting events
type PostingInfo struct {
	ID      string
	Title   string
	Company string
}

// Totals are the per-outcome counts carried on the run-finished event
type Totals struct {
	Submitted int
	Skipped   int
	Aborted   int
	Seen      int
}

// Event is one discrete progress notification
type Event struct {
	Type    Type
	Posting PostingInfo
	Outcome string
	Reason  string
	Totals  Totals
	Time    time.Time
}

// Hub fans events out to subscribers. Delivery is non-blocking: a slow
// subscriber drops events rather than stalling the automation loop.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber channel
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Publish delivers the event to all subscribers
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop if slow
		}
	}
}
