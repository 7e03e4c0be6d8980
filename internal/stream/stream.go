package stream

import (
	"context"
	"sync"
	"time"
)

// AssignmentEvent announces a committed inventory assignment.
type AssignmentEvent struct {
	InventoryCode string    `json:"inventory_code"`
	ProjectID     int64     `json:"proj_id"`
	Quantity      int64     `json:"quantity"`
	Remaining     int64     `json:"available_quantity"`
	AccountID     int64     `json:"account_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// Stream fans assignment events out to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan AssignmentEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan AssignmentEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan AssignmentEvent {
	ch := make(chan AssignmentEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// Subscribers reports the number of active subscribers.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Publish fans the event out to all subscribers. Slow subscribers miss events.
func (s *Stream) Publish(evt AssignmentEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
