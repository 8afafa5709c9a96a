package ws

import (
	"strconv"
	"sync"
)

// Hub fans events out to live subscribers. Topics are opaque strings:
// a conversation ID for per-thread message feeds, or "inbox:<userID>"
// for a user's conversation-summary feed.
//
// Each subscriber owns a buffered channel. Publish never blocks; a
// subscriber that stops draining loses events rather than stalling the
// sender, which is acceptable because every feed can be rebuilt from
// the store on reconnect.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription is one live feed. Receive from C until it is closed;
// call Cancel to stop the feed. After Cancel returns no further events
// are delivered, though one already-buffered event may still be read.
type Subscription struct {
	C chan interface{}

	hub   *Hub
	topic string
	once  sync.Once
}

// Cancel unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if subs, ok := s.hub.topics[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.topics, s.topic)
			}
		}
		s.hub.mu.Unlock()
		close(s.C)
	})
}

const subscriptionBuffer = 64

// Subscribe registers a new live feed on topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		C:     make(chan interface{}, subscriptionBuffer),
		hub:   h,
		topic: topic,
	}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers event to every current subscriber of topic.
func (h *Hub) Publish(topic string, event interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[topic] {
		select {
		case sub.C <- event:
		default:
			// Subscriber is not draining; drop rather than block.
		}
	}
}

// InboxTopic names the per-user conversation-summary feed.
func InboxTopic(userID uint) string {
	return "inbox:" + strconv.FormatUint(uint64(userID), 10)
}
