package gateway

import (
	"sync"

	"go.uber.org/zap"

	"github.com/SWWS97/Gomoku-Game/internal/obslog"
)

// Hub fans server events out to websocket connections grouped by topic
// ("game:<id>", "mm:<user>", "lobby"). Publish never blocks: a subscriber
// whose buffer is full misses the event and catches up from the next
// snapshot broadcast.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Subscription]struct{})}
}

// Subscription is one listener on one topic.
type Subscription struct {
	hub   *Hub
	topic string
	ch    chan any
	once  sync.Once
}

// C yields published events. Closed by Close.
func (s *Subscription) C() <-chan any { return s.ch }

// Close detaches the subscription. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if subs, ok := s.hub.topics[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.topics, s.topic)
			}
		}
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// Subscribe attaches a buffered listener to a topic.
func (h *Hub) Subscribe(topic string, buf int) *Subscription {
	if buf <= 0 {
		buf = 32
	}
	sub := &Subscription{hub: h, topic: topic, ch: make(chan any, buf)}
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

// Publish delivers an event to every live subscriber of the topic.
func (h *Hub) Publish(topic string, msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- msg:
		default:
			obslog.L().Warn("hub_drop", zap.String("topic", topic))
		}
	}
}

// Count returns the number of live subscribers on a topic.
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
