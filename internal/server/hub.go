package server

import (
	"sync"

	"github.com/galois26/creator-feed/internal/engine"
	"github.com/galois26/creator-feed/internal/model"
)

// Message is what websocket subscribers receive after every merge.
type Message struct {
	Lane   string        `json:"lane"`
	Events []model.Event `json:"events"`
}

type subscriber struct {
	send chan Message
}

// Hub fans lane snapshots out to websocket subscribers. Slow subscribers only ever
// see the latest snapshot; older pending ones are dropped.
type Hub struct {
	lane string

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	lastSeq uint64

	onCount func(n int)
}

func NewHub(lane string, onCount func(n int)) *Hub {
	return &Hub{lane: lane, subs: make(map[*subscriber]struct{}), onCount: onCount}
}

func (h *Hub) subscribe() *subscriber {
	s := &subscriber{send: make(chan Message, 1)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.count(n)
	return s
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()
	h.count(n)
}

// Len is the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast is an engine.Lane listener. Updates not newer than the last one
// broadcast are dropped.
func (h *Hub) Broadcast(u engine.Update) {
	msg := Message{Lane: u.Lane, Events: u.Snapshot}
	h.mu.Lock()
	defer h.mu.Unlock()
	if u.Seq != 0 {
		if u.Seq <= h.lastSeq {
			return
		}
		h.lastSeq = u.Seq
	}
	for s := range h.subs {
		offer(s.send, msg)
	}
}

// offer replaces whatever is pending in ch with msg.
func offer(ch chan Message, msg Message) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (h *Hub) count(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}
