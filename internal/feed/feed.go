// Package feed keeps the capped, newest-first, uid-unique event buffer a lane renders.
package feed

import (
	"sort"
	"sync"

	"github.com/galois26/creator-feed/internal/model"
)

// DefaultCapacity is used when a non-positive capacity is given.
const DefaultCapacity = 25

// UpsertPrepend merges incoming into existing and returns a new slice. Incoming
// events whose uid is already present, in existing or earlier in incoming, are
// dropped. The result is sorted by ts descending (fresh events first on ties) and
// truncated to capacity. existing is not modified.
func UpsertPrepend(existing []model.Event, capacity int, incoming ...model.Event) []model.Event {
	out, _ := upsert(existing, capacity, incoming)
	return out
}

func upsert(existing []model.Event, capacity int, incoming []model.Event) (out, fresh []model.Event) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, e := range existing {
		seen[e.UID] = struct{}{}
	}
	for _, e := range incoming {
		if _, dup := seen[e.UID]; dup {
			continue
		}
		seen[e.UID] = struct{}{}
		fresh = append(fresh, e)
	}

	out = make([]model.Event, 0, len(fresh)+len(existing))
	out = append(out, fresh...)
	out = append(out, existing...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS > out[j].TS })
	if len(out) > capacity {
		clear(out[capacity:])
		out = out[:capacity]
	}
	return out, fresh
}

// Buffer owns one lane's feed. Snapshots handed out are copies.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	events   []model.Event
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

func (b *Buffer) Capacity() int { return b.capacity }

// Merge upserts events and returns the new snapshot plus the events that were not
// duplicates. A fresh event may still be evicted immediately if it is older than
// everything retained.
func (b *Buffer) Merge(events ...model.Event) (snapshot, fresh []model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events, fresh = upsert(b.events, b.capacity, events)
	return append([]model.Event(nil), b.events...), fresh
}

func (b *Buffer) Snapshot() []model.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.Event(nil), b.events...)
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
