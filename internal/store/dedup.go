package store

import (
	"container/list"
	"sync"
	"time"
)

// Dedup is a TTL-bound LRU of event uids already handed to sinks.
type Dedup struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	now   func() time.Time
	ll    *list.List               // most-recent at front
	items map[string]*list.Element // uid -> element
}

type entry struct {
	key string
	exp time.Time
}

func NewDedup(maxKeys int, ttl time.Duration) *Dedup {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Dedup{cap: maxKeys, ttl: ttl, now: time.Now, ll: list.New(), items: make(map[string]*list.Element, maxKeys)}
}

// WithClock swaps the time source; used by tests.
func (d *Dedup) WithClock(now func() time.Time) *Dedup {
	d.now = now
	return d
}

func (d *Dedup) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.items[key]; ok {
		en := el.Value.(entry)
		if d.now().Before(en.exp) {
			d.ll.MoveToFront(el)
			return true
		}
		d.ll.Remove(el)
		delete(d.items, key)
	}
	return false
}

func (d *Dedup) Mark(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if el, ok := d.items[key]; ok {
		en := el.Value.(entry)
		en.exp = now.Add(d.ttl)
		el.Value = en
		d.ll.MoveToFront(el)
		return
	}
	el := d.ll.PushFront(entry{key: key, exp: now.Add(d.ttl)})
	d.items[key] = el
	for d.ll.Len() > d.cap {
		d.removeBack()
	}
	// drop the expired tail
	for t := d.ll.Back(); t != nil && !now.Before(t.Value.(entry).exp); t = d.ll.Back() {
		d.removeBack()
	}
}

// Forget removes key, e.g. after a failed push so it can be retried.
func (d *Dedup) Forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.items[key]; ok {
		d.ll.Remove(el)
		delete(d.items, key)
	}
}

func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ll.Len()
}

func (d *Dedup) removeBack() {
	t := d.ll.Back()
	if t == nil {
		return
	}
	d.ll.Remove(t)
	delete(d.items, t.Value.(entry).key)
}
