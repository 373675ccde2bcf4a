// Package cooldown tracks recent category, actor and template usage for one feed lane.
package cooldown

import (
	"time"

	"github.com/galois26/creator-feed/internal/model"
)

// Policy holds the eligibility rules. A zero Policy disables every rule.
type Policy struct {
	NoRepeat bool                             // forbid the previous category outright
	Category time.Duration                    // refractory period for every category
	Rare     map[model.Category]time.Duration // extra per-category throttles
	Actor    time.Duration                    // per (actor, category) refractory period
}

// Retention bounds how long ledger entries are kept.
type Retention struct {
	History  time.Duration // template usage log
	Category time.Duration
	Actor    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		NoRepeat: true,
		Category: 30 * time.Second,
		Rare:     map[model.Category]time.Duration{model.Join: 5 * time.Minute},
		Actor:    2 * time.Minute,
	}
}

func DefaultRetention() Retention {
	return Retention{
		History:  20 * time.Minute,
		Category: 5 * time.Minute,
		Actor:    10 * time.Minute,
	}
}

// Use is one entry of the template history log.
type Use struct {
	Category model.Category
	Actor    string
	Template string
	At       time.Time
}

type actorKey struct {
	actor    string
	category model.Category
}

// Ledger is not safe for concurrent use; each lane owns exactly one.
type Ledger struct {
	policy    Policy
	retention Retention

	last    model.Category
	hasLast bool

	categories map[model.Category]time.Time
	actors     map[actorKey]time.Time
	usage      map[string]int
	history    []Use
}

func New(p Policy, r Retention) *Ledger {
	l := &Ledger{policy: p, retention: r}
	l.Reset()
	return l
}

// NewDefault returns a ledger with DefaultPolicy and DefaultRetention.
func NewDefault() *Ledger { return New(DefaultPolicy(), DefaultRetention()) }

func (l *Ledger) Policy() Policy { return l.policy }

// Reset clears all state, including the monotonic template usage counters.
func (l *Ledger) Reset() {
	l.last = ""
	l.hasLast = false
	l.categories = make(map[model.Category]time.Time)
	l.actors = make(map[actorKey]time.Time)
	l.usage = make(map[string]int)
	l.history = nil
}

// Touch records a generation against the category, the (actor, category) pair and
// the template. Empty actor or template are not recorded.
func (l *Ledger) Touch(c model.Category, actor, template string, now time.Time) {
	l.last = c
	l.hasLast = true
	l.categories[c] = now
	if actor != "" {
		l.actors[actorKey{actor, c}] = now
	}
	if template != "" {
		l.usage[template]++
		l.history = append(l.history, Use{Category: c, Actor: actor, Template: template, At: now})
	}
}

// Last returns the category of the most recent Touch.
func (l *Ledger) Last() (model.Category, bool) { return l.last, l.hasLast }

func (l *Ledger) IsCategoryEligible(c model.Category, now time.Time) bool {
	if l.policy.NoRepeat && l.hasLast && l.last == c {
		return false
	}
	at, ok := l.categories[c]
	if !ok {
		return true
	}
	since := now.Sub(at)
	if l.policy.Category > 0 && since < l.policy.Category {
		return false
	}
	if d := l.policy.Rare[c]; d > 0 && since < d {
		return false
	}
	return true
}

func (l *Ledger) IsActorEligible(actor string, c model.Category, now time.Time) bool {
	if l.policy.Actor <= 0 {
		return true
	}
	at, ok := l.actors[actorKey{actor, c}]
	return !ok || now.Sub(at) >= l.policy.Actor
}

// UsageCount is the cumulative number of touches for template since the last Reset.
func (l *Ledger) UsageCount(template string) int { return l.usage[template] }

// RecentlyUsed reports whether template appears in the history log within the window.
func (l *Ledger) RecentlyUsed(template string, within time.Duration, now time.Time) bool {
	for i := len(l.history) - 1; i >= 0; i-- {
		u := l.history[i]
		if now.Sub(u.At) > within {
			continue
		}
		if u.Template == template {
			return true
		}
	}
	return false
}

// HistoryLen is the number of retained history entries.
func (l *Ledger) HistoryLen() int { return len(l.history) }

// EvictStale drops entries older than their retention window. Category and actor
// entries are kept at least as long as the cooldown that consults them.
func (l *Ledger) EvictStale(now time.Time) {
	for c, at := range l.categories {
		keep := maxDur(l.retention.Category, l.policy.Category, l.policy.Rare[c])
		if now.Sub(at) > keep {
			delete(l.categories, c)
		}
	}
	actorKeep := maxDur(l.retention.Actor, l.policy.Actor)
	for k, at := range l.actors {
		if now.Sub(at) > actorKeep {
			delete(l.actors, k)
		}
	}
	kept := l.history[:0]
	for _, u := range l.history {
		if now.Sub(u.At) <= l.retention.History {
			kept = append(kept, u)
		}
	}
	clear(l.history[len(kept):])
	l.history = kept
}

func maxDur(ds ...time.Duration) time.Duration {
	var m time.Duration
	for _, d := range ds {
		if d > m {
			m = d
		}
	}
	return m
}
