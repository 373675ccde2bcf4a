package engine

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/galois26/creator-feed/internal/catalog"
	"github.com/galois26/creator-feed/internal/cooldown"
	"github.com/galois26/creator-feed/internal/feed"
	"github.com/galois26/creator-feed/internal/lexicon"
	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/normalize"
	"github.com/galois26/creator-feed/internal/selector"
	"github.com/galois26/creator-feed/internal/synth"
)

// Observer receives per-cycle statistics. Implementations must not call back into the lane.
type Observer interface {
	ObserveGeneration(lane string, c model.Category, choice selector.Choice, tr synth.Trace, took time.Duration)
	ObserveMerge(lane string, offered, fresh, size int)
}

// Update is delivered to listeners after every merge into a lane's buffer.
type Update struct {
	Seq      uint64 // per lane, increases with every merge
	Lane     string
	Snapshot []model.Event
	Fresh    []model.Event
}

type LaneConfig struct {
	Name      string
	Weights   []selector.Weight
	Fallback  []model.Category
	Lexicon   *lexicon.Lexicon
	Catalog   catalog.Catalog
	Policy    cooldown.Policy
	Retention cooldown.Retention
	Synth     synth.Config
	Capacity  int
	Seed      uint64           // 0 seeds from the runtime source
	Now       func() time.Time // nil means time.Now
}

// Lane is one independent pipeline: ledger, selector, synthesizer, normalizer and
// buffer. The mutex serializes every generation and merge; the buffer hands out copies.
type Lane struct {
	name string

	mu     sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
	ledger *cooldown.Ledger
	sel    *selector.Selector
	syn    *synth.Synthesizer
	norm   *normalize.Normalizer
	buffer *feed.Buffer

	seq       uint64
	notifyMu  sync.Mutex // taken before mu is released, so delivery follows merge order
	obs       Observer
	logger    *slog.Logger
	listeners []func(Update)
}

type LaneOption func(*Lane)

func WithObserver(o Observer) LaneOption { return func(l *Lane) { l.obs = o } }

func WithLogger(lg *slog.Logger) LaneOption { return func(l *Lane) { l.logger = lg } }

func NewLane(cfg LaneConfig, opts ...LaneOption) *Lane {
	seed := cfg.Seed
	var rng *rand.Rand
	if seed == 0 {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	} else {
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	lex := cfg.Lexicon
	if lex == nil {
		lex = lexicon.New(cfg.Name, nil, lexicon.Vocabulary{}, nil)
	}
	l := &Lane{
		name:   cfg.Name,
		rng:    rng,
		now:    now,
		ledger: cooldown.New(cfg.Policy, cfg.Retention),
		sel:    selector.New(cfg.Weights, cfg.Fallback, lex),
		syn:    synth.New(lex, cfg.Catalog, cfg.Synth),
		buffer: feed.NewBuffer(cfg.Capacity),
		logger: slog.Default(),
	}
	l.norm = &normalize.Normalizer{Now: now, Token: normalize.RandomToken}
	if cfg.Seed != 0 {
		// reproducible runs; only called with mu held
		l.norm.Token = func() string { return fmt.Sprintf("%012x", l.rng.Uint64()>>16) }
	}
	for _, o := range opts {
		o(l)
	}
	l.logger = l.logger.With("lane", l.name)
	return l
}

func (l *Lane) Name() string { return l.name }

// Listen registers fn to receive every Update. fn runs on the merging goroutine
// after the lane lock is released, one update at a time in merge order. fn must
// not call Generate, Ingest or Merge on the same lane.
func (l *Lane) Listen(fn func(Update)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Generate runs one full cycle: evict stale ledger entries, pick a category,
// synthesize, normalize, merge. seed is folded into the event fingerprint.
func (l *Lane) Generate(seed string) model.Event {
	l.mu.Lock()
	start := time.Now()
	now := l.now()

	l.ledger.EvictStale(now)
	choice := l.sel.Choose(l.ledger, l.rng, now)
	raw, tr := l.syn.Compose(choice.Category, l.ledger, l.rng, now, seed)
	ev := l.norm.Normalize(raw)
	snap, fresh := l.buffer.Merge(ev)
	l.seq++
	u := Update{Seq: l.seq, Lane: l.name, Snapshot: snap, Fresh: fresh}
	listeners := l.listeners
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	if l.obs != nil {
		l.obs.ObserveGeneration(l.name, choice.Category, choice, tr, time.Since(start))
		l.obs.ObserveMerge(l.name, 1, len(fresh), len(snap))
	}
	l.logger.Debug("generated", "category", choice.Category, "uid", ev.UID,
		"fallback", choice.Fallback, "template_fallback", tr.TemplateFallback,
		"actor_resamples", tr.ActorResamples)
	notify(listeners, u)
	return ev
}

// Ingest normalizes externally supplied raw events and merges them. It returns
// only the events that were not already present.
func (l *Lane) Ingest(raws ...model.RawEvent) []model.Event {
	l.mu.Lock()
	events := l.norm.NormalizeAll(raws)
	l.mu.Unlock()
	return l.Merge(events...)
}

// Merge upserts already normalized events and returns the fresh ones.
func (l *Lane) Merge(events ...model.Event) []model.Event {
	if len(events) == 0 {
		return nil
	}
	l.mu.Lock()
	snap, fresh := l.buffer.Merge(events...)
	l.seq++
	u := Update{Seq: l.seq, Lane: l.name, Snapshot: snap, Fresh: fresh}
	listeners := l.listeners
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	if l.obs != nil {
		l.obs.ObserveMerge(l.name, len(events), len(fresh), len(snap))
	}
	if dropped := len(events) - len(fresh); dropped > 0 {
		l.logger.Debug("absorbed duplicates", "count", dropped)
	}
	notify(listeners, u)
	return fresh
}

func (l *Lane) Snapshot() []model.Event { return l.buffer.Snapshot() }

func (l *Lane) Capacity() int { return l.buffer.Capacity() }

// ResetLedger clears cooldowns, history and the template usage counters.
func (l *Lane) ResetLedger() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ledger.Reset()
}

// NextDelay draws a uniform delay in [lo, hi] from the lane's source.
func (l *Lane) NextDelay(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo + time.Duration(l.rng.Int64N(int64(hi-lo)+1))
}

func notify(listeners []func(Update), u Update) {
	for _, fn := range listeners {
		fn(u)
	}
}
