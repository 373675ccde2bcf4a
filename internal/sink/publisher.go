package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/galois26/creator-feed/internal/engine"
	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/postprocess"
	"github.com/galois26/creator-feed/internal/store"
)

// PushObserver is told about every sink push.
type PushObserver interface {
	ObservePush(sink string, err error)
}

// Publisher queues fresh lane events and flushes them to every sink in batches.
// Uids already pushed (per the dedup store) are never queued again.
type Publisher struct {
	sinks      []Sink
	dedup      *store.Dedup
	post       *postprocess.Engine
	obs        PushObserver
	logger     *slog.Logger
	maxPending int

	mu      sync.Mutex
	pending []model.Event
	queued  map[string]struct{}
}

type PublisherConfig struct {
	Sinks      []Sink
	Dedup      *store.Dedup        // optional
	Post       *postprocess.Engine // optional
	Observer   PushObserver        // optional
	Logger     *slog.Logger
	MaxPending int
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = 100
	}
	return &Publisher{
		sinks:      cfg.Sinks,
		dedup:      cfg.Dedup,
		post:       cfg.Post,
		obs:        cfg.Observer,
		logger:     lg,
		maxPending: cfg.MaxPending,
		queued:     make(map[string]struct{}),
	}
}

// Enqueue is an engine.Lane listener. It queues the update's fresh events, tagged
// with their lane. When the queue overflows the oldest entries are dropped.
func (p *Publisher) Enqueue(u engine.Update) {
	if len(p.sinks) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range u.Fresh {
		if _, ok := p.queued[ev.UID]; ok {
			continue
		}
		if p.dedup != nil && p.dedup.Seen(ev.UID) {
			continue
		}
		lbls := make(map[string]string, len(ev.Labels)+1)
		for k, v := range ev.Labels {
			lbls[k] = v
		}
		lbls["lane"] = u.Lane
		ev.Labels = lbls
		p.pending = append(p.pending, ev)
		p.queued[ev.UID] = struct{}{}
	}
	p.trimLocked()
}

func (p *Publisher) trimLocked() {
	over := len(p.pending) - p.maxPending
	if over <= 0 {
		return
	}
	for _, ev := range p.pending[:over] {
		delete(p.queued, ev.UID)
	}
	p.logger.Warn("publish queue full, dropping oldest", "dropped", over)
	p.pending = append([]model.Event(nil), p.pending[over:]...)
}

// Pending is the number of queued events.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush pushes the queued batch to all sinks concurrently. If any sink fails the
// batch is requeued for the next flush and the joined error is returned.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	evs := p.post.Apply(batch)

	var wg sync.WaitGroup
	errCh := make(chan error, len(p.sinks))
	for _, sk := range p.sinks {
		sk := sk
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := sk.Push(ctx, evs)
			if p.obs != nil {
				p.obs.ObservePush(sk.Name(), err)
			}
			if err != nil {
				errCh <- fmt.Errorf("push -> %s: %w", sk.Name(), err)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for e := range errCh {
		errs = append(errs, e)
	}
	if len(errs) > 0 {
		// not marked; next flush retries the whole batch
		p.mu.Lock()
		p.pending = append(batch, p.pending...)
		p.trimLocked()
		p.mu.Unlock()
		return errors.Join(errs...)
	}

	p.mu.Lock()
	for _, ev := range batch {
		if p.dedup != nil {
			p.dedup.Mark(ev.UID)
		}
		delete(p.queued, ev.UID)
	}
	p.mu.Unlock()
	p.logger.Debug("flushed", "events", len(batch), "sinks", len(p.sinks))
	return nil
}

// Run flushes every interval until ctx is done, then makes one last attempt.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	if len(p.sinks) == 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := p.Flush(fctx); err != nil {
				p.logger.Warn("final flush failed", "err", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := p.Flush(ctx); err != nil {
				p.logger.Warn("flush failed", "err", err)
			}
		}
	}
}
