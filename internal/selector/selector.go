package selector

import (
	"math/rand/v2"
	"time"

	"github.com/galois26/creator-feed/internal/cooldown"
	"github.com/galois26/creator-feed/internal/model"
)

// usageDecayStep is how many template uses cost a category one unit of weight.
const usageDecayStep = 3

// Weight is one row of a lane's static weight table.
type Weight struct {
	Category model.Category
	Base     int
}

// TemplateSource lists the templates whose usage counts decay a category's weight.
type TemplateSource interface {
	Templates(c model.Category) []model.Template
}

// Choice is the outcome of one draw.
type Choice struct {
	Category model.Category
	Fallback bool // no category was eligible; drawn from the fallback subset
}

type Selector struct {
	weights   []Weight
	fallback  []model.Category
	templates TemplateSource
}

// New copies the weight table. Rows with non-positive base weight are dropped. An
// empty fallback means the whole table.
func New(weights []Weight, fallback []model.Category, templates TemplateSource) *Selector {
	ws := make([]Weight, 0, len(weights))
	for _, w := range weights {
		if w.Base > 0 {
			ws = append(ws, w)
		}
	}
	fb := append([]model.Category(nil), fallback...)
	if len(fb) == 0 {
		for _, w := range ws {
			fb = append(fb, w.Category)
		}
	}
	return &Selector{weights: ws, fallback: fb, templates: templates}
}

func (s *Selector) Weights() []Weight { return append([]Weight(nil), s.weights...) }

// Pick returns the drawn category.
func (s *Selector) Pick(l *cooldown.Ledger, rng *rand.Rand, now time.Time) model.Category {
	return s.Choose(l, rng, now).Category
}

// Choose filters the table to eligible categories, decays each by template usage,
// and draws one weighted. When nothing is eligible it draws from the fallback subset,
// still avoiding the previous category if the subset allows it.
func (s *Selector) Choose(l *cooldown.Ledger, rng *rand.Rand, now time.Time) Choice {
	eligible := make([]Weight, 0, len(s.weights))
	for _, w := range s.weights {
		if l.IsCategoryEligible(w.Category, now) {
			eligible = append(eligible, Weight{Category: w.Category, Base: s.adjusted(l, w)})
		}
	}
	if len(eligible) > 0 {
		return Choice{Category: Draw(rng, eligible)}
	}

	last, hasLast := l.Last()
	avoidLast := l.Policy().NoRepeat && hasLast
	pool := make([]Weight, 0, len(s.fallback))
	for _, c := range s.fallback {
		if avoidLast && c == last {
			continue
		}
		pool = append(pool, Weight{Category: c, Base: s.adjusted(l, s.row(c))})
	}
	if len(pool) == 0 {
		for _, c := range s.fallback {
			pool = append(pool, Weight{Category: c, Base: s.adjusted(l, s.row(c))})
		}
	}
	return Choice{Category: Draw(rng, pool), Fallback: true}
}

// Adjusted returns the table with usage decay applied, ignoring eligibility.
func (s *Selector) Adjusted(l *cooldown.Ledger) []Weight {
	out := make([]Weight, len(s.weights))
	for i, w := range s.weights {
		out[i] = Weight{Category: w.Category, Base: s.adjusted(l, w)}
	}
	return out
}

func (s *Selector) row(c model.Category) Weight {
	for _, w := range s.weights {
		if w.Category == c {
			return w
		}
	}
	return Weight{Category: c, Base: 1}
}

func (s *Selector) adjusted(l *cooldown.Ledger, w Weight) int {
	used := 0
	if s.templates != nil {
		for _, t := range s.templates.Templates(w.Category) {
			used += l.UsageCount(t.Text)
		}
	}
	return max(1, w.Base-used/usageDecayStep)
}

// Draw picks from ws with probability proportional to weight: a uniform value in
// [0, total) is walked down the list until the remainder is non-positive.
func Draw(rng *rand.Rand, ws []Weight) model.Category {
	if len(ws) == 0 {
		return ""
	}
	total := 0
	for _, w := range ws {
		total += w.Base
	}
	r := rng.Float64() * float64(total)
	for _, w := range ws {
		r -= float64(w.Base)
		if r <= 0 {
			return w.Category
		}
	}
	return ws[len(ws)-1].Category
}
