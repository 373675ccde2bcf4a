package selector_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galois26/creator-feed/internal/cooldown"
	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/selector"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fixedTemplates map[model.Category][]model.Template

func (f fixedTemplates) Templates(c model.Category) []model.Template { return f[c] }

func newRNG(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed+7)) }

func TestChoose_NeverRepeatsPrevious(t *testing.T) {
	ws := []selector.Weight{{model.Like, 15}, {model.Comment, 12}, {model.Follow, 10}}
	s := selector.New(ws, []model.Category{model.Like, model.Comment}, nil)
	l := cooldown.New(cooldown.Policy{NoRepeat: true}, cooldown.DefaultRetention())
	rng := newRNG(1)

	prev := model.Category("")
	for i := 0; i < 500; i++ {
		now := t0.Add(time.Duration(i) * time.Second)
		c := s.Pick(l, rng, now)
		require.NotEqual(t, prev, c, "draw %d repeated", i)
		l.Touch(c, "", "", now)
		prev = c
	}
}

func TestChoose_WeightFidelity(t *testing.T) {
	ws := []selector.Weight{{model.Like, 15}, {model.Comment, 10}, {model.Join, 5}}
	s := selector.New(ws, nil, nil)
	l := cooldown.New(cooldown.Policy{}, cooldown.DefaultRetention())
	rng := newRNG(42)

	const n = 10000
	counts := map[model.Category]int{}
	for i := 0; i < n; i++ {
		counts[s.Pick(l, rng, t0)]++
	}
	assert.InDelta(t, 0.5, float64(counts[model.Like])/n, 0.03)
	assert.InDelta(t, 1.0/3, float64(counts[model.Comment])/n, 0.03)
	assert.InDelta(t, 1.0/6, float64(counts[model.Join])/n, 0.03)
}

func TestChoose_RareCategoryThrottled(t *testing.T) {
	ws := []selector.Weight{{model.Like, 15}, {model.Join, 1}}
	s := selector.New(ws, []model.Category{model.Like}, nil)
	l := cooldown.New(cooldown.Policy{Rare: map[model.Category]time.Duration{model.Join: 5 * time.Minute}}, cooldown.DefaultRetention())
	rng := newRNG(3)

	l.Touch(model.Join, "", "", t0)
	// 100 picks spread over less than 5 minutes
	for i := 1; i <= 100; i++ {
		now := t0.Add(time.Duration(i) * 2 * time.Second)
		c := s.Pick(l, rng, now)
		require.NotEqual(t, model.Join, c, "pick %d", i)
		l.Touch(c, "", "", now)
	}
	assert.False(t, l.IsCategoryEligible(model.Join, t0.Add(5*time.Minute-time.Second)))

	// past the window a second join becomes possible again
	later := t0.Add(5 * time.Minute)
	require.True(t, l.IsCategoryEligible(model.Join, later))
	seen := false
	for i := 0; i < 2000 && !seen; i++ {
		seen = s.Pick(l, rng, later) == model.Join
	}
	assert.True(t, seen)
}

func TestChoose_FallbackWhenNothingEligible(t *testing.T) {
	ws := []selector.Weight{{model.Like, 15}, {model.Comment, 12}, {model.Tip, 6}}
	s := selector.New(ws, []model.Category{model.Like, model.Comment}, nil)
	l := cooldown.New(cooldown.Policy{NoRepeat: true, Category: time.Hour}, cooldown.DefaultRetention())
	l.Touch(model.Tip, "", "", t0)
	l.Touch(model.Comment, "", "", t0)
	l.Touch(model.Like, "", "", t0)
	rng := newRNG(9)

	for i := 0; i < 50; i++ {
		ch := s.Choose(l, rng, t0.Add(time.Second))
		assert.True(t, ch.Fallback)
		assert.Equal(t, model.Comment, ch.Category, "fallback still avoids the previous category")
	}
}

func TestChoose_FallbackSingleEntryMayRepeat(t *testing.T) {
	ws := []selector.Weight{{model.Like, 15}}
	s := selector.New(ws, []model.Category{model.Like}, nil)
	l := cooldown.New(cooldown.Policy{NoRepeat: true}, cooldown.DefaultRetention())
	l.Touch(model.Like, "", "", t0)

	ch := s.Choose(l, newRNG(1), t0)
	assert.True(t, ch.Fallback)
	assert.Equal(t, model.Like, ch.Category)
}

func TestAdjusted_UsageDecay(t *testing.T) {
	tpls := fixedTemplates{
		model.Like: {{ID: "like#0", Category: model.Like, Text: "a"}, {ID: "like#1", Category: model.Like, Text: "b"}},
	}
	ws := []selector.Weight{{model.Like, 5}, {model.Comment, 4}}
	s := selector.New(ws, nil, tpls)
	l := cooldown.New(cooldown.Policy{}, cooldown.DefaultRetention())

	for i := 0; i < 4; i++ {
		l.Touch(model.Like, "", "a", t0)
	}
	for i := 0; i < 3; i++ {
		l.Touch(model.Like, "", "b", t0)
	}
	// 7 uses -> 5 - 7/3 = 3
	adj := s.Adjusted(l)
	assert.Equal(t, []selector.Weight{{model.Like, 3}, {model.Comment, 4}}, adj)

	for i := 0; i < 100; i++ {
		l.Touch(model.Like, "", "a", t0)
	}
	assert.Equal(t, 1, s.Adjusted(l)[0].Base, "decay floors at 1")
}

func TestNew_DropsNonPositiveWeights(t *testing.T) {
	s := selector.New([]selector.Weight{{model.Like, 2}, {model.Join, 0}, {model.Tip, -1}}, nil, nil)
	assert.Equal(t, []selector.Weight{{model.Like, 2}}, s.Weights())
}

func TestDraw_Empty(t *testing.T) {
	assert.Equal(t, model.Category(""), selector.Draw(newRNG(1), nil))
}
