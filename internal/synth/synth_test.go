package synth_test

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galois26/creator-feed/internal/catalog"
	"github.com/galois26/creator-feed/internal/cooldown"
	"github.com/galois26/creator-feed/internal/lexicon"
	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/synth"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newRNG(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, 11)) }

func testLexicon(actors ...string) *lexicon.Lexicon {
	return lexicon.New("test", actors, lexicon.Vocabulary{
		Genres:     []string{"lofi"},
		Amounts:    []string{"$5"},
		Challenges: []string{"Flip This Sample"},
		Badges:     []string{"Crate Digger"},
	}, map[model.Category][]string{
		model.Like:      {"{user} liked {target}'s {genre} beat"},
		model.Tip:       {"{user} tipped {target} {amount}"},
		model.Mint:      {"{user} minted {collectible} #{serial}"},
		model.Challenge: {"{user} entered {challenge}"},
		model.Follow:    {"{user} followed {target}", "{target} got a follow from {user}"},
	})
}

func TestCompose_RendersTemplate(t *testing.T) {
	s := synth.New(testLexicon("ana", "bo"), nil, synth.DefaultConfig())
	l := cooldown.NewDefault()

	raw, tr := s.Compose(model.Tip, l, newRNG(1), t0, "seed-1")
	assert.Equal(t, "tip", raw.Type)
	assert.Equal(t, "tip#0", raw.TemplateID)
	assert.NotEqual(t, raw.Payload.Actor, raw.Payload.Target)
	assert.Equal(t, raw.Payload.Actor+" tipped "+raw.Payload.Target+" $5", raw.Payload.Text)
	assert.Equal(t, "$5", raw.Payload.Amount)
	assert.Equal(t, raw.ActorID, raw.Payload.Actor)
	require.NotNil(t, raw.Payload.Avatar)
	assert.NotEmpty(t, raw.Payload.Hash)
	assert.Zero(t, raw.TS, "timestamp is stamped by the normalizer")
	assert.Equal(t, synth.Trace{}, tr)
}

func TestCompose_TouchesLedger(t *testing.T) {
	lex := testLexicon("ana", "bo")
	s := synth.New(lex, nil, synth.DefaultConfig())
	l := cooldown.NewDefault()

	raw, _ := s.Compose(model.Like, l, newRNG(2), t0, "x")

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, model.Like, last)
	assert.Equal(t, 1, l.UsageCount(lex.Templates(model.Like)[0].Text))
	assert.False(t, l.IsActorEligible(raw.ActorID, model.Like, t0.Add(time.Second)))
}

func TestCompose_TemplateFallback(t *testing.T) {
	s := synth.New(testLexicon("ana", "bo"), nil, synth.DefaultConfig())
	l := cooldown.New(cooldown.Policy{}, cooldown.DefaultRetention())
	rng := newRNG(3)

	_, tr := s.Compose(model.Like, l, rng, t0, "a")
	assert.False(t, tr.TemplateFallback)
	raw, tr := s.Compose(model.Like, l, rng, t0.Add(time.Minute), "b")
	assert.True(t, tr.TemplateFallback, "only template was used a minute ago")
	assert.Equal(t, "like#0", raw.TemplateID)

	_, tr = s.Compose(model.Like, l, rng, t0.Add(12*time.Minute), "c")
	assert.False(t, tr.TemplateFallback)
}

func TestCompose_PrefersFreshTemplates(t *testing.T) {
	s := synth.New(testLexicon("ana", "bo"), nil, synth.DefaultConfig())
	l := cooldown.New(cooldown.Policy{}, cooldown.DefaultRetention())
	rng := newRNG(4)

	first, _ := s.Compose(model.Follow, l, rng, t0, "a")
	second, tr := s.Compose(model.Follow, l, rng, t0.Add(time.Second), "b")
	assert.False(t, tr.TemplateFallback)
	assert.NotEqual(t, first.TemplateID, second.TemplateID)
}

func TestCompose_BoundedActorRetry(t *testing.T) {
	s := synth.New(testLexicon("ana"), nil, synth.Config{Freshness: time.Minute, ActorRetries: 3})
	l := cooldown.NewDefault()
	l.Touch(model.Like, "ana", "", t0)

	raw, tr := s.Compose(model.Like, l, newRNG(5), t0.Add(time.Second), "x")
	assert.Equal(t, "ana", raw.ActorID, "an ineligible actor is accepted once retries run out")
	assert.Equal(t, 3, tr.ActorResamples)
	assert.True(t, tr.ActorFallback)
	assert.Equal(t, "ana", raw.Payload.Target, "single-actor pool targets itself")
}

func TestCompose_ActorResampleFindsEligible(t *testing.T) {
	s := synth.New(testLexicon("ana", "bo"), nil, synth.Config{Freshness: time.Minute, ActorRetries: 64})
	l := cooldown.NewDefault()
	l.Touch(model.Like, "ana", "", t0)
	rng := newRNG(6)

	for i := 0; i < 20; i++ {
		raw, tr := s.Compose(model.Like, l, rng, t0.Add(time.Second), "x")
		assert.Equal(t, "bo", raw.ActorID)
		assert.False(t, tr.ActorFallback)
		l.Reset()
		l.Touch(model.Like, "ana", "", t0)
	}
}

func TestCompose_TargetDistinctFromActor(t *testing.T) {
	s := synth.New(testLexicon("ana", "bo", "cy", "dee"), nil, synth.Config{})
	l := cooldown.New(cooldown.Policy{}, cooldown.DefaultRetention())
	rng := newRNG(7)
	for i := 0; i < 200; i++ {
		raw, _ := s.Compose(model.Follow, l, rng, t0, "x")
		require.NotEmpty(t, raw.Payload.Target)
		require.NotEqual(t, raw.ActorID, raw.Payload.Target)
	}
}

func TestCompose_Collectible(t *testing.T) {
	s := synth.New(testLexicon("ana", "bo"), catalog.NewStatic(), synth.DefaultConfig())
	raw, _ := s.Compose(model.Mint, cooldown.NewDefault(), newRNG(8), t0, "x")

	col := raw.Payload.Collectible
	require.NotNil(t, col)
	assert.NotEmpty(t, col.Name)
	assert.True(t, strings.HasPrefix(col.ThumbnailRef, "thumbs/"))
	assert.Contains(t, raw.Payload.Text, col.Name+" #"+col.SerialID)
}

func TestCompose_Challenge(t *testing.T) {
	s := synth.New(testLexicon("ana", "bo"), nil, synth.DefaultConfig())
	raw, _ := s.Compose(model.Challenge, cooldown.NewDefault(), newRNG(9), t0, "x")
	assert.Equal(t, "Flip This Sample", raw.Payload.Challenge)
	assert.Equal(t, "Crate Digger", raw.Payload.Badge)
	assert.Equal(t, raw.ActorID+" entered Flip This Sample", raw.Payload.Text)
}

func TestCompose_MissingTemplatesStillProduceEvent(t *testing.T) {
	s := synth.New(testLexicon("ana", "bo"), nil, synth.DefaultConfig())
	raw, tr := s.Compose(model.Stream, cooldown.NewDefault(), newRNG(10), t0, "x")
	assert.True(t, tr.TemplateFallback)
	assert.Equal(t, raw.ActorID+" stream", raw.Payload.Text)
}

func TestCompose_EmptyActorPool(t *testing.T) {
	s := synth.New(testLexicon(), nil, synth.DefaultConfig())
	raw, _ := s.Compose(model.Follow, cooldown.NewDefault(), newRNG(11), t0, "x")
	assert.Equal(t, "anonymous", raw.ActorID)
}

func TestCompose_Deterministic(t *testing.T) {
	lex := testLexicon("ana", "bo", "cy")
	a, _ := synth.New(lex, nil, synth.DefaultConfig()).Compose(model.Tip, cooldown.NewDefault(), newRNG(12), t0, "s")
	b, _ := synth.New(lex, nil, synth.DefaultConfig()).Compose(model.Tip, cooldown.NewDefault(), newRNG(12), t0, "s")
	assert.Equal(t, a, b)
}

func TestDeriveAvatar(t *testing.T) {
	a := synth.DeriveAvatar("luna park", 7)
	assert.Equal(t, "LP", a.Initials)
	assert.True(t, strings.HasPrefix(a.Color, "#"))
	assert.Equal(t, a, synth.DeriveAvatar("luna park", 7))
	assert.Equal(t, "LF", synth.DeriveAvatar("lo-fi luna", 0).Initials)

	assert.Equal(t, "B", synth.DeriveAvatar("beatsmith", 0).Initials)
	assert.Equal(t, "?", synth.DeriveAvatar("__", 0).Initials)
	assert.Equal(t, "DJ", synth.DeriveAvatar("dj_jazzy_jeff", 0).Initials)
}

func TestSynthesize_MatchesCompose(t *testing.T) {
	lex := testLexicon("ana", "bo")
	a := synth.New(lex, nil, synth.DefaultConfig()).Synthesize(model.Like, cooldown.NewDefault(), newRNG(13), t0, "s")
	b, _ := synth.New(lex, nil, synth.DefaultConfig()).Compose(model.Like, cooldown.NewDefault(), newRNG(13), t0, "s")
	assert.Equal(t, b, a)
}
