// Package synth turns a chosen category into a rendered raw event.
package synth

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"

	"github.com/galois26/creator-feed/internal/catalog"
	"github.com/galois26/creator-feed/internal/cooldown"
	"github.com/galois26/creator-feed/internal/lexicon"
	"github.com/galois26/creator-feed/internal/model"
)

const anonymous = "anonymous"

var palette = []string{
	"#f97316", "#eab308", "#22c55e", "#14b8a6", "#0ea5e9",
	"#6366f1", "#a855f7", "#ec4899", "#ef4444", "#84cc16",
}

type Config struct {
	Freshness    time.Duration // templates used within this window are avoided
	ActorRetries int           // resamples before an ineligible actor is accepted
}

func DefaultConfig() Config {
	return Config{Freshness: 10 * time.Minute, ActorRetries: 10}
}

// Trace records which escape hatches a Compose call went through.
type Trace struct {
	TemplateFallback bool // every template was recently used
	ActorResamples   int
	ActorFallback    bool // retries ran out; last draw accepted
}

type Synthesizer struct {
	lex     *lexicon.Lexicon
	catalog catalog.Catalog
	cfg     Config
}

func New(lex *lexicon.Lexicon, cat catalog.Catalog, cfg Config) *Synthesizer {
	if cfg.ActorRetries < 0 {
		cfg.ActorRetries = 0
	}
	return &Synthesizer{lex: lex, catalog: cat, cfg: cfg}
}

// Synthesize is Compose without the trace.
func (s *Synthesizer) Synthesize(c model.Category, l *cooldown.Ledger, rng *rand.Rand, now time.Time, seed string) model.RawEvent {
	raw, _ := s.Compose(c, l, rng, now, seed)
	return raw
}

// Compose picks a template and actors for c, expands the template and touches the
// ledger. It always returns a usable event.
func (s *Synthesizer) Compose(c model.Category, l *cooldown.Ledger, rng *rand.Rand, now time.Time, seed string) (model.RawEvent, Trace) {
	var tr Trace

	tpl, fallback := s.chooseTemplate(c, l, rng, now)
	tr.TemplateFallback = fallback

	actor, resamples, accepted := s.chooseActor(c, l, rng, now)
	tr.ActorResamples = resamples
	tr.ActorFallback = accepted

	vals := map[lexicon.Placeholder]string{lexicon.User: actor}
	payload := model.Payload{
		Actor:  actor,
		Avatar: ptr(DeriveAvatar(actor, rng.Uint32())),
	}

	used := Placeholders(tpl.Text)
	wants := func(p lexicon.Placeholder) bool {
		for _, u := range used {
			if u == p {
				return true
			}
		}
		return false
	}

	if c.HasTarget() || wants(lexicon.Target) {
		payload.Target = s.distinctActor(rng, actor)
		vals[lexicon.Target] = payload.Target
	}
	if (c.HasCollectible() || wants(lexicon.CollectibleName) || wants(lexicon.Serial)) && s.catalog != nil {
		col := s.catalog.RandomCollectible(rng, catalog.KindFor(c))
		payload.Collectible = &col
		vals[lexicon.CollectibleName] = col.Name
		vals[lexicon.Serial] = col.SerialID
	}
	if c == model.Challenge || wants(lexicon.ChallengeName) || wants(lexicon.Badge) {
		payload.Challenge = lexicon.Pick(rng, s.lex.Vocab.Challenges)
		payload.Badge = lexicon.Pick(rng, s.lex.Vocab.Badges)
		vals[lexicon.ChallengeName] = payload.Challenge
		vals[lexicon.Badge] = payload.Badge
	}
	for _, p := range used {
		if _, ok := vals[p]; ok {
			continue
		}
		if pool := s.lex.Vocab.Pool(p); len(pool) > 0 {
			vals[p] = lexicon.Pick(rng, pool)
		}
	}
	if v, ok := vals[lexicon.Amount]; ok {
		payload.Amount = v
	}

	payload.Text = Expand(tpl.Text, vals)
	payload.Hash = fingerprint(seed, c, payload.Text)

	l.Touch(c, actor, tpl.Text, now)

	return model.RawEvent{
		Type:       string(c),
		ActorID:    actor,
		TemplateID: tpl.ID,
		Payload:    payload,
	}, tr
}

// chooseTemplate prefers templates absent from the recent history. If all are
// recent it falls back to an unfiltered draw.
func (s *Synthesizer) chooseTemplate(c model.Category, l *cooldown.Ledger, rng *rand.Rand, now time.Time) (model.Template, bool) {
	all := s.lex.Templates(c)
	if len(all) == 0 {
		return model.Template{ID: string(c) + "#default", Category: c, Text: "{user} " + string(c)}, true
	}
	fresh := make([]model.Template, 0, len(all))
	for _, t := range all {
		if !l.RecentlyUsed(t.Text, s.cfg.Freshness, now) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) > 0 {
		return lexicon.Pick(rng, fresh), false
	}
	return lexicon.Pick(rng, all), true
}

// chooseActor draws an actor and resamples at most ActorRetries times while the
// (actor, category) pair is cooling down. When retries run out the last draw is
// accepted as is.
func (s *Synthesizer) chooseActor(c model.Category, l *cooldown.Ledger, rng *rand.Rand, now time.Time) (actor string, resamples int, accepted bool) {
	if len(s.lex.Actors) == 0 {
		return anonymous, 0, false
	}
	actor = lexicon.Pick(rng, s.lex.Actors)
	for resamples < s.cfg.ActorRetries && !l.IsActorEligible(actor, c, now) {
		actor = lexicon.Pick(rng, s.lex.Actors)
		resamples++
	}
	if !l.IsActorEligible(actor, c, now) {
		return actor, resamples, true
	}
	return actor, resamples, false
}

// distinctActor draws an actor other than not. A single-actor pool returns that actor.
func (s *Synthesizer) distinctActor(rng *rand.Rand, not string) string {
	pool := s.lex.Actors
	switch len(pool) {
	case 0:
		return anonymous
	case 1:
		return pool[0]
	}
	idx := rng.IntN(len(pool))
	if pool[idx] != not {
		return pool[idx]
	}
	return pool[(idx+1+rng.IntN(len(pool)-1))%len(pool)]
}

// DeriveAvatar computes initials and a palette colour from name and seed.
func DeriveAvatar(name string, seed uint32) model.Avatar {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return model.Avatar{
		Initials: initials(name),
		Color:    palette[(h.Sum32()+seed)%uint32(len(palette))],
	}
}

func initials(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]rune, 0, 2)
	for _, p := range parts {
		out = append(out, unicode.ToUpper([]rune(p)[0]))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

func fingerprint(seed string, c model.Category, text string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", seed, c, text)
	return fmt.Sprintf("%016x", h.Sum64())
}

func ptr[T any](v T) *T { return &v }
