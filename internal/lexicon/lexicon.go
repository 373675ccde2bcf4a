// Package lexicon holds the immutable pools the synthesizer draws from: actor names,
// templates grouped by category, and substitution vocabularies.
package lexicon

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/galois26/creator-feed/internal/model"
)

// Placeholder is one of the fixed substitution slots a template may contain.
type Placeholder int

const (
	User Placeholder = iota
	Target
	Amount
	Genre
	Adjective
	Software
	Instrument
	CollectibleName
	Serial
	ChallengeName
	Badge
	Count
	Mood
	numPlaceholders
)

var placeholderNames = [numPlaceholders]string{
	User:            "user",
	Target:          "target",
	Amount:          "amount",
	Genre:           "genre",
	Adjective:       "adjective",
	Software:        "software",
	Instrument:      "instrument",
	CollectibleName: "collectible",
	Serial:          "serial",
	ChallengeName:   "challenge",
	Badge:           "badge",
	Count:           "count",
	Mood:            "mood",
}

func (p Placeholder) String() string {
	if p < 0 || p >= numPlaceholders {
		return fmt.Sprintf("placeholder(%d)", int(p))
	}
	return placeholderNames[p]
}

// ParsePlaceholder maps a token name (without braces) to its Placeholder.
func ParsePlaceholder(name string) (Placeholder, bool) {
	for i, n := range placeholderNames {
		if n == name {
			return Placeholder(i), true
		}
	}
	return 0, false
}

// Vocabulary is the set of value pools used to fill non-actor placeholders.
type Vocabulary struct {
	Adjectives  []string
	Genres      []string
	Software    []string
	Instruments []string
	Challenges  []string
	Badges      []string
	Moods       []string
	Amounts     []string
	Counts      []string
}

// Pool returns the value pool backing p, or nil when p is filled from elsewhere
// (actors, catalog).
func (v Vocabulary) Pool(p Placeholder) []string {
	switch p {
	case Adjective:
		return v.Adjectives
	case Genre:
		return v.Genres
	case Software:
		return v.Software
	case Instrument:
		return v.Instruments
	case ChallengeName:
		return v.Challenges
	case Badge:
		return v.Badges
	case Mood:
		return v.Moods
	case Amount:
		return v.Amounts
	case Count:
		return v.Counts
	}
	return nil
}

// Lexicon is read-only after construction.
type Lexicon struct {
	Name      string
	Actors    []string
	Vocab     Vocabulary
	templates map[model.Category][]model.Template
}

// New builds a lexicon, assigning template IDs of the form "<category>#<n>".
func New(name string, actors []string, vocab Vocabulary, texts map[model.Category][]string) *Lexicon {
	l := &Lexicon{
		Name:      name,
		Actors:    actors,
		Vocab:     vocab,
		templates: make(map[model.Category][]model.Template, len(texts)),
	}
	for cat, ts := range texts {
		out := make([]model.Template, 0, len(ts))
		for i, t := range ts {
			out = append(out, model.Template{
				ID:       fmt.Sprintf("%s#%d", cat, i),
				Category: cat,
				Text:     t,
			})
		}
		l.templates[cat] = out
	}
	return l
}

// Templates returns the template set for c. The slice must not be modified.
func (l *Lexicon) Templates(c model.Category) []model.Template {
	return l.templates[c]
}

// Categories lists every category that has templates, sorted.
func (l *Lexicon) Categories() []model.Category {
	out := make([]model.Category, 0, len(l.templates))
	for c := range l.templates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pick draws uniformly from pool. An empty pool yields the zero value.
func Pick[T any](rng *rand.Rand, pool []T) T {
	var zero T
	if len(pool) == 0 {
		return zero
	}
	return pool[rng.IntN(len(pool))]
}
