package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/galois26/creator-feed/internal/model"
)

// Kind narrows which items a lookup may return.
type Kind string

const (
	KindFresh Kind = "fresh" // freshly minted drops
	KindAny   Kind = "any"
	KindRare  Kind = "rare" // auction grade
)

// KindFor maps a collectible-bearing category to the kind it draws from.
func KindFor(c model.Category) Kind {
	switch c {
	case model.Mint:
		return KindFresh
	case model.Auction:
		return KindRare
	}
	return KindAny
}

// Catalog is the lookup the synthesizer uses for mint/collect/auction events.
type Catalog interface {
	RandomCollectible(rng *rand.Rand, kind Kind) model.Collectible
}

type item struct {
	name   string
	slug   string
	rare   bool
	fresh  bool
	supply int
}

// Static is an in-memory catalog. Serials are drawn from 1..supply.
type Static struct {
	items []item
}

func NewStatic() *Static {
	return &Static{items: []item{
		{name: "Midnight Rhodes Pack", slug: "midnight-rhodes", fresh: true, supply: 250},
		{name: "Dusty Breaks Vol. 2", slug: "dusty-breaks-2", supply: 500},
		{name: "Golden 808", slug: "golden-808", rare: true, supply: 10},
		{name: "Tape Saturation Stems", slug: "tape-stems", fresh: true, supply: 100},
		{name: "First Pressing Vinyl Art", slug: "first-pressing", rare: true, supply: 25},
		{name: "Neon Choir Samples", slug: "neon-choir", supply: 300},
		{name: "Analog Dreams Cover", slug: "analog-dreams", fresh: true, supply: 150},
		{name: "Platinum Hook Sheet", slug: "platinum-hook", rare: true, supply: 5},
	}}
}

// RandomCollectible never fails: if no item matches kind it draws from the whole table.
func (s *Static) RandomCollectible(rng *rand.Rand, kind Kind) model.Collectible {
	pool := make([]item, 0, len(s.items))
	for _, it := range s.items {
		switch {
		case kind == KindAny,
			kind == KindRare && it.rare,
			kind == KindFresh && it.fresh:
			pool = append(pool, it)
		}
	}
	if len(pool) == 0 {
		pool = s.items
	}
	if len(pool) == 0 {
		return model.Collectible{}
	}
	it := pool[rng.IntN(len(pool))]
	serial := 1
	if it.supply > 1 {
		serial = 1 + rng.IntN(it.supply)
	}
	return model.Collectible{
		Name:         it.name,
		SerialID:     fmt.Sprintf("%d", serial),
		ThumbnailRef: "thumbs/" + it.slug + ".png",
	}
}
