// Package engine wires the synthetic feed pipeline into lanes and drives them.
package engine

import (
	"log/slog"
	"time"

	"github.com/galois26/creator-feed/internal/catalog"
	"github.com/galois26/creator-feed/internal/cooldown"
	"github.com/galois26/creator-feed/internal/feed"
	"github.com/galois26/creator-feed/internal/lexicon"
	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/selector"
	"github.com/galois26/creator-feed/internal/synth"
)

const (
	LaneActions = "actions"
	LanePosts   = "posts"
)

// ActionWeights is the base weight table of the site-actions lane.
var ActionWeights = []selector.Weight{
	{Category: model.Like, Base: 15},
	{Category: model.Comment, Base: 12},
	{Category: model.Follow, Base: 10},
	{Category: model.Tip, Base: 6},
	{Category: model.Supporter, Base: 4},
	{Category: model.Collab, Base: 5},
	{Category: model.Mint, Base: 4},
	{Category: model.Collect, Base: 5},
	{Category: model.Auction, Base: 3},
	{Category: model.Challenge, Base: 4},
	{Category: model.Stream, Base: 3},
	{Category: model.Join, Base: 1},
	{Category: model.Chalkboard, Base: 4},
}

var ActionFallback = []model.Category{model.Like, model.Comment}

// PostWeights is the base weight table of the community-posts lane.
var PostWeights = []selector.Weight{
	{Category: model.Track, Base: 10},
	{Category: model.Lyric, Base: 8},
	{Category: model.Question, Base: 6},
	{Category: model.Showcase, Base: 6},
	{Category: model.Feedback, Base: 5},
	{Category: model.Milestone, Base: 3},
}

var PostFallback = []model.Category{model.Track, model.Lyric}

// Options configures both lanes of an Engine.
type Options struct {
	Policy    cooldown.Policy
	Retention cooldown.Retention
	Synth     synth.Config
	Capacity  int
	Seed      uint64 // posts lane uses Seed+1 when non-zero
	Now       func() time.Time
	Catalog   catalog.Catalog
	Observer  Observer
	Logger    *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Policy:    cooldown.DefaultPolicy(),
		Retention: cooldown.DefaultRetention(),
		Synth:     synth.DefaultConfig(),
		Capacity:  feed.DefaultCapacity,
	}
}

// Engine holds the actions and posts lanes.
type Engine struct {
	Actions *Lane
	Posts   *Lane
}

func New(o Options) *Engine {
	cat := o.Catalog
	if cat == nil {
		cat = catalog.NewStatic()
	}
	var opts []LaneOption
	if o.Observer != nil {
		opts = append(opts, WithObserver(o.Observer))
	}
	if o.Logger != nil {
		opts = append(opts, WithLogger(o.Logger))
	}
	postSeed := o.Seed
	if postSeed != 0 {
		postSeed++
	}
	return &Engine{
		Actions: NewLane(LaneConfig{
			Name:      LaneActions,
			Weights:   ActionWeights,
			Fallback:  ActionFallback,
			Lexicon:   lexicon.Actions(),
			Catalog:   cat,
			Policy:    o.Policy,
			Retention: o.Retention,
			Synth:     o.Synth,
			Capacity:  o.Capacity,
			Seed:      o.Seed,
			Now:       o.Now,
		}, opts...),
		Posts: NewLane(LaneConfig{
			Name:      LanePosts,
			Weights:   PostWeights,
			Fallback:  PostFallback,
			Lexicon:   lexicon.Posts(),
			Catalog:   cat,
			Policy:    o.Policy,
			Retention: o.Retention,
			Synth:     o.Synth,
			Capacity:  o.Capacity,
			Seed:      postSeed,
			Now:       o.Now,
		}, opts...),
	}
}

// GenerateAction runs one cycle of the actions lane.
func (e *Engine) GenerateAction(id string) model.Event { return e.Actions.Generate(id) }

// GeneratePost runs one cycle of the posts lane.
func (e *Engine) GeneratePost(id string) model.Event { return e.Posts.Generate(id) }

// Lane looks a lane up by name.
func (e *Engine) Lane(name string) (*Lane, bool) {
	switch name {
	case LaneActions:
		return e.Actions, true
	case LanePosts:
		return e.Posts, true
	}
	return nil, false
}

func (e *Engine) Lanes() []*Lane { return []*Lane{e.Actions, e.Posts} }

// MergeIntoFeed is UpsertPrepend for callers that keep their own buffer.
func MergeIntoFeed(existing []model.Event, ev model.Event, capacity int) []model.Event {
	return feed.UpsertPrepend(existing, capacity, ev)
}
