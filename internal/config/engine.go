package config

import (
	"time"

	"github.com/galois26/creator-feed/internal/cooldown"
	"github.com/galois26/creator-feed/internal/engine"
	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/synth"
)

// Policy converts the cooldown section. Disabled yields the zero policy.
func (c CooldownConfig) Policy() cooldown.Policy {
	if c.Disabled {
		return cooldown.Policy{}
	}
	p := cooldown.Policy{
		NoRepeat: c.NoRepeat == nil || *c.NoRepeat,
		Category: c.Category,
		Actor:    c.Actor,
		Rare:     make(map[model.Category]time.Duration, len(c.Rare)),
	}
	for k, d := range c.Rare {
		p.Rare[model.Category(k)] = d
	}
	return p
}

func (c CooldownConfig) RetentionWindows() cooldown.Retention {
	return cooldown.Retention{
		History:  c.Retention.History,
		Category: c.Retention.Category,
		Actor:    c.Retention.Actor,
	}
}

func (c CooldownConfig) SynthConfig() synth.Config {
	sc := synth.DefaultConfig()
	sc.Freshness = c.TemplateFresh
	if c.ActorRetries != nil {
		sc.ActorRetries = *c.ActorRetries
	}
	return sc
}

// EngineOptions builds engine options from the feed and cooldown sections.
func (c *Config) EngineOptions() engine.Options {
	o := engine.DefaultOptions()
	o.Policy = c.Cooldowns.Policy()
	o.Retention = c.Cooldowns.RetentionWindows()
	o.Synth = c.Cooldowns.SynthConfig()
	o.Capacity = c.Feed.Capacity
	o.Seed = c.Feed.Seed
	return o
}

// Interval returns the runner interval for a lane section.
func (l LaneConfig) Interval() engine.Interval {
	return engine.Interval{Min: l.MinInterval, Max: l.MaxInterval}
}
