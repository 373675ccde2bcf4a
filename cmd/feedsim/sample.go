package main

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/galois26/creator-feed/internal/cooldown"
	"github.com/galois26/creator-feed/internal/engine"
)

// simClock advances only when told to, so sample runs exercise cooldowns in
// milliseconds of wall time.
type simClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *simClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newSampleCmd() *cobra.Command {
	var (
		laneName    string
		count       int
		seed        uint64
		capacity    int
		noCooldowns bool
		showFeed    bool
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate events offline on a simulated clock and print them as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if count < 0 {
				return fmt.Errorf("--count must be >= 0")
			}

			start := time.Now()
			if seed != 0 {
				start = time.UnixMilli(1_700_000_000_000).UTC()
			}
			clk := &simClock{t: start}

			opts := cfg.EngineOptions()
			opts.Now = clk.Now
			opts.Logger = logger
			if seed != 0 {
				opts.Seed = seed
			}
			if capacity > 0 {
				opts.Capacity = capacity
			}
			if noCooldowns {
				opts.Policy = cooldown.Policy{}
			}
			eng := engine.New(opts)
			lane, ok := eng.Lane(laneName)
			if !ok {
				return fmt.Errorf("unknown lane %q (want %s or %s)", laneName, engine.LaneActions, engine.LanePosts)
			}
			iv := cfg.Lanes.Actions.Interval()
			if lane == eng.Posts {
				iv = cfg.Lanes.Posts.Interval()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i := 1; i <= count; i++ {
				ev := lane.Generate(fmt.Sprintf("%s-%d", lane.Name(), i))
				if err := enc.Encode(ev); err != nil {
					return err
				}
				clk.Advance(lane.NextDelay(iv.Min, iv.Max))
			}
			if showFeed {
				out := json.NewEncoder(cmd.OutOrStdout())
				out.SetIndent("", "  ")
				return out.Encode(lane.Snapshot())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&laneName, "lane", engine.LaneActions, "Lane to sample: actions|posts.")
	cmd.Flags().IntVar(&count, "count", 20, "Number of events to generate.")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed; non-zero makes output reproducible.")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "Feed capacity (defaults to config).")
	cmd.Flags().BoolVar(&noCooldowns, "no-cooldowns", false, "Disable every cooldown rule.")
	cmd.Flags().BoolVar(&showFeed, "feed", true, "Print the final feed snapshot after the events.")
	return cmd
}
