package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galois26/creator-feed/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9110", c.Server.ListenAddress)
	assert.Equal(t, 25, c.Feed.Capacity)
	assert.Equal(t, 2*time.Second, c.Lanes.Actions.MinInterval)
	assert.Equal(t, 4*time.Second, c.Lanes.Posts.MaxInterval)
	assert.True(t, c.Lanes.Actions.IsEnabled())
	assert.Equal(t, 100, c.Publish.MaxPending)
	assert.True(t, *c.Dedup.Enable)

	p := c.Cooldowns.Policy()
	assert.True(t, p.NoRepeat)
	assert.Equal(t, 30*time.Second, p.Category)
	assert.Equal(t, 2*time.Minute, p.Actor)
	assert.Equal(t, 5*time.Minute, p.Rare[model.Join])

	o := c.EngineOptions()
	assert.Equal(t, 10*time.Minute, o.Synth.Freshness)
	assert.Equal(t, 10, o.Synth.ActorRetries)
	assert.Equal(t, 20*time.Minute, o.Retention.History)
}

func TestLoad_File(t *testing.T) {
	p := writeConfig(t, `
feed:
  capacity: 10
  seed: 7
lanes:
  posts:
    enabled: false
    min_interval: 1s
    max_interval: 1s
cooldowns:
  no_repeat: false
  actor: 30s
  rare:
    join: 1m
    auction: 2m
  actor_retries: 0
sources:
  - url: http://example.invalid/events
    lane: posts
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 10, c.Feed.Capacity)
	assert.False(t, c.Lanes.Posts.IsEnabled())
	assert.Equal(t, time.Second, c.Lanes.Posts.Interval().Max)

	pol := c.Cooldowns.Policy()
	assert.False(t, pol.NoRepeat)
	assert.Equal(t, 30*time.Second, pol.Actor)
	assert.Equal(t, 2*time.Minute, pol.Rare[model.Auction])
	assert.Equal(t, 0, c.Cooldowns.SynthConfig().ActorRetries)

	require.Len(t, c.Sources, 1)
	assert.Equal(t, "http", c.Sources[0].Type)
	assert.Equal(t, "http-0", c.Sources[0].Name)
	assert.Equal(t, 30*time.Second, c.Sources[0].Interval)

	o := c.EngineOptions()
	assert.Equal(t, uint64(7), o.Seed)
	assert.Equal(t, 10, o.Capacity)
}

func TestLoad_Disabled(t *testing.T) {
	c, err := Load(writeConfig(t, "cooldowns:\n  disabled: true\n"))
	require.NoError(t, err)
	p := c.Cooldowns.Policy()
	assert.False(t, p.NoRepeat)
	assert.Zero(t, p.Category)
	assert.Empty(t, p.Rare)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, `
lanes:
  actions:
    min_interval: 5s
    max_interval: 1s
sources:
  - type: ftp
    lane: sideways
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lanes.actions")
	assert.Contains(t, err.Error(), "unknown type")
	assert.Contains(t, err.Error(), "lane must be actions or posts")
	assert.Contains(t, err.Error(), "url is required")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "feed: [unclosed"))
	assert.ErrorContains(t, err, "parse yaml")
}

func TestLoad_Example(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config.example.yml"))
	require.NoError(t, err)
	assert.Equal(t, "economy", c.Post.Maps[0].Mapping["tip"])
	assert.Equal(t, 5*time.Minute, c.Cooldowns.Rare["join"])
}

func TestLoad_NegativeIntervals(t *testing.T) {
	_, err := Load(writeConfig(t, `
publish:
  flush_interval: -1s
sources:
  - url: http://example.invalid/events
    lane: posts
    interval: -5s
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `source "http-0": interval must be positive`)
	assert.Contains(t, err.Error(), "publish.flush_interval must be positive")
}
