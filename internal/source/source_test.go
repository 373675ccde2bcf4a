package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galois26/creator-feed/internal/config"
	"github.com/galois26/creator-feed/internal/engine"
	"github.com/galois26/creator-feed/internal/model"
)

func testConfig(url string) config.SourceConfig {
	return config.SourceConfig{
		Name:          "upstream",
		Lane:          engine.LanePosts,
		URL:           url,
		Timeout:       time.Second,
		RatePerSecond: 1000,
		Burst:         10,
		MaxRetries:    3,
		Backoff:       time.Millisecond,
		MaxBackoff:    2 * time.Millisecond,
	}
}

func serve(status int, body string, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestHTTPSource_Array(t *testing.T) {
	var calls int32
	srv := serve(http.StatusOK, `[{"type":"track","id":"p1","ts":1000,"payload":{"text":"new beat","slug":"new-beat"}}]`, &calls)
	defer srv.Close()

	evs, err := NewHTTPSource(testConfig(srv.URL)).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "track", evs[0].Type)
	assert.Equal(t, int64(1000), evs[0].TS)
	assert.Equal(t, "new-beat", evs[0].Payload.Slug)
}

func TestHTTPSource_Wrapped(t *testing.T) {
	var calls int32
	srv := serve(http.StatusOK, `{"events":[{"type":"lyric"},{"type":"question"}]}`, &calls)
	defer srv.Close()

	evs, err := NewHTTPSource(testConfig(srv.URL)).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, evs, 2)
}

func TestHTTPSource_EmptyBody(t *testing.T) {
	var calls int32
	srv := serve(http.StatusOK, "", &calls)
	defer srv.Close()

	evs, err := NewHTTPSource(testConfig(srv.URL)).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestHTTPSource_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := serve(http.StatusNotFound, "", &calls)
	defer srv.Close()

	_, err := NewHTTPSource(testConfig(srv.URL)).Fetch(context.Background())
	assert.ErrorContains(t, err, "http 404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPSource_ServerErrorRetried(t *testing.T) {
	var calls int32
	srv := serve(http.StatusServiceUnavailable, "", &calls)
	defer srv.Close()

	_, err := NewHTTPSource(testConfig(srv.URL)).Fetch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPSource_BadJSON(t *testing.T) {
	var calls int32
	srv := serve(http.StatusOK, `{"events": nope}`, &calls)
	defer srv.Close()

	_, err := NewHTTPSource(testConfig(srv.URL)).Fetch(context.Background())
	assert.ErrorContains(t, err, "decode events")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewFromConfig(t *testing.T) {
	s, err := NewFromConfig(config.SourceConfig{Type: "http", Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", s.Name())

	_, err = NewFromConfig(config.SourceConfig{Type: "kafka"})
	assert.Error(t, err)
}

type staticSource struct{ raws []model.RawEvent }

func (s staticSource) Name() string { return "static" }

func (s staticSource) Fetch(context.Context) ([]model.RawEvent, error) { return s.raws, nil }

type fetchCounter struct{ n atomic.Int32 }

func (f *fetchCounter) ObserveFetch(string, error) { f.n.Add(1) }

func TestPoll_IngestsAndDedups(t *testing.T) {
	eng := engine.New(engine.DefaultOptions())
	src := staticSource{raws: []model.RawEvent{
		{Type: "track", ID: "p1", TS: 2000, Payload: model.Payload{Slug: "a"}},
		{Type: "lyric", ID: "p2", TS: 1000, Payload: model.Payload{Slug: "b"}},
	}}
	obs := &fetchCounter{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	Poll(ctx, src, eng.Posts, 5*time.Millisecond, obs, nil)

	snap := eng.Posts.Snapshot()
	require.Len(t, snap, 2, "repeated deliveries collapse")
	assert.Equal(t, "track:p1:2000:a", snap[0].UID)
	assert.Greater(t, obs.n.Load(), int32(1))
}
