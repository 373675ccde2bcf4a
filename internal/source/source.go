package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/galois26/creator-feed/internal/config"
	"github.com/galois26/creator-feed/internal/engine"
	"github.com/galois26/creator-feed/internal/model"
)

// Source delivers externally produced raw events. Re-delivered events are expected;
// the lane absorbs them through uid dedup.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.RawEvent, error)
}

func NewFromConfig(c config.SourceConfig) (Source, error) {
	switch c.Type {
	case "http", "":
		return NewHTTPSource(c), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.Type)
	}
}

// FetchObserver is told about every fetch.
type FetchObserver interface {
	ObserveFetch(source string, err error)
}

// Poll fetches from src every interval and ingests the result into lane until ctx
// is done. The first fetch happens immediately.
func Poll(ctx context.Context, src Source, lane *engine.Lane, interval time.Duration, obs FetchObserver, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	lg := logger.With("source", src.Name(), "lane", lane.Name())
	runOnce := func() {
		raws, err := src.Fetch(ctx)
		if obs != nil {
			obs.ObserveFetch(src.Name(), err)
		}
		if err != nil {
			if ctx.Err() == nil {
				lg.Warn("fetch failed", "err", err)
			}
			return
		}
		fresh := lane.Ingest(raws...)
		lg.Debug("ingested", "fetched", len(raws), "fresh", len(fresh))
	}

	runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
