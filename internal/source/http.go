package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/galois26/creator-feed/internal/config"
	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/util"
)

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

type httpSource struct {
	cfg     config.SourceConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource polls a URL returning raw events as a JSON array or as
// {"events": [...]}.
func NewHTTPSource(cfg config.SourceConfig) Source {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &httpSource{
		cfg:     cfg,
		client:  util.NewHTTPClient(to),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (h *httpSource) Name() string {
	if h.cfg.Name != "" {
		return h.cfg.Name
	}
	return "http"
}

func (h *httpSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	var out []model.RawEvent
	err := util.Retry(ctx, h.cfg.MaxRetries, h.cfg.Backoff, h.cfg.MaxBackoff, func() error {
		if err := h.limiter.Wait(ctx); err != nil {
			return err
		}
		evs, err := h.fetchOnce(ctx)
		if err != nil {
			return err
		}
		out = evs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.Name(), err)
	}
	return out, nil
}

func (h *httpSource) fetchOnce(ctx context.Context) ([]model.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.URL, nil)
	if err != nil {
		return nil, &util.PermanentError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if ua := h.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode/100 == 2:
	case resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests:
		return nil, &util.PermanentError{Err: fmt.Errorf("http %d", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	evs, err := decodeRaw(body)
	if err != nil {
		return nil, &util.PermanentError{Err: err}
	}
	return evs, nil
}

func decodeRaw(body []byte) ([]model.RawEvent, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var evs []model.RawEvent
		if err := json.Unmarshal(body, &evs); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		return evs, nil
	}
	var wrapped struct {
		Events []model.RawEvent `json:"events"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return wrapped.Events, nil
}
