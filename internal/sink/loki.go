package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/galois26/creator-feed/internal/config"
	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/util"
)

type lokiSink struct {
	cfg    config.LokiConfig
	client *http.Client
}

func NewLoki(cfg config.LokiConfig) Sink {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	return &lokiSink{cfg: cfg, client: util.NewHTTPClient(to)}
}

func (l *lokiSink) Name() string { return "loki" }

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// Push sends one stream per event; the log line is the event as JSON.
func (l *lokiSink) Push(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	payload := struct {
		Streams []lokiStream `json:"streams"`
	}{}
	for _, e := range events {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.UID, err)
		}
		lbls := map[string]string{"job": l.cfg.Job}
		for k, v := range e.Labels {
			lbls[k] = v
		}
		// Loki expects ns timestamp as a decimal string
		ts := time.UnixMilli(e.TS).UnixNano()
		payload.Streams = append(payload.Streams, lokiStream{
			Stream: lbls,
			Values: [][2]string{{strconv.FormatInt(ts, 10), string(line)}},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL+"/loki/api/v1/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", l.cfg.TenantID)
	}
	if ua := l.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("loki push failed http %d", resp.StatusCode)
	}
	return nil
}
