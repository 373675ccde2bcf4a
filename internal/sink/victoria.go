package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/galois26/creator-feed/internal/config"
	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/util"
)

const victoriaMetric = "feed_event_count_total"

type victoriaSink struct {
	cfg    config.VictoriaConfig
	client *http.Client
}

func NewVictoria(cfg config.VictoriaConfig) Sink {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	return &victoriaSink{cfg: cfg, client: util.NewHTTPClient(to)}
}

func (v *victoriaSink) Name() string { return "victoria" }

// Push imports one sample of value 1 per event in Prometheus text format.
func (v *victoriaSink) Push(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, e := range events {
		fmt.Fprintf(&buf, "%s{%s} 1 %d\n", victoriaMetric, promLabels(e.Labels), e.TS)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL+"/api/v1/import/prometheus", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if ua := v.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("victoria push failed: %s", resp.Status)
	}
	return nil
}

// promLabels renders labels with deterministic ordering.
func promLabels(lbls map[string]string) string {
	keys := make([]string, 0, len(lbls))
	for k := range lbls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=\"%s\"", k, escape(lbls[k]))
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return r.Replace(s)
}
