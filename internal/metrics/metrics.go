package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/galois26/creator-feed/internal/model"
	"github.com/galois26/creator-feed/internal/selector"
	"github.com/galois26/creator-feed/internal/synth"
)

// Metrics holds every collector the service exports. It satisfies engine.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	generated   *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	resamples   *prometheus.CounterVec
	genDuration *prometheus.SummaryVec
	offered     *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
	feedSize    *prometheus.GaugeVec
	pushes      *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	wsClients   *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry, so tests can build as many as they like.
func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}
	m.generated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Name:      "events_generated_total",
		Help:      "Synthetic events generated by lane and category",
	}, []string{"lane", "category"})
	m.fallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Name:      "fallbacks_total",
		Help:      "Generation cycles that took a fallback branch, by kind (category|template|actor)",
	}, []string{"lane", "kind"})
	m.resamples = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Name:      "actor_resamples_total",
		Help:      "Actor redraws caused by per-actor cooldowns",
	}, []string{"lane"})
	m.genDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "feed",
		Name:      "generation_duration_seconds",
		Help:      "Time spent in one generation cycle",
	}, []string{"lane"})
	m.offered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Name:      "events_offered_total",
		Help:      "Events offered to a lane buffer",
	}, []string{"lane"})
	m.duplicates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Name:      "duplicates_total",
		Help:      "Offered events absorbed because their uid was already present",
	}, []string{"lane"})
	m.feedSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "feed",
		Name:      "buffer_size",
		Help:      "Current number of events in a lane buffer",
	}, []string{"lane"})
	m.pushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Name:      "sink_pushes_total",
		Help:      "Sink push attempts by sink and status",
	}, []string{"sink", "status"})
	m.fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Name:      "source_fetches_total",
		Help:      "External source fetches by source and status",
	}, []string{"source", "status"})
	m.wsClients = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "feed",
		Name:      "websocket_clients",
		Help:      "Connected websocket subscribers by lane",
	}, []string{"lane"})

	m.Registry.MustRegister(
		m.generated, m.fallbacks, m.resamples, m.genDuration,
		m.offered, m.duplicates, m.feedSize,
		m.pushes, m.fetches, m.wsClients,
	)
	return m
}

func (m *Metrics) ObserveGeneration(lane string, c model.Category, choice selector.Choice, tr synth.Trace, took time.Duration) {
	m.generated.WithLabelValues(lane, string(c)).Inc()
	if choice.Fallback {
		m.fallbacks.WithLabelValues(lane, "category").Inc()
	}
	if tr.TemplateFallback {
		m.fallbacks.WithLabelValues(lane, "template").Inc()
	}
	if tr.ActorFallback {
		m.fallbacks.WithLabelValues(lane, "actor").Inc()
	}
	if tr.ActorResamples > 0 {
		m.resamples.WithLabelValues(lane).Add(float64(tr.ActorResamples))
	}
	m.genDuration.WithLabelValues(lane).Observe(took.Seconds())
}

func (m *Metrics) ObserveMerge(lane string, offered, fresh, size int) {
	m.offered.WithLabelValues(lane).Add(float64(offered))
	if d := offered - fresh; d > 0 {
		m.duplicates.WithLabelValues(lane).Add(float64(d))
	}
	m.feedSize.WithLabelValues(lane).Set(float64(size))
}

func (m *Metrics) ObservePush(sink string, err error) {
	m.pushes.WithLabelValues(sink, status(err)).Inc()
}

func (m *Metrics) ObserveFetch(source string, err error) {
	m.fetches.WithLabelValues(source, status(err)).Inc()
}

func (m *Metrics) SetClients(lane string, n int) {
	m.wsClients.WithLabelValues(lane).Set(float64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
