package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds
var latencyBuckets = []float64{
	5, 10, 25,
	50, 100, 250,
	500, 1000, 2500,
	5000, 10000, 30000,
}

// Metrics owns its registry so every server instance (and every test) gets
// an independent set of collectors.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal *prometheus.CounterVec
	Fallbacks     *prometheus.CounterVec
	StreamChunks  prometheus.Counter
	StageLatency  *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragchain_requests_total",
				Help: "Total number of query requests by response status",
			},
			[]string{"status"},
		),
		Fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragchain_fallbacks_total",
				Help: "Pipeline values replaced by a default",
			},
			[]string{"stage", "reason"},
		),
		StreamChunks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ragchain_stream_chunks_total",
				Help: "Generated fragments relayed to clients",
			},
		),
		StageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragchain_stage_latency_ms",
				Help:    "Pipeline stage latency in milliseconds",
				Buckets: latencyBuckets,
			},
			[]string{"stage"},
		),
	}
}
