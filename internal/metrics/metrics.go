// Package metrics is the in-process counter/gauge registry backing the
// admin surface's "get cache statistics" and "get error stats"
// operations. It is read back into plain structs and marshalled as JSON
// by the API layer rather than exposed as a Prometheus scrape endpoint,
// since the service's API surface is JSON-only.
package metrics

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every counter the service updates as it runs.
type Registry struct {
	DomainCacheHits   prometheus.Counter
	DomainCacheMisses prometheus.Counter

	AnalyserSourceFailures *prometheus.CounterVec
	APIErrors              *prometheus.CounterVec

	registry *prometheus.Registry
}

// New constructs and registers every metric against a fresh, private
// Prometheus registry (not the global default one, so tests can build
// isolated registries without collisions).
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		DomainCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trustscore_domain_cache_hits_total",
			Help: "Domain cache lookups that found a valid entry.",
		}),
		DomainCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trustscore_domain_cache_misses_total",
			Help: "Domain cache lookups that found no valid entry.",
		}),
		AnalyserSourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trustscore_domain_analysis_source_failures_total",
			Help: "Domain analyser external source failures, by source.",
		}, []string{"source"}),
		APIErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trustscore_api_errors_total",
			Help: "API requests that resulted in an error envelope, by kind.",
		}, []string{"kind"}),
		registry: reg,
	}

	reg.MustRegister(r.DomainCacheHits, r.DomainCacheMisses, r.AnalyserSourceFailures, r.APIErrors)
	return r
}

// CacheStats is the admin surface's "get cache statistics" payload.
type CacheStats struct {
	DomainCacheHits   int64 `json:"domain_cache_hits"`
	DomainCacheMisses int64 `json:"domain_cache_misses"`
}

// CacheStats reads the current counter values.
func (r *Registry) CacheStats() CacheStats {
	return CacheStats{
		DomainCacheHits:   counterValue(r.DomainCacheHits),
		DomainCacheMisses: counterValue(r.DomainCacheMisses),
	}
}

// ErrorStats is the admin surface's "get error stats" payload, keyed by
// error kind.
type ErrorStats struct {
	ByKind map[string]int64 `json:"by_kind"`
}

// ErrorStats reads the current per-kind API error counts.
func (r *Registry) ErrorStats() ErrorStats {
	out := ErrorStats{ByKind: map[string]int64{}}
	metricCh := make(chan prometheus.Metric)
	go func() {
		r.APIErrors.Collect(metricCh)
		close(metricCh)
	}()
	for m := range metricCh {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			continue
		}
		kind := labelValue(pb.GetLabel(), "kind")
		out.ByKind[kind] = int64(pb.GetCounter().GetValue())
	}
	return out
}

func counterValue(c prometheus.Counter) int64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return int64(pb.GetCounter().GetValue())
}

func labelValue(labels []*dto.LabelPair, name string) string {
	for _, l := range labels {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
