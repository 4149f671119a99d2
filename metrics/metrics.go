package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsActive tracks the number of active viewer sessions
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tuner_sessions_active",
		Help: "Number of active viewer sessions",
	})

	// RelayRequests tracks relay requests by outcome
	RelayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuner_relay_requests_total",
		Help: "Total number of stream relay requests",
	}, []string{"outcome"})

	// UpstreamErrors tracks upstream fetch errors by source
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuner_upstream_errors_total",
		Help: "Total number of upstream fetch errors",
	}, []string{"source"})

	// CacheHits tracks cache hits by cache name
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuner_cache_hits_total",
		Help: "Total number of cache hits",
	}, []string{"cache"})

	// CacheMisses tracks cache misses by cache name
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuner_cache_misses_total",
		Help: "Total number of cache misses",
	}, []string{"cache"})

	// DirectoryRebuilds tracks completed channel directory rebuilds
	DirectoryRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuner_directory_rebuilds_total",
		Help: "Total number of completed channel directory rebuilds",
	})

	// DirectoryChannels tracks the size of the current directory snapshot
	DirectoryChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tuner_directory_channels",
		Help: "Number of channels in the current directory snapshot",
	})

	// GuideMerges tracks guide merges by result
	GuideMerges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuner_guide_merges_total",
		Help: "Total number of guide merge runs",
	}, []string{"result"})
)

// RecordCacheHit increments the hit counter for a named cache
func RecordCacheHit(cache string) {
	CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss increments the miss counter for a named cache
func RecordCacheMiss(cache string) {
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordRelayRequest increments the relay request counter for an outcome.
// Outcome is one of: "ok", "not_found", "bad_method", "upstream_error"
func RecordRelayRequest(outcome string) {
	RelayRequests.WithLabelValues(outcome).Inc()
}

// RecordUpstreamError increments the upstream error counter for a source
func RecordUpstreamError(source string) {
	UpstreamErrors.WithLabelValues(source).Inc()
}

// RecordDirectoryRebuild records a completed rebuild and the new snapshot size
func RecordDirectoryRebuild(channels int) {
	DirectoryRebuilds.Inc()
	DirectoryChannels.Set(float64(channels))
}

// RecordGuideMerge increments the guide merge counter.
// Result is "ok" or "failed"
func RecordGuideMerge(result string) {
	GuideMerges.WithLabelValues(result).Inc()
}
