// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarkupResolutions counts resolved markups by source and level ("none" when nothing applies).
	MarkupResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_markup_resolutions_total",
		Help: "Markup resolutions by winning source and level.",
	}, []string{"source", "level"})

	HospitalityResolutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overlay_hospitality_resolutions_total",
		Help: "Hospitality resolutions performed.",
	})

	IntegrityErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_integrity_errors_total",
		Help: "Scopes matching more than one active row at one level.",
	}, []string{"kind", "level"})

	RateLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_rate_lookups_total",
		Help: "Exchange rate lookups by outcome: identity, cache_hit, fetched, failed.",
	}, []string{"outcome"})

	RateFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "overlay_rate_fetch_duration_seconds",
		Help:    "Latency of live exchange rate fetches.",
		Buckets: prometheus.DefBuckets,
	})
)
