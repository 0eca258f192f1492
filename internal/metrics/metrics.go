package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlacementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_placements_total",
		Help: "The total number of successful placements",
	})
	FreePlacementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_free_placements_total",
		Help: "The total number of placements exempted from charge",
	})
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_rate_limited_total",
		Help: "The total number of placement attempts rejected by the rate limiter",
	})
	InsufficientFundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_insufficient_funds_total",
		Help: "The total number of placement attempts rejected for lack of credits",
	})
	ConflictRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_conflict_retries_total",
		Help: "The total number of placement transactions retried after a write conflict",
	})
	EpochRolloversTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_epoch_rollovers_total",
		Help: "The total number of weekly epoch resets",
	})
	CapLoweredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_cap_lowered_total",
		Help: "The total number of times the global price cap was lowered",
	})
	CurrentCap = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_current_cap_credits",
		Help: "The active global price cap in credits",
	})
	PlacementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "canvas_placement_latency_seconds",
		Help:    "Latency of the full placement transaction including retries",
		Buckets: prometheus.DefBuckets,
	})
)
