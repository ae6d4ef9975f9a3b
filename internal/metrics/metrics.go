// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pesquisa_submissions_total",
			Help: "Submit attempts by final outcome.",
		}, []string{"result"})

	DeliverySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pesquisa_delivery_seconds",
			Help:    "Time spent in the delivery strategy.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"})

	TokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pesquisa_token_refresh_total",
			Help: "Access-token refresh attempts by outcome.",
		}, []string{"outcome"})

	ActiveRespondents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pesquisa_active_respondents",
			Help: "Respondent form sessions currently held in memory.",
		})

	RespondentEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pesquisa_respondent_evict_total",
			Help: "Cumulative number of respondent sessions evicted.",
		})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		DeliverySeconds,
		TokenRefreshTotal,
		ActiveRespondents,
		RespondentEvictTotal,
	)
}
