package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess         = "success"
	outcomeHTTPError       = "http_error"
	outcomeTransportError  = "transport_error"
	outcomeInvalidResponse = "invalid_response"
)

var (
	attackRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attacklens",
		Name:      "attack_requests_total",
		Help:      "Calls to the attack service by outcome.",
	}, []string{"outcome"})

	attackLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attacklens",
		Name:      "attack_request_duration_seconds",
		Help:      "Round-trip time of calls to the attack service.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attacklens",
		Name:      "cache_lookups_total",
		Help:      "Attack result cache lookups by result.",
	}, []string{"result"})
)
