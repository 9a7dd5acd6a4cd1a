// Package metrics exposes Prometheus collectors for the panel.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LoginAttempts counts check_password calls by result (success, failure, limited, error).
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arclight",
		Name:      "login_attempts_total",
		Help:      "Password checks by result.",
	}, []string{"result"})

	// GameLaunches counts start_game calls by result (started, not_found, failed).
	GameLaunches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arclight",
		Name:      "game_launches_total",
		Help:      "Game launch attempts by result.",
	}, []string{"result"})

	// RequestDuration observes request latency by route and status.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arclight",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})

	// EventSubscribers tracks open websocket connections.
	EventSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "arclight",
		Name:      "event_subscribers",
		Help:      "Connected launch event websockets.",
	})
)

func init() {
	prometheus.MustRegister(LoginAttempts, GameLaunches, RequestDuration, EventSubscribers)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
