// Package metrics holds the Prometheus collectors for the trader.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SignalsTotal counts classified signals by classification and whether they were acted on.
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "degen_signals_total",
		Help: "Signals classified, by classification and outcome",
	}, []string{"classification", "outcome"})

	SwapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "degen_swaps_total",
		Help: "Swap attempts by mode, side and terminal state",
	}, []string{"mode", "side", "state"})

	SwapLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "degen_swap_latency_seconds",
		Help:    "Swap execution latency in seconds",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"mode", "backend"})

	// PriceLookups counts provider calls by provider and outcome (hit, miss, error, cache, fallback).
	PriceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "degen_price_lookups_total",
		Help: "Price lookups by provider and outcome",
	}, []string{"provider", "outcome"})

	MonitorCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "degen_monitor_cycles_total",
		Help: "Monitor loop cycles by result",
	}, []string{"result"})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "degen_open_positions",
		Help: "Number of open positions in the ledger",
	})

	DeferredEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "degen_deferred_entries",
		Help: "Number of parked deferred-entry signals",
	})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "degen_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "degen_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "degen_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request metrics keyed by the matched route pattern.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
