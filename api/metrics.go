package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/swap-engine/event"
	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/swap"
)

// Metrics holds the Prometheus collectors for the HTTP API.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	eventsTotal     *prometheus.CounterVec
	poolCurrency    *prometheus.GaugeVec
	poolTokens      *prometheus.GaugeVec
	poolShares      *prometheus.GaugeVec
	auditViolations prometheus.Gauge
}

// NewMetrics creates and registers the API metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swapd_http_request_duration_seconds",
			Help:    "Time taken to serve an API request.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swapd_http_requests_total",
			Help: "Total number of API requests, labeled by route and status code.",
		}, []string{"method", "route", "status"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swapd_events_total",
			Help: "Total number of events published by committed operations.",
		}, []string{"kind"}),
		poolCurrency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swapd_pool_reserve_currency",
			Help: "Currency held by a pool's reserve account at the last audit.",
		}, []string{"swap"}),
		poolTokens: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swapd_pool_reserve_tokens",
			Help: "Tokens held by a pool's reserve account at the last audit.",
		}, []string{"swap"}),
		poolShares: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swapd_pool_shares",
			Help: "Outstanding liquidity shares of a pool at the last audit.",
		}, []string{"swap"}),
		auditViolations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swapd_audit_violations",
			Help: "Bookkeeping violations found by the last audit.",
		}),
	}
	reg.MustRegister(
		m.requestDuration, m.requestsTotal, m.eventsTotal,
		m.poolCurrency, m.poolTokens, m.poolShares, m.auditViolations,
	)
	return m
}

// Publish counts committed events by kind.
func (m *Metrics) Publish(_ context.Context, events []event.Envelope) {
	for _, e := range events {
		m.eventsTotal.WithLabelValues(e.Kind).Inc()
	}
}

func (m *Metrics) setReserves(r swap.Reserves) {
	id := r.Swap.String()
	m.poolCurrency.WithLabelValues(id).Set(float64(r.Currency))
	m.poolTokens.WithLabelValues(id).Set(gaugeValue(r.Tokens))
	m.poolShares.WithLabelValues(id).Set(gaugeValue(r.Shares))
}

// gaugeValue converts a balance for display; large values lose precision.
func gaugeValue(b ledger.Balance) float64 {
	return decimal.RequireFromString(b.String()).InexactFloat64()
}

func (m *Metrics) observe(method, route string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// instrument logs every request and records its metrics under the matched
// route pattern, so path parameters do not explode label cardinality.
func instrument(log *zap.Logger, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)
			m.observe(r.Method, route, status, elapsed)

			log.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", elapsed),
			)
		})
	}
}
