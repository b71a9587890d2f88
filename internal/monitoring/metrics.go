package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trade lifecycle metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_trades_total",
			Help: "Trades by symbol and terminal status",
		},
		[]string{"symbol", "status"},
	)

	approvedQuantity = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trading_core_approved_quantity",
			Help:    "Distribution of risk-approved order quantities",
			Buckets: prometheus.ExponentialBuckets(0.001, 10, 8),
		},
		[]string{"symbol"},
	)

	// Risk metrics
	riskRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_risk_rejections_total",
			Help: "Risk gate rejections by reason",
		},
		[]string{"reason"},
	)

	equityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_core_equity",
			Help: "Current account equity",
		},
	)

	drawdownGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_core_drawdown",
			Help: "Current drawdown fraction from peak equity",
		},
	)

	// Venue metrics
	venueErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_venue_errors_total",
			Help: "Venue call failures by venue and class",
		},
		[]string{"venue", "class"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_retries_total",
			Help: "Venue call retries by operation",
		},
		[]string{"operation"},
	)

	// Invariant breaches; anything above zero is a bug
	idempotencyViolationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trading_core_idempotency_violations_total",
			Help: "Duplicate fill-recording attempts caught by the coordinator",
		},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(approvedQuantity)
	prometheus.MustRegister(riskRejectionsTotal)
	prometheus.MustRegister(equityGauge)
	prometheus.MustRegister(drawdownGauge)
	prometheus.MustRegister(venueErrorsTotal)
	prometheus.MustRegister(retriesTotal)
	prometheus.MustRegister(idempotencyViolationsTotal)
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTrade records a trade reaching a terminal status.
func RecordTrade(symbol, status string) {
	tradesTotal.WithLabelValues(symbol, status).Inc()
}

// ObserveApprovedQuantity records a risk-approved order size.
func ObserveApprovedQuantity(symbol string, qty float64) {
	approvedQuantity.WithLabelValues(symbol).Observe(qty)
}

// RecordRiskRejection records a risk gate rejection.
func RecordRiskRejection(reason string) {
	riskRejectionsTotal.WithLabelValues(reason).Inc()
}

// UpdateEquity updates the equity and drawdown gauges.
func UpdateEquity(equity, drawdown float64) {
	equityGauge.Set(equity)
	drawdownGauge.Set(drawdown)
}

// RecordVenueError records a venue call failure.
func RecordVenueError(venue, class string) {
	venueErrorsTotal.WithLabelValues(venue, class).Inc()
}

// RecordRetry records a retried venue operation.
func RecordRetry(operation string) {
	retriesTotal.WithLabelValues(operation).Inc()
}

// RecordIdempotencyViolation records a duplicate fill-recording attempt.
func RecordIdempotencyViolation() {
	idempotencyViolationsTotal.Inc()
}
