package metrics

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const divisor = 100

// Metrics defines all Prometheus metrics for the site API.
type Metrics struct {
	// RED (Rate, Errors, Duration) for HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPRequestDuration  *prometheus.HistogramVec

	// Business metrics
	ContactSubmissions     *prometheus.CounterVec // by result
	EmailsSent             *prometheus.CounterVec // by kind, result
	ChallengeChecks        *prometheus.CounterVec // by result
	RateLimitDenied        *prometheus.CounterVec // by limiter
	LeadPushes             *prometheus.CounterVec // by result
	SubscriptionsCreated   prometheus.Counter
	SubscriptionsConfirmed prometheus.Counter

	// Janitor metrics
	JanitorRuns   prometheus.Counter
	JanitorPurged prometheus.Counter

	// System metrics
	ServiceUptime prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics under the given namespace.
func NewMetrics(namespace string, db *sql.DB, dbName string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests total",
			},
			[]string{"method", "endpoint", "status_class"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "In-flight HTTP requests",
			},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		ContactSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "contact_submissions_total",
				Help:      "Contact form submissions",
			},
			[]string{"result"},
		),
		EmailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_sent_total",
				Help:      "Outbound emails by kind and result",
			},
			[]string{"kind", "result"},
		),
		ChallengeChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "challenge_checks_total",
				Help:      "Bot-challenge verifications by result",
			},
			[]string{"result"},
		),
		RateLimitDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_denied_total",
				Help:      "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
		LeadPushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "crm_lead_pushes_total",
				Help:      "CRM lead pushes by result",
			},
			[]string{"result"},
		),
		SubscriptionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_created_total",
				Help:      "Total newsletter subscriptions created",
			},
		),
		SubscriptionsConfirmed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_confirmed_total",
				Help:      "Total newsletter subscriptions confirmed",
			},
		),

		JanitorRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "janitor_runs_total",
				Help:      "Janitor executions",
			},
		),
		JanitorPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "janitor_purged_total",
				Help:      "Expired pending subscribers purged",
			},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_uptime_seconds",
				Help:      "Service uptime in seconds",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.HTTPRequestDuration,
		m.ContactSubmissions,
		m.EmailsSent,
		m.ChallengeChecks,
		m.RateLimitDenied,
		m.LeadPushes,
		m.SubscriptionsCreated,
		m.SubscriptionsConfirmed,
		m.JanitorRuns,
		m.JanitorPurged,
		m.ServiceUptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, dbName),
	)

	m.ServiceUptime.SetToCurrentTime()

	return m
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware instruments Gin HTTP handlers for RED metrics.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		c.Next()
		m.HTTPRequestsInFlight.Dec()

		dur := time.Since(start).Seconds()
		status := c.Writer.Status()
		statusClass := fmt.Sprintf("%dxx", status/divisor)

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), statusClass).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(dur)
	}
}

// RecordEmail logs one send attempt for the given message kind.
func (m *Metrics) RecordEmail(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EmailsSent.WithLabelValues(kind, result).Inc()
}

// RecordLeadPush logs one CRM webhook push attempt.
func (m *Metrics) RecordLeadPush(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LeadPushes.WithLabelValues(result).Inc()
}
