package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels applied to every metric series.
type Config struct {
	ServiceName string
	Environment string
}

func (c Config) constLabels() prometheus.Labels {
	serviceName := strings.TrimSpace(c.ServiceName)
	if serviceName == "" {
		serviceName = "rolegate"
	}
	environment := strings.TrimSpace(c.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

// HTTPMetrics records inbound HTTP traffic by route, method, and status.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics registers HTTP metrics on the default registerer.
func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "rolegate_http_requests_total",
		Help:        "HTTP requests by route, method, and status.",
		ConstLabels: constLabels,
	}, []string{"route", "method", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "rolegate_http_request_duration_seconds",
		Help:        "HTTP request latency by route and method.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"route", "method"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "rolegate_http_requests_in_flight",
		Help:        "HTTP requests currently being served.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(requests, duration, inFlight)

	return &HTTPMetrics{
		requests: requests,
		duration: duration,
		inFlight: inFlight,
	}
}

// Observe records one completed request.
func (m *HTTPMetrics) Observe(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	route = strings.TrimSpace(route)
	if route == "" {
		route = "unknown"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// GinMiddleware instruments inbound requests against the registered series.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.inFlight.Inc()
		c.Next()
		m.inFlight.Dec()
		m.Observe(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// EntitlementMetrics tracks role changes, webhook deliveries, and link sessions.
type EntitlementMetrics struct {
	RoleGrants          *prometheus.CounterVec
	RoleRevokes         *prometheus.CounterVec
	WebhookEvents       *prometheus.CounterVec
	LinkSessionsCreated prometheus.Counter
	LinkSessionsLinked  prometheus.Counter
	LinkSessionsPruned  prometheus.Counter
}

var (
	entitlementMetricsOnce sync.Once
	entitlementMetrics     *EntitlementMetrics
)

// Entitlement returns the singleton entitlement metrics registry.
func Entitlement() *EntitlementMetrics {
	return EntitlementWithConfig(Config{})
}

// EntitlementWithConfig returns the singleton entitlement metrics registry using config labels.
func EntitlementWithConfig(cfg Config) *EntitlementMetrics {
	entitlementMetricsOnce.Do(func() {
		entitlementMetrics = newEntitlementMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return entitlementMetrics
}

// ResetEntitlementMetricsForTest resets the entitlement metrics singleton for tests.
func ResetEntitlementMetricsForTest() {
	entitlementMetricsOnce = sync.Once{}
	entitlementMetrics = nil
}

func newEntitlementMetrics(registerer prometheus.Registerer, cfg Config) *EntitlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	roleGrants := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "rolegate_role_grants_total",
		Help:        "Discord role grants by outcome.",
		ConstLabels: constLabels,
	}, []string{"result"})
	roleRevokes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "rolegate_role_revokes_total",
		Help:        "Discord role revocations by outcome.",
		ConstLabels: constLabels,
	}, []string{"result"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "rolegate_webhook_events_total",
		Help:        "Storefront webhook deliveries by event and outcome.",
		ConstLabels: constLabels,
	}, []string{"event", "outcome"})
	sessionsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "rolegate_link_sessions_created_total",
		Help:        "Link sessions started from the Discord entry point.",
		ConstLabels: constLabels,
	})
	sessionsLinked := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "rolegate_link_sessions_linked_total",
		Help:        "Link sessions that completed the OAuth identity handoff.",
		ConstLabels: constLabels,
	})
	sessionsPruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "rolegate_link_sessions_pruned_total",
		Help:        "Expired link sessions removed by the prune job.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		roleGrants,
		roleRevokes,
		webhookEvents,
		sessionsCreated,
		sessionsLinked,
		sessionsPruned,
	)

	return &EntitlementMetrics{
		RoleGrants:          roleGrants,
		RoleRevokes:         roleRevokes,
		WebhookEvents:       webhookEvents,
		LinkSessionsCreated: sessionsCreated,
		LinkSessionsLinked:  sessionsLinked,
		LinkSessionsPruned:  sessionsPruned,
	}
}
