package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Ledger metrics
	BatchesCreated       prometheus.Counter
	BatchIDCollisions    prometheus.Counter
	Distributions        *prometheus.CounterVec
	UnitsDistributed     prometheus.Counter
	CheckoutRejections   *prometheus.CounterVec
	StockAdjustments     *prometheus.CounterVec
	TransactionConflicts prometheus.Counter

	// Messaging metrics
	EventsPublished *prometheus.CounterVec
	EventsConsumed  *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "padbank",
	}
}

// New creates a new Metrics instance on its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	constLabels := prometheus.Labels{"service": config.ServiceName}

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: constLabels,
		},
	)

	m.BatchesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "batches_created_total",
		Help:        "Inventory batches created",
		ConstLabels: constLabels,
	})

	m.BatchIDCollisions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "batch_id_collisions_total",
		Help:        "Generated batch ids that were already taken",
		ConstLabels: constLabels,
	})

	m.Distributions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "distributions_total",
		Help:        "Distribution records appended, by channel",
		ConstLabels: constLabels,
	}, []string{"channel"})

	m.UnitsDistributed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "units_distributed_total",
		Help:        "Pads handed out",
		ConstLabels: constLabels,
	})

	m.CheckoutRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "checkout_rejections_total",
		Help:        "Checkouts refused, by reason",
		ConstLabels: constLabels,
	}, []string{"reason"})

	m.StockAdjustments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "stock_adjustments_total",
		Help:        "Stock adjustments recorded, by type",
		ConstLabels: constLabels,
	}, []string{"type"})

	m.TransactionConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "transaction_conflicts_total",
		Help:        "Units of work aborted by a concurrent writer",
		ConstLabels: constLabels,
	})

	m.EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "events_published_total",
		Help:        "Events published to the broker",
		ConstLabels: constLabels,
	}, []string{"event_type", "status"})

	m.EventsConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Name:        "events_consumed_total",
		Help:        "Events consumed from the broker",
		ConstLabels: constLabels,
	}, []string{"event_type", "status"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.BatchesCreated,
		m.BatchIDCollisions,
		m.Distributions,
		m.UnitsDistributed,
		m.CheckoutRejections,
		m.StockAdjustments,
		m.TransactionConflicts,
		m.EventsPublished,
		m.EventsConsumed,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDistribution counts one appended distribution record
func (m *Metrics) RecordDistribution(channel string, quantity int) {
	if m == nil {
		return
	}
	m.Distributions.WithLabelValues(channel).Inc()
	m.UnitsDistributed.Add(float64(quantity))
}

// RecordCheckoutRejection counts a refused checkout
func (m *Metrics) RecordCheckoutRejection(reason string) {
	if m == nil {
		return
	}
	m.CheckoutRejections.WithLabelValues(reason).Inc()
}

// RecordAdjustment counts one stock adjustment
func (m *Metrics) RecordAdjustment(adjustmentType string) {
	if m == nil {
		return
	}
	m.StockAdjustments.WithLabelValues(adjustmentType).Inc()
}

// RecordBatchCreated counts a created batch and the id collisions it hit
func (m *Metrics) RecordBatchCreated(collisions int) {
	if m == nil {
		return
	}
	m.BatchesCreated.Inc()
	m.BatchIDCollisions.Add(float64(collisions))
}

// RecordTransactionConflict counts a unit of work lost to a concurrent writer
func (m *Metrics) RecordTransactionConflict() {
	if m == nil {
		return
	}
	m.TransactionConflicts.Inc()
}

// RecordEventPublished records a publish attempt
func (m *Metrics) RecordEventPublished(eventType string, success bool) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, outcome(success)).Inc()
}

// RecordEventConsumed records a consumed event
func (m *Metrics) RecordEventConsumed(eventType string, success bool) {
	if m == nil {
		return
	}
	m.EventsConsumed.WithLabelValues(eventType, outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
