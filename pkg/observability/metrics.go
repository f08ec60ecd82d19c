package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Connection metrics
	Connections     prometheus.Gauge
	Rooms           prometheus.Gauge
	DroppedMessages prometheus.Counter
	Broadcasts      *prometheus.CounterVec

	// Engine metrics
	Mutations         *prometheus.CounterVec
	MutationDuration  *prometheus.HistogramVec
	PresenceEvictions prometheus.Counter
	LockOperations    *prometheus.CounterVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_connections",
				Help:      "Number of open websocket connections",
			},
		),
		Rooms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rooms_active",
				Help:      "Number of rooms with at least one present identity",
			},
		),
		DroppedMessages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "websocket_dropped_messages_total",
				Help:      "Outbound messages dropped because a client send buffer was full",
			},
		),
		Broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcasts_total",
				Help:      "Outbound events by type",
			},
			[]string{"event"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Diagram mutations by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		MutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mutation_duration_seconds",
				Help:      "Time from mutation receipt to persistence",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		PresenceEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "presence_evictions_total",
				Help:      "Presence entries removed by the staleness sweep",
			},
		),
		LockOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_operations_total",
				Help:      "Advisory lock operations",
			},
			[]string{"operation"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Diagram store operations",
			},
			[]string{"operation", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Diagram store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Connections,
		c.Rooms,
		c.DroppedMessages,
		c.Broadcasts,
		c.Mutations,
		c.MutationDuration,
		c.PresenceEvictions,
		c.LockOperations,
		c.StoreOperations,
		c.StoreDuration,
	)

	return c
}

// RecordHTTP records a served HTTP request
func (c *Collector) RecordHTTP(method, route, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordMutation records the outcome of a diagram mutation
func (c *Collector) RecordMutation(action, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.Mutations.WithLabelValues(action, outcome).Inc()
	if duration > 0 {
		c.MutationDuration.WithLabelValues(action).Observe(duration.Seconds())
	}
}

// RecordStoreOperation records a diagram store call
func (c *Collector) RecordStoreOperation(operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.StoreOperations.WithLabelValues(operation, status).Inc()
	c.StoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLockOperation counts an acquire or release
func (c *Collector) RecordLockOperation(operation string) {
	if c == nil {
		return
	}
	c.LockOperations.WithLabelValues(operation).Inc()
}

// RecordEvictions counts presence entries removed by a sweep
func (c *Collector) RecordEvictions(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.PresenceEvictions.Add(float64(n))
}

// RecordBroadcast counts one outbound event
func (c *Collector) RecordBroadcast(event string) {
	if c == nil {
		return
	}
	c.Broadcasts.WithLabelValues(event).Inc()
}

// RecordDropped counts an outbound message dropped for a slow client
func (c *Collector) RecordDropped() {
	if c == nil {
		return
	}
	c.DroppedMessages.Inc()
}

// SetConnections sets the open connection gauge
func (c *Collector) SetConnections(n int) {
	if c == nil {
		return
	}
	c.Connections.Set(float64(n))
}

// SetRooms sets the active room gauge
func (c *Collector) SetRooms(n int) {
	if c == nil {
		return
	}
	c.Rooms.Set(float64(n))
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
