package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Backend Metrics
var (
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameBackendRequestDuration,
			Help:    HelpTextBackendRequestDuration,
			Buckets: BackendLatencyBuckets,
		},
		[]string{LabelOperation, LabelStatus},
	)
)

// Connection Metrics
var (
	ConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameConnectAttempts,
			Help: HelpTextConnectAttempts,
		},
		[]string{LabelPlatform, LabelResult},
	)

	CredentialSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameCredentialSubmissions,
			Help: HelpTextCredentialSubmissions,
		},
		[]string{LabelPlatform, LabelResult},
	)

	Disconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameDisconnects,
			Help: HelpTextDisconnects,
		},
		[]string{LabelPlatform, LabelResult},
	)

	StoreRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameStoreRefreshes,
			Help: HelpTextStoreRefreshes,
		},
		[]string{LabelResult},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)

// SSE Metrics
var (
	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameSSEClients,
			Help: HelpTextSSEClients,
		},
	)
)
