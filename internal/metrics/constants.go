package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Backend metric names
const (
	MetricNameBackendRequestDuration = "backend_request_duration_seconds"
)

// Connection metric names
const (
	MetricNameConnectAttempts       = "connect_attempts_total"
	MetricNameCredentialSubmissions = "credential_submissions_total"
	MetricNameDisconnects           = "disconnects_total"
	MetricNameStoreRefreshes        = "store_refreshes_total"
)

// Event metric names
const (
	MetricNameEventsPublished    = "events_published_total"
	MetricNameEventHandlerErrors = "event_handler_errors_total"
)

// SSE metric names
const (
	MetricNameSSEClients = "sse_clients"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Backend metric help text
const (
	HelpTextBackendRequestDuration = "Backend REST call latency in seconds"
)

// Connection metric help text
const (
	HelpTextConnectAttempts       = "Total number of platform connect attempts by terminal result"
	HelpTextCredentialSubmissions = "Total number of credential submissions"
	HelpTextDisconnects           = "Total number of platform disconnect operations"
	HelpTextStoreRefreshes        = "Total number of connected-platform store refreshes"
)

// Event metric help text
const (
	HelpTextEventsPublished    = "Total number of events published"
	HelpTextEventHandlerErrors = "Total number of event handler errors"
)

// SSE metric help text
const (
	HelpTextSSEClients = "Current number of connected SSE clients"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelType      = "type"
	LabelPlatform  = "platform"
	LabelResult    = "result"
	LabelOperation = "operation"
)

// Result label values
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultRejected  = "rejected"
)

// HTTPLatencyBuckets are the histogram buckets for HTTP request latency
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// BackendLatencyBuckets are the histogram buckets for backend call latency.
// Coarser than the HTTP buckets because connection initiation rides on
// third-party marketplaces and regularly takes whole seconds.
var BackendLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30}
