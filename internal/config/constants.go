package config

// Request timeout bounds (seconds). Initiation and credential submission calls
// must resolve within a bounded window so a stuck backend surfaces as a
// Timeout failure instead of a hung attempt.
const (
	DefaultRequestTimeoutSeconds = 20
	MinRequestTimeoutSeconds     = 15
	MaxRequestTimeoutSeconds     = 30
)
