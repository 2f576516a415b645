package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details for security reasons.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	// HTTP status messages
	ErrMsgMethodNotAllowed      = "Method not allowed"
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"

	// Catalog error messages
	ErrMsgListPlatformsFailed = "Failed to load platform catalog"
	ErrMsgUnknownPlatform     = "Unknown platform"

	// Connection error messages
	ErrMsgConnectFailed         = "Failed to start connection"
	ErrMsgAlreadyConnecting     = "A connection attempt for this platform is already in progress"
	ErrMsgNoSuchAttempt         = "No such connection attempt"
	ErrMsgWrongPhase            = "Operation not valid in the attempt's current state"
	ErrMsgMissingCredentials    = "Missing required credential fields"
	ErrMsgCredentialsRejected   = "The backend rejected the submitted credentials"
	ErrMsgBackendTimeout        = "The backend did not respond in time"
	ErrMsgBackendUnavailable    = "The backend is unreachable"
	ErrMsgDisconnectFailedHTTP  = "Failed to disconnect the platform"
	ErrMsgNotConnectedHTTP      = "Platform is not connected"
	ErrMsgRefreshConnectedError = "Failed to refresh connected platforms"
)

// Success messages for API responses
const (
	MsgDisconnectedSuccess = "Platform disconnected"
)
