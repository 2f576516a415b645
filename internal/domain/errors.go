package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Catalog errors
	ErrMsgCatalogUnavailable = "platform catalog unavailable"
	ErrMsgUnknownPlatform    = "unknown platform"

	// Attempt errors
	ErrMsgAlreadyInProgress = "connection attempt already in progress"
	ErrMsgNoActiveAttempt   = "no active connection attempt"
	ErrMsgInvalidPhase      = "operation not valid in current attempt phase"
	ErrMsgMissingFields     = "missing required credential fields"

	// Backend errors
	ErrMsgInitiationFailed  = "connection initiation failed"
	ErrMsgRejectedByBackend = "rejected by backend"
	ErrMsgTimeout           = "request timed out"
	ErrMsgFetchFailed       = "failed to fetch connected platforms"
	ErrMsgDisconnectFailed  = "disconnect failed"

	// Store errors
	ErrMsgNotConnected = "platform is not connected"

	// Flow errors
	ErrMsgUserCancelled = "cancelled by user"
)

// Common domain errors
// These errors should be used consistently across all layers of the application.
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// Catalog errors
	ErrCatalogUnavailable = errors.New(ErrMsgCatalogUnavailable)
	ErrUnknownPlatform    = errors.New(ErrMsgUnknownPlatform)

	// Attempt errors
	ErrAlreadyInProgress = errors.New(ErrMsgAlreadyInProgress)
	ErrNoActiveAttempt   = errors.New(ErrMsgNoActiveAttempt)
	ErrInvalidPhase      = errors.New(ErrMsgInvalidPhase)
	ErrMissingFields     = errors.New(ErrMsgMissingFields)

	// Backend errors
	ErrInitiationFailed  = errors.New(ErrMsgInitiationFailed)
	ErrRejectedByBackend = errors.New(ErrMsgRejectedByBackend)
	ErrTimeout           = errors.New(ErrMsgTimeout)
	ErrFetchFailed       = errors.New(ErrMsgFetchFailed)
	ErrDisconnectFailed  = errors.New(ErrMsgDisconnectFailed)

	// Store errors
	ErrNotConnected = errors.New(ErrMsgNotConnected)

	// Flow errors
	ErrUserCancelled = errors.New(ErrMsgUserCancelled)
)

// RejectionClass is the backend-supplied classification of a credential
// rejection. Recoverable rejections (e.g. wrong password) return the attempt
// to an actionable state; structural ones are terminal. Unclassified
// rejections default to structural - the backend contract does not yet
// guarantee the classification field on every response.
type RejectionClass string

const (
	RejectionRecoverable RejectionClass = "recoverable"
	RejectionStructural  RejectionClass = "structural"
)
