package domain

import "time"

// AttemptPhase is the lifecycle phase of a connection attempt.
type AttemptPhase string

const (
	PhaseInitiating            AttemptPhase = "initiating"
	PhaseAwaitingOAuthRedirect AttemptPhase = "awaiting_oauth_redirect"
	PhaseAwaitingCredentials   AttemptPhase = "awaiting_credentials"
	PhaseSubmitting            AttemptPhase = "submitting"
	PhaseSucceeded             AttemptPhase = "succeeded"
	PhaseFailed                AttemptPhase = "failed"
)

// Terminal reports whether the phase ends the attempt. A terminal attempt is
// discarded from active tracking once the UI has had a chance to observe it.
func (p AttemptPhase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// FailureReason classifies why an attempt reached PhaseFailed.
type FailureReason string

const (
	ReasonInitiationError   FailureReason = "initiation_error"
	ReasonRejectedByBackend FailureReason = "rejected_by_backend"
	ReasonUserCancelled     FailureReason = "user_cancelled"
	ReasonTimeout           FailureReason = "timeout"
)

// ConnectionAttempt is a snapshot of one in-flight (or recently terminal)
// connect operation. Entered credential values are tracked internally by the
// orchestrator and are never part of this snapshot.
type ConnectionAttempt struct {
	ID             string            `json:"id"`
	PlatformID     string            `json:"platform_id"`
	Phase          AttemptPhase      `json:"phase"`
	AuthURL        string            `json:"auth_url,omitempty"`
	RequiredFields []CredentialField `json:"required_fields,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
	SecurityNote   string            `json:"security_note,omitempty"`
	Reason         FailureReason     `json:"reason,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
