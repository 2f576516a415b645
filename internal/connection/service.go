// Package connection implements the connect/disconnect orchestration for
// marketplace platforms. It drives each attempt through a strict phase
// machine, keeps entered credential values out of every externally visible
// snapshot, and treats the backend as the sole authority on connection state.
package connection

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/crosspostme/crosspost-agent/internal/backend"
	"github.com/crosspostme/crosspost-agent/internal/catalog"
	"github.com/crosspostme/crosspost-agent/internal/domain"
	"github.com/crosspostme/crosspost-agent/internal/event"
	"github.com/crosspostme/crosspost-agent/internal/logger"
	"github.com/crosspostme/crosspost-agent/internal/metrics"
	"github.com/crosspostme/crosspost-agent/internal/store"
)

// Service orchestrates platform connection attempts.
type Service interface {
	// Connect starts a new attempt for the platform. At most one active
	// attempt per platform; a second call returns ErrAlreadyInProgress. A
	// platform that is already connected may start a re-authorization
	// attempt; the existing connection stands until the new one succeeds.
	Connect(ctx context.Context, platformID string) (domain.ConnectionAttempt, error)

	// SubmitCredentials merges the entered values into the attempt and, once
	// every required field is present, submits them to the backend. Values
	// accumulate across calls so a recoverable rejection only needs the
	// corrected field re-entered.
	SubmitCredentials(ctx context.Context, attemptID string, values map[string]string) (domain.ConnectionAttempt, error)

	// ConfirmOAuthCompletion verifies an OAuth attempt against the backend's
	// connected list. A confirmed connection succeeds the attempt; a missing
	// record means the provider flow was abandoned and fails it as cancelled.
	// Safe to call repeatedly; confirming an attempt that already ended
	// returns the terminal snapshot unchanged.
	ConfirmOAuthCompletion(ctx context.Context, attemptID string) (domain.ConnectionAttempt, error)

	// Cancel abandons an attempt waiting on user action. Attempts with a
	// backend call in flight cannot be cancelled.
	Cancel(ctx context.Context, attemptID string) (domain.ConnectionAttempt, error)

	// Disconnect removes a platform connection. The local record is removed
	// only after the backend confirms; on failure the platform remains
	// connected locally.
	Disconnect(ctx context.Context, platformID string) error

	// Attempts returns snapshots of all active attempts, oldest first.
	Attempts() []domain.ConnectionAttempt

	// Attempt returns the snapshot for an attempt ID, active or recently
	// terminal.
	Attempt(attemptID string) (domain.ConnectionAttempt, error)
}

// attemptState is the internal record for one active attempt. Entered
// credential values live only here and are wiped when the attempt ends.
type attemptState struct {
	snapshot domain.ConnectionAttempt
	entered  map[string]string
}

// inflightDisconnect collapses concurrent disconnect calls for one platform
// into a single backend request.
type inflightDisconnect struct {
	done chan struct{}
	err  error
}

type service struct {
	client      backend.Client
	catalog     catalog.Service
	store       store.Store
	bus         event.Bus
	redirectURI string

	mu          sync.Mutex
	byPlatform  map[string]*attemptState
	disconnects map[string]*inflightDisconnect

	recentTerminal *lru.LRU[string, domain.ConnectionAttempt]
}

// NewService creates the connection orchestrator. redirectURI is the local
// OAuth callback URL handed to the backend on initiation.
func NewService(client backend.Client, cat catalog.Service, st store.Store, bus event.Bus, redirectURI string) Service {
	return &service{
		client:         client,
		catalog:        cat,
		store:          st,
		bus:            bus,
		redirectURI:    redirectURI,
		byPlatform:     make(map[string]*attemptState),
		disconnects:    make(map[string]*inflightDisconnect),
		recentTerminal: lru.NewLRU[string, domain.ConnectionAttempt](RecentTerminalSize, nil, RecentTerminalTTL),
	}
}

func (s *service) Connect(ctx context.Context, platformID string) (domain.ConnectionAttempt, error) {
	log := logger.FromContext(ctx)

	// Catalog check first so an unknown platform never reaches the backend.
	desc, err := s.catalog.Describe(ctx, platformID)
	if err != nil {
		return domain.ConnectionAttempt{}, err
	}

	s.mu.Lock()
	if existing, ok := s.byPlatform[platformID]; ok {
		snap := existing.snapshot
		s.mu.Unlock()
		return snap, fmt.Errorf("%w: %s", domain.ErrAlreadyInProgress, platformID)
	}

	now := time.Now().UTC()
	state := &attemptState{
		snapshot: domain.ConnectionAttempt{
			ID:         uuid.NewString(),
			PlatformID: platformID,
			Phase:      domain.PhaseInitiating,
			StartedAt:  now,
			UpdatedAt:  now,
		},
		entered: make(map[string]string),
	}
	s.byPlatform[platformID] = state
	snap := state.snapshot
	s.mu.Unlock()

	log.Info("Connection attempt started", "platform", platformID, "attempt_id", snap.ID)
	s.publish(ctx, snap)

	resp, err := s.client.InitiateConnect(ctx, platformID, s.redirectURI)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The attempt could only have been replaced if it ended while the call
	// was in flight; a stale resolution must not resurrect it.
	current, ok := s.byPlatform[platformID]
	if !ok || current.snapshot.ID != snap.ID {
		return snap, fmt.Errorf("%w: %s", domain.ErrNoActiveAttempt, snap.ID)
	}

	if err != nil {
		reason := domain.ReasonInitiationError
		if backend.IsTimeout(err) {
			reason = domain.ReasonTimeout
		}
		failed := s.failLocked(ctx, current, reason, err)
		return failed, fmt.Errorf("%w: %w", domain.ErrInitiationFailed, err)
	}

	switch resp.Method {
	case backend.MethodOAuth:
		current.snapshot.Phase = domain.PhaseAwaitingOAuthRedirect
		current.snapshot.AuthURL = resp.AuthURL
	case backend.MethodCredentials:
		current.snapshot.Phase = domain.PhaseAwaitingCredentials
		current.snapshot.RequiredFields = credentialFields(resp.CredentialsNeeded, desc)
		current.snapshot.Instructions = resp.Instructions
		current.snapshot.SecurityNote = resp.SecurityNote
	default:
		failed := s.failLocked(ctx, current, domain.ReasonInitiationError,
			fmt.Errorf("unexpected auth method %q", resp.Method))
		return failed, fmt.Errorf("%w: unexpected auth method %q", domain.ErrInitiationFailed, resp.Method)
	}
	current.snapshot.UpdatedAt = time.Now().UTC()

	snap = current.snapshot
	s.publish(ctx, snap)
	return snap, nil
}

func (s *service) SubmitCredentials(ctx context.Context, attemptID string, values map[string]string) (domain.ConnectionAttempt, error) {
	log := logger.FromContext(ctx)

	s.mu.Lock()
	state, err := s.findLocked(attemptID)
	if err != nil {
		s.mu.Unlock()
		return domain.ConnectionAttempt{}, err
	}
	if state.snapshot.Phase != domain.PhaseAwaitingCredentials {
		snap := state.snapshot
		s.mu.Unlock()
		return snap, fmt.Errorf("%w: %s", domain.ErrInvalidPhase, snap.Phase)
	}

	// Only fields the attempt asked for are kept; anything extra is ignored
	// and never reaches the backend.
	required := make(map[string]struct{}, len(state.snapshot.RequiredFields))
	for _, f := range state.snapshot.RequiredFields {
		required[f.Name] = struct{}{}
	}
	for name, value := range values {
		if value == "" {
			continue
		}
		if _, ok := required[name]; !ok {
			continue
		}
		state.entered[name] = value
	}

	if missing := missingFields(state.snapshot.RequiredFields, state.entered); len(missing) > 0 {
		snap := state.snapshot
		s.mu.Unlock()
		return snap, fmt.Errorf("%w: %v", domain.ErrMissingFields, missing)
	}

	state.snapshot.Phase = domain.PhaseSubmitting
	state.snapshot.LastError = ""
	state.snapshot.UpdatedAt = time.Now().UTC()
	snap := state.snapshot
	platformID := snap.PlatformID
	submitted := make(map[string]string, len(state.entered))
	for name, value := range state.entered {
		submitted[name] = value
	}
	s.mu.Unlock()

	s.publish(ctx, snap)
	err = s.client.SubmitCredentials(ctx, platformID, submitted)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byPlatform[platformID]
	if !ok || current.snapshot.ID != snap.ID {
		return snap, fmt.Errorf("%w: %s", domain.ErrNoActiveAttempt, snap.ID)
	}

	if err == nil {
		metrics.CredentialSubmissions.WithLabelValues(platformID, metrics.ResultSucceeded).Inc()
		log.Info("Credentials accepted", "platform", platformID, "attempt_id", snap.ID)
		return s.succeedLocked(ctx, current), nil
	}

	if apiErr, ok := backend.AsAPIError(err); ok {
		if apiErr.Recoverable() {
			// Wrong value, not a wrong flow. Back to entry with the values
			// retained so only the bad field needs correcting.
			metrics.CredentialSubmissions.WithLabelValues(platformID, metrics.ResultRejected).Inc()
			current.snapshot.Phase = domain.PhaseAwaitingCredentials
			current.snapshot.LastError = apiErr.Detail
			current.snapshot.UpdatedAt = time.Now().UTC()
			recovered := current.snapshot
			s.publish(ctx, recovered)
			log.Info("Credentials rejected, awaiting correction",
				"platform", platformID, "attempt_id", snap.ID)
			return recovered, fmt.Errorf("%w: %s", domain.ErrRejectedByBackend, apiErr.Detail)
		}
		metrics.CredentialSubmissions.WithLabelValues(platformID, metrics.ResultRejected).Inc()
		failed := s.failLocked(ctx, current, domain.ReasonRejectedByBackend, apiErr)
		return failed, fmt.Errorf("%w: %s", domain.ErrRejectedByBackend, apiErr.Detail)
	}

	metrics.CredentialSubmissions.WithLabelValues(platformID, metrics.ResultFailed).Inc()
	reason := domain.ReasonRejectedByBackend
	wrapped := domain.ErrRejectedByBackend
	if backend.IsTimeout(err) {
		reason = domain.ReasonTimeout
		wrapped = domain.ErrTimeout
	}
	failed := s.failLocked(ctx, current, reason, err)
	return failed, fmt.Errorf("%w: %w", wrapped, err)
}

func (s *service) ConfirmOAuthCompletion(ctx context.Context, attemptID string) (domain.ConnectionAttempt, error) {
	log := logger.FromContext(ctx)

	s.mu.Lock()
	state, err := s.findLocked(attemptID)
	if err != nil {
		// A confirmation that races the attempt's own completion is answered
		// from the terminal cache instead of failing.
		if terminal, ok := s.recentTerminal.Get(attemptID); ok {
			s.mu.Unlock()
			return terminal, nil
		}
		s.mu.Unlock()
		return domain.ConnectionAttempt{}, err
	}
	if state.snapshot.Phase != domain.PhaseAwaitingOAuthRedirect {
		snap := state.snapshot
		s.mu.Unlock()
		return snap, fmt.Errorf("%w: %s", domain.ErrInvalidPhase, snap.Phase)
	}
	snap := state.snapshot
	platformID := snap.PlatformID
	s.mu.Unlock()

	// The backend's connected list is the only proof the provider flow
	// actually finished; a returned popup alone proves nothing.
	records, err := s.client.ConnectedPlatforms(ctx)
	if err != nil {
		return snap, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	var confirmed *domain.ConnectedPlatform
	for _, r := range records {
		if r.Platform == platformID {
			cp := r.ToDomain()
			confirmed = &cp
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byPlatform[platformID]
	if !ok || current.snapshot.ID != snap.ID {
		// Ended while we were querying; a duplicate confirmation lands here.
		if terminal, hit := s.recentTerminal.Get(snap.ID); hit {
			return terminal, nil
		}
		return snap, fmt.Errorf("%w: %s", domain.ErrNoActiveAttempt, snap.ID)
	}

	if confirmed == nil {
		// Control came back without the backend recording the connection, so
		// the provider flow was abandoned. The attempt resolves as cancelled
		// and the store is left alone.
		log.Info("OAuth flow returned unconfirmed, attempt cancelled",
			"platform", platformID, "attempt_id", snap.ID)
		cancelled := s.failLocked(ctx, current, domain.ReasonUserCancelled, nil)
		return cancelled, nil
	}

	log.Info("OAuth connection confirmed", "platform", platformID, "attempt_id", snap.ID)
	done := s.succeedWithRecordLocked(ctx, current, confirmed)
	return done, nil
}

func (s *service) Cancel(ctx context.Context, attemptID string) (domain.ConnectionAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.findLocked(attemptID)
	if err != nil {
		return domain.ConnectionAttempt{}, err
	}

	switch state.snapshot.Phase {
	case domain.PhaseAwaitingOAuthRedirect, domain.PhaseAwaitingCredentials:
	default:
		return state.snapshot, fmt.Errorf("%w: %s", domain.ErrInvalidPhase, state.snapshot.Phase)
	}

	logger.FromContext(ctx).Info("Connection attempt cancelled",
		"platform", state.snapshot.PlatformID, "attempt_id", attemptID)
	cancelled := s.failLocked(ctx, state, domain.ReasonUserCancelled, nil)
	return cancelled, nil
}

func (s *service) Disconnect(ctx context.Context, platformID string) error {
	log := logger.FromContext(ctx)

	if !s.store.IsConnected(platformID) {
		return fmt.Errorf("%w: %s", domain.ErrNotConnected, platformID)
	}

	s.mu.Lock()
	if inflight, ok := s.disconnects[platformID]; ok {
		s.mu.Unlock()
		select {
		case <-inflight.done:
			return inflight.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	inflight := &inflightDisconnect{done: make(chan struct{})}
	s.disconnects[platformID] = inflight
	s.mu.Unlock()

	err := s.client.Disconnect(ctx, platformID)
	if err != nil {
		metrics.Disconnects.WithLabelValues(platformID, metrics.ResultFailed).Inc()
		log.Warn("Disconnect failed, platform stays connected", "platform", platformID, "error", err)
		err = fmt.Errorf("%w: %w", domain.ErrDisconnectFailed, err)
	} else {
		metrics.Disconnects.WithLabelValues(platformID, metrics.ResultSucceeded).Inc()
		log.Info("Platform disconnected", "platform", platformID)
		s.store.Apply(ctx, store.Mutation{RemovePlatformID: platformID})
	}

	s.mu.Lock()
	delete(s.disconnects, platformID)
	s.mu.Unlock()

	inflight.err = err
	close(inflight.done)
	return err
}

func (s *service) Attempts() []domain.ConnectionAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ConnectionAttempt, 0, len(s.byPlatform))
	for _, state := range s.byPlatform {
		out = append(out, state.snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (s *service) Attempt(attemptID string) (domain.ConnectionAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, err := s.findLocked(attemptID); err == nil {
		return state.snapshot, nil
	}
	if terminal, ok := s.recentTerminal.Get(attemptID); ok {
		return terminal, nil
	}
	return domain.ConnectionAttempt{}, fmt.Errorf("%w: %s", domain.ErrNoActiveAttempt, attemptID)
}

// findLocked requires mu held.
func (s *service) findLocked(attemptID string) (*attemptState, error) {
	for _, state := range s.byPlatform {
		if state.snapshot.ID == attemptID {
			return state, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNoActiveAttempt, attemptID)
}

// failLocked moves the attempt to the failed phase and retires it. Requires
// mu held. err may be nil for user cancellation.
func (s *service) failLocked(ctx context.Context, state *attemptState, reason domain.FailureReason, err error) domain.ConnectionAttempt {
	state.snapshot.Phase = domain.PhaseFailed
	state.snapshot.Reason = reason
	if err != nil {
		state.snapshot.LastError = err.Error()
	}
	state.snapshot.UpdatedAt = time.Now().UTC()

	metrics.ConnectAttempts.WithLabelValues(state.snapshot.PlatformID, metrics.ResultFailed).Inc()
	return s.retireLocked(ctx, state)
}

// succeedLocked marks the attempt succeeded and records the connection
// locally with the submission time. Requires mu held.
func (s *service) succeedLocked(ctx context.Context, state *attemptState) domain.ConnectionAttempt {
	return s.succeedWithRecordLocked(ctx, state, &domain.ConnectedPlatform{
		PlatformID:  state.snapshot.PlatformID,
		ConnectedAt: time.Now().UTC(),
	})
}

// succeedWithRecordLocked requires mu held.
func (s *service) succeedWithRecordLocked(ctx context.Context, state *attemptState, record *domain.ConnectedPlatform) domain.ConnectionAttempt {
	state.snapshot.Phase = domain.PhaseSucceeded
	state.snapshot.UpdatedAt = time.Now().UTC()

	metrics.ConnectAttempts.WithLabelValues(state.snapshot.PlatformID, metrics.ResultSucceeded).Inc()
	done := s.retireLocked(ctx, state)
	s.store.Apply(ctx, store.Mutation{Insert: record})
	return done
}

// retireLocked removes a terminal attempt from active tracking, wipes its
// entered values, caches the snapshot, and publishes the transition. Requires
// mu held.
func (s *service) retireLocked(ctx context.Context, state *attemptState) domain.ConnectionAttempt {
	for name := range state.entered {
		delete(state.entered, name)
	}
	delete(s.byPlatform, state.snapshot.PlatformID)

	snap := state.snapshot
	s.recentTerminal.Add(snap.ID, snap)
	s.publish(ctx, snap)
	return snap
}

func (s *service) publish(ctx context.Context, snap domain.ConnectionAttempt) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event.NewAttemptUpdatedEvent(snap)); err != nil {
		logger.FromContext(ctx).Warn("Attempt event publish failed",
			"attempt_id", snap.ID, "error", err)
	}
}

// credentialFields builds the field list from the initiation response,
// falling back to the catalog descriptor when the response omits it.
func credentialFields(names []string, desc domain.PlatformDescriptor) []domain.CredentialField {
	if len(names) == 0 {
		return desc.RequiredCredentialFields
	}
	fields := make([]domain.CredentialField, 0, len(names))
	for _, name := range names {
		fields = append(fields, domain.CredentialField{
			Name:      name,
			Sensitive: domain.SensitiveFieldName(name),
		})
	}
	return fields
}

func missingFields(required []domain.CredentialField, entered map[string]string) []string {
	var missing []string
	for _, f := range required {
		if entered[f.Name] == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
