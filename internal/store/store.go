// Package store holds the in-memory record of which platforms the backend
// confirms as connected. It is the single local source of truth for connection
// membership; the orchestrator mutates it on confirmed transitions and refresh
// replaces it wholesale from the backend.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/crosspostme/crosspost-agent/internal/backend"
	"github.com/crosspostme/crosspost-agent/internal/domain"
	"github.com/crosspostme/crosspost-agent/internal/event"
	"github.com/crosspostme/crosspost-agent/internal/logger"
	"github.com/crosspostme/crosspost-agent/internal/metrics"
)

// Mutation is a single targeted change applied on a confirmed transition.
// Exactly one field should be set.
type Mutation struct {
	// Insert adds or replaces the record for its platform.
	Insert *domain.ConnectedPlatform

	// RemovePlatformID deletes the record for the named platform, if present.
	RemovePlatformID string
}

// Observer is notified after every snapshot change with the new snapshot.
// The slice is a private copy; observers may retain it.
type Observer func(snapshot []domain.ConnectedPlatform)

// Store tracks connected platforms.
type Store interface {
	// Refresh replaces the snapshot with the backend's current list. On
	// failure the previous snapshot is retained and ErrFetchFailed returned.
	Refresh(ctx context.Context) error

	// IsConnected reports whether the platform has a connection record.
	IsConnected(platformID string) bool

	// Snapshot returns a copy of all connection records, sorted by platform ID.
	Snapshot() []domain.ConnectedPlatform

	// Apply performs a targeted mutation and notifies observers.
	Apply(ctx context.Context, m Mutation)

	// Subscribe registers an observer. The returned function unsubscribes it.
	Subscribe(obs Observer) func()
}

type memoryStore struct {
	client backend.Client
	bus    event.Bus

	mu        sync.RWMutex
	records   map[string]domain.ConnectedPlatform
	refreshed bool

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObsID int
}

// New creates an empty store backed by the given client. The bus receives a
// snapshot event after every change; it may be nil.
func New(client backend.Client, bus event.Bus) Store {
	return &memoryStore{
		client:    client,
		bus:       bus,
		records:   make(map[string]domain.ConnectedPlatform),
		observers: make(map[int]Observer),
	}
}

func (s *memoryStore) Refresh(ctx context.Context) error {
	log := logger.FromContext(ctx)

	recs, err := s.client.ConnectedPlatforms(ctx)
	if err != nil {
		metrics.StoreRefreshes.WithLabelValues(metrics.ResultFailed).Inc()
		log.Warn("connected platforms refresh failed, keeping previous snapshot", "error", err)
		return fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	next := make(map[string]domain.ConnectedPlatform, len(recs))
	for _, r := range recs {
		cp := r.ToDomain()
		if cp.PlatformID == "" {
			continue
		}
		// The backend holds at most one record per platform; last wins if it
		// ever sends duplicates.
		next[cp.PlatformID] = cp
	}

	s.mu.Lock()
	s.records = next
	s.refreshed = true
	s.mu.Unlock()

	metrics.StoreRefreshes.WithLabelValues(metrics.ResultSucceeded).Inc()
	log.Debug("connected platforms refreshed", "count", len(next))
	s.changed(ctx)
	return nil
}

func (s *memoryStore) IsConnected(platformID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[platformID]
	return ok
}

func (s *memoryStore) Snapshot() []domain.ConnectedPlatform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// snapshotLocked requires at least a read lock.
func (s *memoryStore) snapshotLocked() []domain.ConnectedPlatform {
	out := make([]domain.ConnectedPlatform, 0, len(s.records))
	for _, cp := range s.records {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlatformID < out[j].PlatformID })
	return out
}

func (s *memoryStore) Apply(ctx context.Context, m Mutation) {
	s.mu.Lock()
	switch {
	case m.Insert != nil:
		s.records[m.Insert.PlatformID] = *m.Insert
	case m.RemovePlatformID != "":
		delete(s.records, m.RemovePlatformID)
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.changed(ctx)
}

func (s *memoryStore) Subscribe(obs Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = obs

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// changed notifies observers and the bus with a fresh snapshot copy. Called
// without holding mu.
func (s *memoryStore) changed(ctx context.Context) {
	snap := s.Snapshot()

	s.obsMu.Lock()
	obs := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	s.obsMu.Unlock()

	for _, o := range obs {
		o(snap)
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, event.NewSnapshotUpdatedEvent(snap)); err != nil {
			logger.FromContext(ctx).Warn("snapshot event publish failed", "error", err)
		}
	}
}
