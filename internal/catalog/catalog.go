package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crosspostme/crosspost-agent/internal/backend"
	"github.com/crosspostme/crosspost-agent/internal/domain"
	"github.com/crosspostme/crosspost-agent/internal/logger"
)

// Catalog is a loaded snapshot of the supported-platform list. Stale is set
// when a reload failed and the entries come from an earlier successful load.
type Catalog struct {
	Platforms []domain.PlatformDescriptor `json:"platforms"`
	Stale     bool                        `json:"stale"`
	LoadedAt  time.Time                   `json:"loaded_at"`
}

// Service exposes the platform catalog.
type Service interface {
	// Load fetches the catalog once per session and returns the cached copy
	// on subsequent calls.
	Load(ctx context.Context) (*Catalog, error)

	// Reload refetches the catalog. When the refetch fails and a cache
	// exists, the cached copy is returned with Stale set instead of an
	// error - a failed refresh never blocks a UI that already has entries.
	Reload(ctx context.Context) (*Catalog, error)

	// Describe returns the descriptor for a platform ID.
	Describe(ctx context.Context, platformID string) (domain.PlatformDescriptor, error)
}

type service struct {
	client backend.Client

	mu     sync.Mutex
	cached *Catalog
}

// NewService creates a catalog service backed by the given client.
func NewService(client backend.Client) Service {
	return &service{client: client}
}

func (s *service) Load(ctx context.Context) (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached.copy(), nil
	}
	return s.fetchLocked(ctx)
}

func (s *service) Reload(ctx context.Context) (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh, err := s.fetchLocked(ctx)
	if err == nil {
		return fresh, nil
	}
	if s.cached != nil {
		logger.FromContext(ctx).Warn("Catalog refresh failed, serving cached copy", "error", err)
		stale := s.cached.copy()
		stale.Stale = true
		return stale, nil
	}
	return nil, err
}

func (s *service) Describe(ctx context.Context, platformID string) (domain.PlatformDescriptor, error) {
	cat, err := s.Load(ctx)
	if err != nil {
		return domain.PlatformDescriptor{}, err
	}
	for _, desc := range cat.Platforms {
		if desc.ID == platformID {
			return desc, nil
		}
	}
	return domain.PlatformDescriptor{}, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, platformID)
}

// fetchLocked fetches and caches the catalog. Caller holds s.mu.
func (s *service) fetchLocked(ctx context.Context) (*Catalog, error) {
	log := logger.FromContext(ctx)

	platforms, err := s.client.SupportedPlatforms(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	descriptors := make([]domain.PlatformDescriptor, 0, len(platforms))
	for id, entry := range platforms {
		descriptors = append(descriptors, toDescriptor(id, entry))
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].ID < descriptors[j].ID
	})

	s.cached = &Catalog{
		Platforms: descriptors,
		LoadedAt:  time.Now(),
	}

	log.Info("Platform catalog loaded", "platforms", len(descriptors))
	return s.cached.copy(), nil
}

// toDescriptor converts a backend catalog entry to the domain descriptor.
// Field sensitivity falls back to name-based detection when the backend does
// not mark fields.
func toDescriptor(id string, entry backend.SupportedPlatform) domain.PlatformDescriptor {
	method := domain.AuthMethodCredentials
	if entry.OAuthAvailable {
		method = domain.AuthMethodOAuth
	}

	var fields []domain.CredentialField
	for _, name := range entry.CredentialsNeeded {
		fields = append(fields, domain.CredentialField{
			Name:      name,
			Sensitive: domain.SensitiveFieldName(name),
		})
	}

	return domain.PlatformDescriptor{
		ID:                       id,
		DisplayName:              entry.Name,
		AuthMethod:               method,
		RequiredCredentialFields: fields,
		Description:              entry.Description,
		Features:                 entry.Features,
		SecurityNote:             firstNonEmpty(entry.SecurityNote, entry.Note),
		Instructions:             entry.Instructions,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Catalog) copy() *Catalog {
	dup := &Catalog{
		Platforms: make([]domain.PlatformDescriptor, len(c.Platforms)),
		Stale:     c.Stale,
		LoadedAt:  c.LoadedAt,
	}
	copy(dup.Platforms, c.Platforms)
	return dup
}
