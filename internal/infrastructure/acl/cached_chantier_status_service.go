package acl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domainacl "github.com/chantier/backend/internal/domain/shared/acl"
)

// DefaultStatutTTL bounds how stale a cached chantier state may be. A
// chantier closed in the owning context is refused by the ledger at most
// this long after the fact.
const DefaultStatutTTL = 30 * time.Second

// CachedChantierStatusService decorates a ChantierStatusService with a
// short-TTL Redis cache. Chantier state is read on every financial write,
// so the guard would otherwise hammer the owning context's table.
type CachedChantierStatusService struct {
	inner     domainacl.ChantierStatusService
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewCachedChantierStatusService creates a caching decorator around inner.
// A zero ttl falls back to DefaultStatutTTL.
func NewCachedChantierStatusService(inner domainacl.ChantierStatusService, client *redis.Client, ttl time.Duration) *CachedChantierStatusService {
	if ttl <= 0 {
		ttl = DefaultStatutTTL
	}
	return &CachedChantierStatusService{
		inner:     inner,
		client:    client,
		keyPrefix: "chantier:statut:",
		ttl:       ttl,
	}
}

// GetStatut returns the cached state when fresh, otherwise asks the inner
// service and caches the answer. Cache failures degrade to the inner
// service instead of failing the caller.
func (s *CachedChantierStatusService) GetStatut(ctx context.Context, chantierID uuid.UUID) (domainacl.StatutChantier, error) {
	key := s.keyPrefix + chantierID.String()

	cached, err := s.client.Get(ctx, key).Result()
	if err == nil && cached != "" {
		return domainacl.StatutChantier(cached), nil
	}

	statut, err := s.inner.GetStatut(ctx, chantierID)
	if err != nil {
		return "", err
	}

	// best effort, a failed SET only costs the next caller a lookup
	_ = s.client.Set(ctx, key, statut.String(), s.ttl).Err()

	return statut, nil
}

// ChantierExists checks existence. A cached state implies existence; the
// miss path delegates without caching, unknown chantiers stay uncached so
// a freshly created one is visible immediately.
func (s *CachedChantierStatusService) ChantierExists(ctx context.Context, chantierID uuid.UUID) (bool, error) {
	key := s.keyPrefix + chantierID.String()

	exists, err := s.client.Exists(ctx, key).Result()
	if err == nil && exists > 0 {
		return true, nil
	}

	return s.inner.ChantierExists(ctx, chantierID)
}

// Invalidate drops the cached state of a chantier
func (s *CachedChantierStatusService) Invalidate(ctx context.Context, chantierID uuid.UUID) error {
	return s.client.Del(ctx, s.keyPrefix+chantierID.String()).Err()
}

// Ensure CachedChantierStatusService implements ChantierStatusService
var _ domainacl.ChantierStatusService = (*CachedChantierStatusService)(nil)
