package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-copilot/core"
)

const identityCacheKeyPrefix = "go-copilot::identity_binding::v1"

// CachedIdentityStore fronts identity resolution with a read-through cache.
// Resolution runs on every inbound mention, so lookups dominate writes; Bind
// invalidates the affected key so a superseded binding is never served stale.
type CachedIdentityStore struct {
	base  core.IdentityStore
	cache repositorycache.CacheService
}

func NewCachedIdentityStore(
	base core.IdentityStore,
	cacheService repositorycache.CacheService,
) (*CachedIdentityStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base identity store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: identity cache service is required")
	}
	return &CachedIdentityStore{base: base, cache: cacheService}, nil
}

// IdentityBindingCacheKey returns the deterministic cache key contract for
// identity resolution: go-copilot::identity_binding::v1::<provider>::<external_id>
// with each segment URL-path escaped after normalization.
func IdentityBindingCacheKey(provider, externalID string) (string, error) {
	provider = normalizeProvider(provider)
	externalID = strings.TrimSpace(externalID)
	if provider == "" || externalID == "" {
		return "", fmt.Errorf("sqlstore: provider and external id are required for cache key")
	}
	segments := []string{url.PathEscape(provider), url.PathEscape(externalID)}
	return strings.Join(append([]string{identityCacheKeyPrefix}, segments...), "::"), nil
}

type cachedResolution struct {
	Binding core.IdentityBinding
	Found   bool
}

func (s *CachedIdentityStore) Resolve(ctx context.Context, provider string, externalID string) (core.IdentityBinding, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.IdentityBinding{}, false, fmt.Errorf("sqlstore: cached identity store is not configured")
	}
	cacheKey, err := IdentityBindingCacheKey(provider, externalID)
	if err != nil {
		return core.IdentityBinding{}, false, err
	}

	resolution, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedResolution, error) {
		binding, found, fetchErr := s.base.Resolve(ctx, provider, externalID)
		if fetchErr != nil {
			return cachedResolution{}, fetchErr
		}
		return cachedResolution{Binding: binding, Found: found}, nil
	})
	if err != nil {
		return core.IdentityBinding{}, false, err
	}
	return resolution.Binding, resolution.Found, nil
}

func (s *CachedIdentityStore) Bind(ctx context.Context, in core.BindIdentityInput) (core.IdentityBinding, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.IdentityBinding{}, fmt.Errorf("sqlstore: cached identity store is not configured")
	}
	bound, err := s.base.Bind(ctx, in)
	if err != nil {
		return core.IdentityBinding{}, err
	}

	cacheKey, err := IdentityBindingCacheKey(in.Provider, in.ExternalID)
	if err != nil {
		return core.IdentityBinding{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.IdentityBinding{}, err
	}
	return bound, nil
}

func (s *CachedIdentityStore) ListByUser(ctx context.Context, userID string) ([]core.IdentityBinding, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached identity store is not configured")
	}
	return s.base.ListByUser(ctx, userID)
}
