package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/relaywatch/go-relaywatch/core"
)

const credentialCacheKeyPrefix = "go-relaywatch::tenant_credentials::v1"

// CachedCredentialStore layers a read-through cache over credential lookups.
// Credentials change rarely and are read on every inbound notification.
type CachedCredentialStore struct {
	base  core.CredentialStore
	cache repositorycache.CacheService
}

func NewCachedCredentialStore(
	base core.CredentialStore,
	cacheService repositorycache.CacheService,
) (*CachedCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	return &CachedCredentialStore{base: base, cache: cacheService}, nil
}

// CredentialCacheKey returns the deterministic cache key contract for
// credential reads: go-relaywatch::tenant_credentials::v1::<kind>::<id>
// with the id segment URL-path escaped.
func CredentialCacheKey(kind string, id string) (string, error) {
	kind = strings.TrimSpace(kind)
	id = strings.TrimSpace(id)
	if kind == "" || id == "" {
		return "", fmt.Errorf("sqlstore: cache key kind and id are required")
	}
	return strings.Join([]string{credentialCacheKeyPrefix, kind, url.PathEscape(id)}, "::"), nil
}

func (s *CachedCredentialStore) GetByAccountID(ctx context.Context, accountID string) (core.TenantCredentials, error) {
	return s.fetch(ctx, "account", accountID, func(ctx context.Context) (core.TenantCredentials, error) {
		return s.base.GetByAccountID(ctx, accountID)
	})
}

func (s *CachedCredentialStore) GetByTenantID(ctx context.Context, tenantID string) (core.TenantCredentials, error) {
	return s.fetch(ctx, "tenant", tenantID, func(ctx context.Context) (core.TenantCredentials, error) {
		return s.base.GetByTenantID(ctx, tenantID)
	})
}

// Invalidate drops both cache entries for a credential row after a write.
func (s *CachedCredentialStore) Invalidate(ctx context.Context, accountID string, tenantID string) error {
	if s == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if accountID = strings.TrimSpace(accountID); accountID != "" {
		key, err := CredentialCacheKey("account", accountID)
		if err != nil {
			return err
		}
		if err := s.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	if tenantID = strings.TrimSpace(tenantID); tenantID != "" {
		key, err := CredentialCacheKey("tenant", tenantID)
		if err != nil {
			return err
		}
		if err := s.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *CachedCredentialStore) fetch(
	ctx context.Context,
	kind string,
	id string,
	loader func(ctx context.Context) (core.TenantCredentials, error),
) (core.TenantCredentials, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.TenantCredentials{}, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	cacheKey, err := CredentialCacheKey(kind, id)
	if err != nil {
		return core.TenantCredentials{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, loader)
}

var _ core.CredentialStore = (*CachedCredentialStore)(nil)
