package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-login-bridge/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const accountLinkCacheKeyPrefix = "login-bridge::account_link::v1"

// CachedAccountLinkStore fronts an AccountLinkStore with read-through caching
// on FindByUser. Writes invalidate before they return so a successful login
// is never shadowed by a stale link.
type CachedAccountLinkStore struct {
	base  core.AccountLinkStore
	cache repositorycache.CacheService
}

func NewCachedAccountLinkStore(
	base core.AccountLinkStore,
	cacheService repositorycache.CacheService,
) (*CachedAccountLinkStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base account link store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: account link cache service is required")
	}
	return &CachedAccountLinkStore{base: base, cache: cacheService}, nil
}

// AccountLinkCacheKey returns the deterministic cache key for one user's
// link: login-bridge::account_link::v1::<user_id> with the segment URL-path
// escaped.
func AccountLinkCacheKey(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("sqlstore: user id is required")
	}
	return accountLinkCacheKeyPrefix + "::" + url.PathEscape(userID), nil
}

func (s *CachedAccountLinkStore) Upsert(ctx context.Context, link core.LinkedAccount) (core.LinkedAccount, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: cached account link store is not configured")
	}
	out, err := s.base.Upsert(ctx, link)
	if err != nil {
		return core.LinkedAccount{}, err
	}
	cacheKey, keyErr := AccountLinkCacheKey(out.UserID)
	if keyErr != nil {
		return core.LinkedAccount{}, keyErr
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.LinkedAccount{}, err
	}
	return out, nil
}

func (s *CachedAccountLinkStore) FindByUser(ctx context.Context, userID string) (core.LinkedAccount, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: cached account link store is not configured")
	}
	cacheKey, err := AccountLinkCacheKey(userID)
	if err != nil {
		return core.LinkedAccount{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.LinkedAccount, error) {
		return s.base.FindByUser(ctx, strings.TrimSpace(userID))
	})
}

func (s *CachedAccountLinkStore) DeleteByUser(ctx context.Context, userID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached account link store is not configured")
	}
	if err := s.base.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	cacheKey, err := AccountLinkCacheKey(userID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
