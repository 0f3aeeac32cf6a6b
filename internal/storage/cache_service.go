package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CacheService provides high-level caching for the fund's read views.
// Views are cheap to recompute, so a short TTL plus invalidation on every
// committed mutation keeps reads fresh.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyFundInfo is for the fund summary view
	CacheKeyFundInfo CacheKeyType = "fundinfo"
	// CacheKeyProposal is for proposal views
	CacheKeyProposal CacheKeyType = "proposal"
	// CacheKeyBalance is for per-principal balance views
	CacheKeyBalance CacheKeyType = "balance"
)

// GenerateCacheKey generates a cache key for a given type and parameters
// Format: <type>:<param1>:<param2>:...
func (c *CacheService) GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	normalizedParams := make([]string, len(params))
	for i, param := range params {
		normalizedParams[i] = strings.ToLower(param)
	}

	parts := append([]string{string(keyType)}, normalizedParams...)
	return strings.Join(parts, ":")
}

// FundInfoKey generates the cache key for the fund summary
// Format: fundinfo
func (c *CacheService) FundInfoKey() string {
	return c.GenerateCacheKey(CacheKeyFundInfo)
}

// ProposalKey generates a cache key for a proposal view
// Format: proposal:<id>
func (c *CacheService) ProposalKey(id uint64) string {
	return c.GenerateCacheKey(CacheKeyProposal, fmt.Sprintf("%d", id))
}

// BalanceKey generates a cache key for a principal's balance view
// Format: balance:<principal>
func (c *CacheService) BalanceKey(principal string) string {
	return c.GenerateCacheKey(CacheKeyBalance, principal)
}

// Set stores a value in cache with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores a value in cache with a custom TTL
func (c *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redis.Set(ctx, key, data, ttl)
}

// Get retrieves a value from cache and deserializes it
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		// Key not found is not an error, just a cache miss
		if err.Error() == "redis: nil" {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

// Invalidate removes one or more keys from cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...)
}

// InvalidatePattern removes all keys matching a pattern
// Pattern examples: "proposal:*", "balance:0x123*"
func (c *CacheService) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := c.redis.Keys(ctx, pattern)
	if err != nil {
		return fmt.Errorf("failed to find keys matching pattern: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	return c.redis.Del(ctx, keys...)
}

// InvalidateFund drops the fund summary and all balance views. Called after
// any committed share-ledger mutation.
func (c *CacheService) InvalidateFund(ctx context.Context) error {
	if err := c.Invalidate(ctx, c.FundInfoKey()); err != nil {
		return fmt.Errorf("failed to invalidate fund info cache: %w", err)
	}
	return c.InvalidatePattern(ctx, string(CacheKeyBalance)+":*")
}

// InvalidateProposal drops a proposal view after a vote or execution
func (c *CacheService) InvalidateProposal(ctx context.Context, id uint64) error {
	return c.Invalidate(ctx, c.ProposalKey(id))
}

// Exists checks if a key exists in cache
func (c *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	return c.redis.Exists(ctx, key)
}

// GetTTL returns the configured TTL for this cache service
func (c *CacheService) GetTTL() time.Duration {
	return c.ttl
}
