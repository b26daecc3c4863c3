package storage

import (
	"context"
	"strings"
	"time"

	"github.com/lucra-chat/internal/types"
	"github.com/lucra-chat/internal/wallet"
)

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyUser maps a wallet address to its user id
	CacheKeyUser CacheKeyType = "user"
	// CacheKeyBalance is for native balances
	CacheKeyBalance CacheKeyType = "balance"
)

// CacheService provides typed caching on top of RedisCache
type CacheService struct {
	redis   *RedisCache
	userTTL time.Duration
	balTTL  time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, userTTL, balanceTTL time.Duration) *CacheService {
	return &CacheService{
		redis:   redis,
		userTTL: userTTL,
		balTTL:  balanceTTL,
	}
}

// GenerateCacheKey generates a cache key for a given type and parameters
// Format: <type>:<param1>:<param2>:...
// Params are normalized like wallet addresses, so Solana keys keep their case.
func GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, string(keyType))
	for _, param := range params {
		parts = append(parts, wallet.NormalizeAddress(param))
	}
	return strings.Join(parts, ":")
}

// GetUserID returns the cached user id for a wallet address
func (c *CacheService) GetUserID(ctx context.Context, walletAddress string) (string, bool, error) {
	return c.redis.lookup(ctx, GenerateCacheKey(CacheKeyUser, walletAddress))
}

// SetUserID caches the user id for a wallet address
func (c *CacheService) SetUserID(ctx context.Context, walletAddress, userID string) error {
	return c.redis.store(ctx, GenerateCacheKey(CacheKeyUser, walletAddress), userID, c.userTTL)
}

// GetBalance returns a cached balance
func (c *CacheService) GetBalance(ctx context.Context, chain types.ChainID, address string) (*types.ChainBalance, bool, error) {
	var balance types.ChainBalance
	found, err := c.redis.lookupJSON(ctx, GenerateCacheKey(CacheKeyBalance, string(chain), address), &balance)
	if err != nil || !found {
		return nil, false, err
	}
	return &balance, true, nil
}

// SetBalance caches a balance for the configured balance TTL
func (c *CacheService) SetBalance(ctx context.Context, balance *types.ChainBalance) error {
	return c.redis.storeJSON(ctx, GenerateCacheKey(CacheKeyBalance, string(balance.Chain), balance.Address), balance, c.balTTL)
}

// InvalidateBalance drops a cached balance, used after a transaction is confirmed
func (c *CacheService) InvalidateBalance(ctx context.Context, chain types.ChainID, address string) error {
	return c.redis.forget(ctx, GenerateCacheKey(CacheKeyBalance, string(chain), address))
}
