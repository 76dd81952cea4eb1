package credentials

import (
	"fmt"
	"time"

	"github.com/searchlens/searchlens/internal/pkg/cache"
)

// connectedTTL bounds how long a positive connection-status answer may be
// served without hitting the database.
const connectedTTL = 30 * time.Second

// StatusCache caches "is provider P connected for user U" answers. Only
// positive answers are stored; revoke invalidates eagerly.
type StatusCache interface {
	GetConnected(userID uint, provider string) (connected bool, ok bool)
	SetConnected(userID uint, provider string)
	Invalidate(userID uint, provider string)
}

// RedisStatusCache backs the status cache with the shared Redis connection.
type RedisStatusCache struct{}

// NewRedisStatusCache creates a Redis-backed status cache
func NewRedisStatusCache() *RedisStatusCache {
	return &RedisStatusCache{}
}

func statusKey(userID uint, provider string) string {
	return fmt.Sprintf("connections:%d:%s", userID, provider)
}

// GetConnected returns the cached status, ok=false on miss or cache error
func (c *RedisStatusCache) GetConnected(userID uint, provider string) (bool, bool) {
	val, err := cache.Get(statusKey(userID, provider))
	if err != nil {
		return false, false
	}
	return val == "1", true
}

// SetConnected marks the pair as connected, best-effort
func (c *RedisStatusCache) SetConnected(userID uint, provider string) {
	_ = cache.Set(statusKey(userID, provider), "1", connectedTTL)
}

// Invalidate drops the cached status, best-effort
func (c *RedisStatusCache) Invalidate(userID uint, provider string) {
	_ = cache.Delete(statusKey(userID, provider))
}

// noopStatusCache is used when no cache is wired (tests, single-binary dev).
type noopStatusCache struct{}

func (noopStatusCache) GetConnected(uint, string) (bool, bool) { return false, false }
func (noopStatusCache) SetConnected(uint, string)              {}
func (noopStatusCache) Invalidate(uint, string)                {}
