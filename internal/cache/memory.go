package cache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry はインメモリキャッシュの1エントリ。
type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache はプロセス内メモリを使用したCacheの実装。
// Redisが設定されていない環境でのフォールバックとして使用する。
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache はMemoryCacheの新しいインスタンスを生成する。
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
	}
}

// GetOrAdd はキーに対応する値を返す。期限切れまたは未格納の場合は
// factoryで生成した値をTTL付きで格納してから返す。
func (c *MemoryCache) GetOrAdd(ctx context.Context, key string, ttl time.Duration, factory Factory) (string, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	val, err := factory(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{value: val, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	return val, nil
}

// Delete は指定キーのエントリを削除する。
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
