package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache はRedisを使用したCacheの実装。
// Redisに接続できない場合もファクトリ関数にフォールバックするため、
// Redisの障害は応答の劣化（キャッシュなし動作）に留まる。
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache はRedisCacheの新しいインスタンスを生成する。
func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// GetOrAdd はキーに対応する値を返す。キャッシュミス・Redis障害時は
// factoryで生成した値を返し、可能であればRedisに格納する。
func (c *RedisCache) GetOrAdd(ctx context.Context, key string, ttl time.Duration, factory Factory) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, redis.Nil) {
		// キャッシュミス以外のエラーはログに残してファクトリにフォールバック
		c.logger.Warn("キャッシュの取得に失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	val, err = factory(ctx)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
		c.logger.Warn("キャッシュの格納に失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return val, nil
}

// Delete は指定キーのエントリを削除する。
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("キャッシュの削除に失敗しました: %w", err)
	}
	return nil
}
