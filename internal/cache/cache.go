// Package cache は文字列値のread-throughキャッシュを提供する。
//
// キャッシュは常に補助的な存在であり、取得失敗時はファクトリ関数の結果を
// そのまま返す。キャッシュ障害がアプリケーションの動作を止めることはない。
package cache

import (
	"context"
	"time"
)

// Factory はキャッシュミス時に値を生成する関数。
type Factory func(ctx context.Context) (string, error)

// Cache は文字列値のread-throughキャッシュのインターフェース。
type Cache interface {
	// GetOrAdd はキーに対応する値を返す。キャッシュに無い場合は
	// factoryで生成した値をTTL付きで格納してから返す。
	GetOrAdd(ctx context.Context, key string, ttl time.Duration, factory Factory) (string, error)

	// Delete は指定キーのエントリを削除する。存在しないキーはエラーにしない。
	Delete(ctx context.Context, key string) error
}
