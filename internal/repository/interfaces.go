// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/notifyman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithConfig はユーザーとメッセージ設定を同一トランザクションで作成する。
	CreateWithConfig(ctx context.Context, user *model.User, cfg *model.MessageConfig) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するmessage_configs、messages、colid_entry_subscriptions、
	// saved_searches（およびstored_queries）はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// MessageConfigRepository はメッセージ設定の永続化インターフェース。
type MessageConfigRepository interface {
	// FindByUserID は指定ユーザーのメッセージ設定を取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.MessageConfig, error)

	// UpdateWithMessages は設定と再計算済みメッセージ群を単一トランザクションで更新する。
	// ユーザー集約全体をひとつの単位として書き込み、部分適用は発生しない。
	UpdateWithMessages(ctx context.Context, cfg *model.MessageConfig, messages []*model.Message) error
}

// MessageRepository はメッセージデータの永続化インターフェース。
type MessageRepository interface {
	// FindByID は指定IDのメッセージを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Message, error)

	// Create はメッセージを作成する。
	Create(ctx context.Context, message *model.Message) error

	// Update はメッセージのタイムスタンプ等を上書き更新する。
	Update(ctx context.Context, message *model.Message) error

	// ListByUserID はユーザーの全メッセージを作成日時昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Message, error)
}

// SubscriptionRepository はカタログエントリ購読の永続化インターフェース。
type SubscriptionRepository interface {
	// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ColidEntrySubscription, error)

	// FindByUserAndEntry はユーザーIDとエントリURIで購読を検索する。見つからない場合はnilを返す。
	FindByUserAndEntry(ctx context.Context, userID, colidPidURI string) (*model.ColidEntrySubscription, error)

	// Create は購読を作成する。
	Create(ctx context.Context, sub *model.ColidEntrySubscription) error

	// ListByEntry は指定エントリの全購読者の購読一覧を返す。
	ListByEntry(ctx context.Context, colidPidURI string) ([]*model.ColidEntrySubscription, error)

	// ListByUserID はユーザーの購読一覧を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.ColidEntrySubscription, error)

	// Delete は指定IDの購読を削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByEntry は指定エントリを指す全ユーザーの購読を削除し、削除件数を返す。
	DeleteByEntry(ctx context.Context, colidPidURI string) (int64, error)

	// CountByEntries は要求されたエントリごとの購読者数を返す。
	// 購読者が0のエントリも結果に0件として含まれる。
	CountByEntries(ctx context.Context, colidPidURIs []string) (map[string]int, error)
}

// SavedSearchRepository は保存済み検索とストアドクエリの永続化インターフェース。
type SavedSearchRepository interface {
	// FindByID は指定IDの保存済み検索をストアドクエリ付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.SavedSearch, error)

	// Create は保存済み検索を作成する。
	// StoredQueryが設定されている場合は同一トランザクションで作成する。
	Create(ctx context.Context, search *model.SavedSearch) error

	// ListByUserID はユーザーの保存済み検索一覧をストアドクエリ付きで返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.SavedSearch, error)

	// ListScheduled はストアドクエリが紐付く全保存済み検索を返す。
	// dueかどうかの判定は呼び出し側（ChangeDetector）が行う。
	ListScheduled(ctx context.Context) ([]*model.SavedSearch, error)

	// UpdateStoredQuery はストアドクエリの評価状態（ハッシュ・件数・最終実行日時）を更新する。
	UpdateStoredQuery(ctx context.Context, sq *model.StoredQuery) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
