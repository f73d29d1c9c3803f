// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/hitoshi/notifyman/internal/interval"
)

// SavedSearch はユーザーが保存した検索フィルタを表す。
// StoredQueryが紐付く場合のみ自動再評価の対象となる（1:1、任意）。
type SavedSearch struct {
	ID          string
	UserID      string
	Name        string
	FilterJSON  string // 検索バックエンドに渡すフィルタ/クエリ定義
	StoredQuery *StoredQuery
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StoredQuery は保存済み検索の自動再評価状態を表す。
// 評価のたびに（結果が変化したかどうかに関わらず）ChangeDetectorだけが更新し、
// dueクロックは常に直近の実行時刻から進む。
type StoredQuery struct {
	ID                  string
	SavedSearchID       string
	ExecutionInterval   interval.ExecutionInterval
	LatestExecutionDate time.Time
	SearchResultHash    string // 前回観測した結果セットの不透明ダイジェスト
	NumberSearchResults int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SearchHit は検索バックエンドが返す結果セットの1件を表す。
type SearchHit struct {
	ID                 string    // カタログエントリの識別子（URI）
	DateCreated        time.Time
	LastChangeDateTime time.Time
}
