// Package model はドメインモデルを定義する。
package model

import "time"

// ColidEntrySubscription はユーザーによるカタログエントリの購読を表す。
// 不変条件: (user_id, colid_pid_uri) の組は高々1件。書き込み時に検証される。
type ColidEntrySubscription struct {
	ID          string
	UserID      string
	ColidPidURI string // カタログエントリの識別子（URI）
	Note        string // 任意の自由記述メモ
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
