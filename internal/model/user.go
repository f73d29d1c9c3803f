// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/hitoshi/notifyman/internal/interval"
)

// User はサービス利用ユーザーを表す。
// メッセージ・購読・保存済み検索をコンポジションで所有し、
// ユーザー削除時にはこれらすべてがCASCADE削除される。
type User struct {
	ID         string
	Email      string
	Name       string
	ExternalID string // 外部ディレクトリサービス上のユーザーID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MessageConfig はユーザーごとのメッセージ送信・削除間隔設定を表す（ユーザーと1:1）。
// 不変条件: ordinal(SendInterval) < ordinal(DeleteInterval)。
type MessageConfig struct {
	ID             string
	UserID         string
	SendInterval   interval.SendInterval
	DeleteInterval interval.DeleteInterval
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultMessageConfig はユーザー作成時のデフォルト設定（送信=週次、削除=月次）を返す。
func DefaultMessageConfig() (interval.SendInterval, interval.DeleteInterval) {
	return interval.SendWeekly, interval.DeleteMonthly
}
