// Package model はドメインモデルを定義する。
package model

import "time"

// Message はユーザーへのアプリ内メッセージを表す。
// 状態は明示的なステータス列を持たず、3つのnullableタイムスタンプの
// 有無から導出される（State参照）。永続化される形はこの3タイムスタンプのまま。
type Message struct {
	ID             string
	UserID         string
	Subject        string
	Body           string
	AdditionalInfo string // 外部リソース（配信エンドポイント等）との紐付け用の自由形式タグ
	SendOn         *time.Time
	ReadOn         *time.Time
	DeleteOn       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MessageState はタイムスタンプから導出されるメッセージ状態を表す。
type MessageState string

const (
	// MessageStatePendingSend は送信待ち状態（send_onあり、read_onなし）。
	MessageStatePendingSend MessageState = "pending_send"
	// MessageStateRead は配信済み/既読状態（read_onあり）。
	MessageStateRead MessageState = "read"
	// MessageStateUnscheduled は送信予定のない状態（send_on・read_onともになし）。
	MessageStateUnscheduled MessageState = "unscheduled"
)

// State はタイムスタンプの有無からメッセージ状態を導出する。
// 読み取り時に毎回導出され、状態そのものは保存されない。
func (m *Message) State() MessageState {
	if m.ReadOn != nil {
		return MessageStateRead
	}
	if m.SendOn != nil {
		return MessageStatePendingSend
	}
	return MessageStateUnscheduled
}

// IsExpired はdelete_onが設定済みかつnowを過ぎているかどうかを返す。
// 実際の削除は外部のスイープジョブが行う。
func (m *Message) IsExpired(now time.Time) bool {
	return m.DeleteOn != nil && !now.Before(*m.DeleteOn)
}
