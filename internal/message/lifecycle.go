// Package message はメッセージのライフサイクルと設定管理のドメインロジックを提供する。
//
// メッセージの状態は3つのnullableタイムスタンプ（send_on / read_on / delete_on）の
// 有無だけで表現され、ここで定義する遷移操作のみがそれらを書き換える。
package message

import (
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
)

// Compose は設定に従ってタイムスタンプを計算した新規メッセージを生成する。
// send_on = Next(anchor, 送信間隔)。
// delete_on は send_on が設定された場合はそこを起点に、そうでなければanchorを起点に計算する。
// この連鎖により、削除クロックは常に「実際に配信されるであろう時刻」から始まる。
func Compose(subject, body, additionalInfo string, cfg *model.MessageConfig, anchor time.Time) *model.Message {
	sendOn := interval.Next(anchor, interval.Interval(cfg.SendInterval))

	deleteAnchor := anchor
	if sendOn != nil {
		deleteAnchor = *sendOn
	}
	deleteOn := interval.Next(deleteAnchor, interval.Interval(cfg.DeleteInterval))

	return &model.Message{
		ID:             uuid.New().String(),
		UserID:         cfg.UserID,
		Subject:        subject,
		Body:           body,
		AdditionalInfo: additionalInfo,
		SendOn:         sendOn,
		DeleteOn:       deleteOn,
		CreatedAt:      anchor,
		UpdatedAt:      anchor,
	}
}

// MarkRead はメッセージを既読にする。変更が発生した場合はtrueを返す。
// 冪等: 既読メッセージに対しては何もせず、元のread_onを維持する。
// 既読化と同時にsend_onはクリアされ、以後の送信対象から外れる。
func MarkRead(m *model.Message, now time.Time) bool {
	if m.ReadOn != nil {
		return false
	}
	readOn := now
	m.ReadOn = &readOn
	m.SendOn = nil
	m.UpdatedAt = now
	return true
}

// MarkSent はメッセージを配信済みにする。変更が発生した場合はtrueを返す。
// send_onが未設定（配信対象外）の場合は何もしない。
// 専用の配信済みタイムスタンプ列が無いため、read_onを「配信済み」の印として
// 流用し、今週の終わり（日曜日 23:59:59）に設定する。
func MarkSent(m *model.Message, now time.Time) bool {
	if m.SendOn == nil {
		return false
	}
	readOn := interval.EndOfWeek(now)
	m.ReadOn = &readOn
	m.SendOn = nil
	m.UpdatedAt = now
	return true
}

// Recompute は設定変更後のタイムスタンプ一括再計算を1件分適用する。
// 未読メッセージのみsend_onを再計算し、delete_onは既読状態に関わらず再計算する。
func Recompute(m *model.Message, cfg *model.MessageConfig, now time.Time) {
	if m.ReadOn == nil {
		m.SendOn = interval.Next(now, interval.Interval(cfg.SendInterval))
	}
	m.DeleteOn = interval.Next(now, interval.Interval(cfg.DeleteInterval))
	m.UpdatedAt = now
}
