// Package interval は通知間隔の列挙型と時刻計算（IntervalClock）を提供する。
// 送信間隔・削除間隔・実行間隔は共通の序数テーブルを共有しており、
// 「送信が削除より先」の不変条件を整数比較で検証できる。
package interval

import "time"

// Interval は通知間隔の全列挙を表す。
type Interval string

const (
	// Never は送信しないことを表す。
	Never Interval = "never"
	// Immediately は即時送信を表す。
	Immediately Interval = "immediately"
	// Daily は日次間隔。
	Daily Interval = "daily"
	// Weekly は週次間隔。
	Weekly Interval = "weekly"
	// Monthly は月次間隔。
	Monthly Interval = "monthly"
	// Quarterly は四半期間隔。
	Quarterly Interval = "quarterly"
)

// ordinals は全間隔の共通序数テーブル。
// SendInterval と DeleteInterval で重複する値（weekly=3, monthly=4）は
// 意図的に同じ序数を持ち、型をまたいだ大小比較を可能にする。
var ordinals = map[Interval]int{
	Never:       0,
	Immediately: 1,
	Daily:       2,
	Weekly:      3,
	Monthly:     4,
	Quarterly:   5,
}

// Ordinal は間隔の序数を返す。未知の間隔は-1を返す。
func (i Interval) Ordinal() int {
	if ord, ok := ordinals[i]; ok {
		return ord
	}
	return -1
}

// IsValid は間隔が既知の値かどうかを返す。
func (i Interval) IsValid() bool {
	_, ok := ordinals[i]
	return ok
}

// SendInterval はメッセージ送信間隔の列挙サブセット。
type SendInterval Interval

// DeleteInterval はメッセージ削除間隔の列挙サブセット。
type DeleteInterval Interval

// ExecutionInterval は保存済み検索の再評価間隔の列挙サブセット。
type ExecutionInterval Interval

// 送信間隔として許可される値。
const (
	SendNever       = SendInterval(Never)
	SendImmediately = SendInterval(Immediately)
	SendDaily       = SendInterval(Daily)
	SendWeekly      = SendInterval(Weekly)
	SendMonthly     = SendInterval(Monthly)
)

// 削除間隔として許可される値。
const (
	DeleteWeekly    = DeleteInterval(Weekly)
	DeleteMonthly   = DeleteInterval(Monthly)
	DeleteQuarterly = DeleteInterval(Quarterly)
)

// 実行間隔として許可される値。
const (
	ExecutionDaily   = ExecutionInterval(Daily)
	ExecutionWeekly  = ExecutionInterval(Weekly)
	ExecutionMonthly = ExecutionInterval(Monthly)
)

var sendIntervals = map[SendInterval]bool{
	SendNever:       true,
	SendImmediately: true,
	SendDaily:       true,
	SendWeekly:      true,
	SendMonthly:     true,
}

var deleteIntervals = map[DeleteInterval]bool{
	DeleteWeekly:    true,
	DeleteMonthly:   true,
	DeleteQuarterly: true,
}

var executionIntervals = map[ExecutionInterval]bool{
	ExecutionDaily:   true,
	ExecutionWeekly:  true,
	ExecutionMonthly: true,
}

// IsValid は送信間隔として許可された値かどうかを返す。
func (i SendInterval) IsValid() bool { return sendIntervals[i] }

// Ordinal は共通序数テーブル上の序数を返す。
func (i SendInterval) Ordinal() int { return Interval(i).Ordinal() }

// IsValid は削除間隔として許可された値かどうかを返す。
func (i DeleteInterval) IsValid() bool { return deleteIntervals[i] }

// Ordinal は共通序数テーブル上の序数を返す。
func (i DeleteInterval) Ordinal() int { return Interval(i).Ordinal() }

// IsValid は実行間隔として許可された値かどうかを返す。
func (i ExecutionInterval) IsValid() bool { return executionIntervals[i] }

// Ordinal は共通序数テーブル上の序数を返す。
func (i ExecutionInterval) Ordinal() int { return Interval(i).Ordinal() }

// Next は基準時刻から間隔分進めた時刻を返す。
// Neverの場合はnil（スケジュールしない）、Immediatelyの場合は基準時刻をそのまま返す。
// 月次・四半期はカレンダー月単位で加算する（固定オフセット規則）。
// AddDateの月末正規化（1月31日 + 1ヶ月 = 3月2日/3日）はそのまま受け入れる。
func Next(base time.Time, iv Interval) *time.Time {
	var t time.Time
	switch iv {
	case Never:
		return nil
	case Immediately:
		t = base
	case Daily:
		t = base.AddDate(0, 0, 1)
	case Weekly:
		t = base.AddDate(0, 0, 7)
	case Monthly:
		t = base.AddDate(0, 1, 0)
	case Quarterly:
		t = base.AddDate(0, 3, 0)
	default:
		return nil
	}
	return &t
}

// IsDue は基準時刻に間隔を加えた時刻をnowが過ぎているかどうかを返す。
// Neverの場合は常にfalse。
func IsDue(base time.Time, iv Interval, now time.Time) bool {
	next := Next(base, iv)
	if next == nil {
		return false
	}
	return !now.Before(*next)
}

// EndOfWeek は時刻tが属する週の終わり（次の日曜日 23:59:59）を返す。
// tが日曜日の場合はその日の23:59:59を返す。
func EndOfWeek(t time.Time) time.Time {
	daysUntilSunday := (7 - int(t.Weekday())) % 7
	d := t.AddDate(0, 0, daysUntilSunday)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, t.Location())
}
