package interval

import (
	"testing"
	"time"
)

// TestOrdinal_SharedTable は送信間隔と削除間隔が共通の序数を持つことを検証する。
func TestOrdinal_SharedTable(t *testing.T) {
	if SendInterval(Weekly).Ordinal() != DeleteInterval(Weekly).Ordinal() {
		t.Errorf("weekly ordinal mismatch: send=%d delete=%d",
			SendInterval(Weekly).Ordinal(), DeleteInterval(Weekly).Ordinal())
	}
	if SendInterval(Monthly).Ordinal() != DeleteInterval(Monthly).Ordinal() {
		t.Errorf("monthly ordinal mismatch: send=%d delete=%d",
			SendInterval(Monthly).Ordinal(), DeleteInterval(Monthly).Ordinal())
	}

	// 序数は列挙順に単調増加する
	ordered := []Interval{Never, Immediately, Daily, Weekly, Monthly, Quarterly}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Ordinal() >= ordered[i].Ordinal() {
			t.Errorf("ordinal not increasing: %s=%d %s=%d",
				ordered[i-1], ordered[i-1].Ordinal(), ordered[i], ordered[i].Ordinal())
		}
	}

	if Interval("hourly").Ordinal() != -1 {
		t.Errorf("unknown interval ordinal = %d, want -1", Interval("hourly").Ordinal())
	}
}

// TestNext はNextの間隔ごとの計算を検証する。
func TestNext(t *testing.T) {
	base := time.Date(2021, 2, 5, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		iv   Interval
		want *time.Time
	}{
		{"never", Never, nil},
		{"immediately", Immediately, &base},
		{"daily", Daily, timePtr(time.Date(2021, 2, 6, 10, 30, 0, 0, time.UTC))},
		{"weekly", Weekly, timePtr(time.Date(2021, 2, 12, 10, 30, 0, 0, time.UTC))},
		{"monthly", Monthly, timePtr(time.Date(2021, 3, 5, 10, 30, 0, 0, time.UTC))},
		{"quarterly", Quarterly, timePtr(time.Date(2021, 5, 5, 10, 30, 0, 0, time.UTC))},
		{"unknown", Interval("hourly"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(base, tt.iv)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Next(%s) nil mismatch: got %v, want %v", tt.iv, got, tt.want)
			}
			if got != nil && !got.Equal(*tt.want) {
				t.Errorf("Next(%s) = %v, want %v", tt.iv, got, tt.want)
			}
		})
	}
}

// TestIsDue は境界値での判定を検証する。
func TestIsDue(t *testing.T) {
	latest := time.Date(2021, 2, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		iv   Interval
		now  time.Time
		want bool
	}{
		{"daily same instant", Daily, latest, false},
		{"daily exactly 1 day", Daily, latest.AddDate(0, 0, 1), true},
		{"daily over 1 day", Daily, latest.Add(25 * time.Hour), true},
		{"weekly 6 days", Weekly, latest.AddDate(0, 0, 6), false},
		{"weekly 7 days", Weekly, latest.AddDate(0, 0, 7), true},
		{"monthly 15 days", Monthly, latest.AddDate(0, 0, 15), false},
		{"monthly 1 calendar month", Monthly, latest.AddDate(0, 1, 0), true},
		{"never", Never, latest.AddDate(10, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(latest, tt.iv, tt.now); got != tt.want {
				t.Errorf("IsDue(%s, now=%v) = %v, want %v", tt.iv, tt.now, got, tt.want)
			}
		})
	}
}

// TestEndOfWeek は週末（日曜日 23:59:59）への丸めを検証する。
func TestEndOfWeek(t *testing.T) {
	// 2021-02-05 は金曜日 → 同じ週の日曜日は 2021-02-07
	friday := time.Date(2021, 2, 5, 10, 0, 0, 0, time.UTC)
	got := EndOfWeek(friday)
	want := time.Date(2021, 2, 7, 23, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("EndOfWeek(friday) = %v, want %v", got, want)
	}

	// 日曜日はその日の 23:59:59 に丸められる
	sunday := time.Date(2021, 2, 7, 8, 0, 0, 0, time.UTC)
	got = EndOfWeek(sunday)
	if !got.Equal(want) {
		t.Errorf("EndOfWeek(sunday) = %v, want %v", got, want)
	}
}

// TestIntervalSubsets は各サブセットの許可値を検証する。
func TestIntervalSubsets(t *testing.T) {
	if !SendInterval(Never).IsValid() || !SendInterval(Monthly).IsValid() {
		t.Error("send interval subset should allow never..monthly")
	}
	if SendInterval(Quarterly).IsValid() {
		t.Error("send interval subset should not allow quarterly")
	}
	if !DeleteInterval(Quarterly).IsValid() {
		t.Error("delete interval subset should allow quarterly")
	}
	if DeleteInterval(Immediately).IsValid() || DeleteInterval(Never).IsValid() {
		t.Error("delete interval subset should not allow never/immediately")
	}
	if !ExecutionInterval(Daily).IsValid() {
		t.Error("execution interval subset should allow daily")
	}
	if ExecutionInterval(Quarterly).IsValid() {
		t.Error("execution interval subset should not allow quarterly")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
