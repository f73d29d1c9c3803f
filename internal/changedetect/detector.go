// Package changedetect は保存済み検索の定期再評価と結果変化の検出を提供する。
//
// ストアドクエリが紐付く保存済み検索を実行間隔に従って再実行し、
// 前回観測した結果セットのダイジェストと比較して変化を検出する。
// 評価のたびに（変化の有無に関わらず）評価状態を永続化するため、
// dueクロックは常に直近の実行時刻から進む。
package changedetect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
	"github.com/hitoshi/notifyman/internal/repository"
	"github.com/hitoshi/notifyman/internal/search"
)

// Notifier は結果変化を保存済み検索の所有者に通知するインターフェース。
// fanout.Serviceが実装する。
type Notifier interface {
	NotifySearchChanged(ctx context.Context, userID, searchName string, changedURIs []string) error
}

// Detector は保存済み検索の再評価と変化検出を行う。
type Detector struct {
	searchRepo repository.SavedSearchRepository
	searcher   search.Searcher
	notifier   Notifier
}

// NewDetector はDetectorの新しいインスタンスを生成する。
func NewDetector(searchRepo repository.SavedSearchRepository, searcher search.Searcher, notifier Notifier) *Detector {
	return &Detector{
		searchRepo: searchRepo,
		searcher:   searcher,
		notifier:   notifier,
	}
}

// NeedsEvaluation はストアドクエリが再評価時期を迎えているかどうかを返す。
func NeedsEvaluation(sq *model.StoredQuery, now time.Time) bool {
	return interval.IsDue(sq.LatestExecutionDate, interval.Interval(sq.ExecutionInterval), now)
}

// HashResults は結果セットの順序に依存しないダイジェストを計算する。
// 各ヒットを「ID|作成日時|最終更新日時」の行に正規化し、
// ソートしてから連結したバイト列のSHA-256を返す。
// 同じ結果セットは並び順に関わらず常に同じダイジェストになる。
func HashResults(hits []model.SearchHit) string {
	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		lines = append(lines, h.ID+"|"+
			h.DateCreated.UTC().Format(time.RFC3339Nano)+"|"+
			h.LastChangeDateTime.UTC().Format(time.RFC3339Nano))
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// Diff は前回実行日時より後に作成または更新されたヒットのIDを返す。
// 判定は狭義の大小比較であり、境界ちょうどのタイムスタンプは変化とみなさない。
func Diff(hits []model.SearchHit, since time.Time) []string {
	var changed []string
	for _, h := range hits {
		if h.DateCreated.After(since) || h.LastChangeDateTime.After(since) {
			changed = append(changed, h.ID)
		}
	}
	return changed
}

// Result は保存済み検索1件の再評価の結果。
type Result struct {
	Evaluated bool // 検索を実際に再実行したかどうか
	Changed   bool // 結果セットが前回から変化したかどうか
	Notified  bool // 所有者への通知に成功したかどうか
}

// ProcessOne は保存済み検索1件の再評価を行う。
//
// ストアドクエリが無い、またはまだdueでない検索は何もしない。
// 評価した場合はダイジェスト・件数・最終実行日時を必ず永続化する。
// 所有者への通知失敗は評価状態の永続化を妨げない。
func (d *Detector) ProcessOne(ctx context.Context, s *model.SavedSearch, now time.Time) (Result, error) {
	var res Result

	sq := s.StoredQuery
	if sq == nil {
		return res, nil
	}
	if !NeedsEvaluation(sq, now) {
		return res, nil
	}

	hits, err := d.searcher.Search(ctx, s.FilterJSON)
	if err != nil {
		return res, fmt.Errorf("保存済み検索の実行に失敗しました: %w", err)
	}
	res.Evaluated = true

	newHash := HashResults(hits)
	res.Changed = newHash != sq.SearchResultHash

	if res.Changed {
		changedURIs := Diff(hits, sq.LatestExecutionDate)
		if len(changedURIs) > 0 {
			if err := d.notifier.NotifySearchChanged(ctx, s.UserID, s.Name, changedURIs); err != nil {
				slog.Error("検索変化通知に失敗しました",
					slog.String("saved_search_id", s.ID),
					slog.String("user_id", s.UserID),
					slog.String("error", err.Error()),
				)
			} else {
				res.Notified = true
			}
		}
	}

	sq.SearchResultHash = newHash
	sq.NumberSearchResults = len(hits)
	sq.LatestExecutionDate = now
	sq.UpdatedAt = now
	if err := d.searchRepo.UpdateStoredQuery(ctx, sq); err != nil {
		return res, fmt.Errorf("評価状態の永続化に失敗しました: %w", err)
	}

	return res, nil
}
