// Package notify は保存済み検索の定期評価ワーカーを提供する。
// スケジューラはストアドクエリ付きの全保存済み検索を順次処理し、
// 1件の失敗は残りの検索の評価を止めない。
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/notifyman/internal/changedetect"
	"github.com/hitoshi/notifyman/internal/metrics"
	"github.com/hitoshi/notifyman/internal/model"
	"github.com/hitoshi/notifyman/internal/repository"
)

// SearchProcessor は保存済み検索1件の再評価インターフェース。
// changedetect.Detectorが実装する。
type SearchProcessor interface {
	ProcessOne(ctx context.Context, s *model.SavedSearch, now time.Time) (changedetect.Result, error)
}

// Summary は評価サイクル1回分の結果集計。
type Summary struct {
	Scanned   int // 走査した保存済み検索の数
	Evaluated int // 実際に再実行した数
	Changed   int // 結果変化を検出した数
	Notified  int // 所有者への通知に成功した数
	Failed    int // 処理に失敗した数
}

// Scheduler は保存済み検索の定期評価スケジューラ。
type Scheduler struct {
	searchRepo repository.SavedSearchRepository
	processor  SearchProcessor
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(
	searchRepo repository.SavedSearchRepository,
	processor SearchProcessor,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Scheduler {
	return &Scheduler{
		searchRepo: searchRepo,
		processor:  processor,
		logger:     logger,
		metrics:    collector,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("評価スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("評価サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("評価スケジューラを停止しました")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("評価サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はストアドクエリ付きの全保存済み検索を1回順次評価する。
// 1件の失敗はログとメトリクスに記録して続行する。
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	var summary Summary

	searches, err := s.searchRepo.ListScheduled(ctx)
	if err != nil {
		return summary, err
	}
	summary.Scanned = len(searches)

	if len(searches) == 0 {
		s.logger.Info("評価対象の保存済み検索はありません")
		return summary, nil
	}

	now := time.Now()
	for _, search := range searches {
		res, err := s.processor.ProcessOne(ctx, search, now)
		if err != nil {
			summary.Failed++
			s.metrics.RecordEvaluationFailure()
			s.logger.Error("保存済み検索の評価に失敗しました",
				slog.String("saved_search_id", search.ID),
				slog.String("user_id", search.UserID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if res.Evaluated {
			summary.Evaluated++
			s.metrics.RecordEvaluationSuccess()
		}
		if res.Changed {
			summary.Changed++
			s.metrics.RecordSearchChanged()
		}
		if res.Notified {
			summary.Notified++
			s.metrics.RecordNotificationsCreated(1)
		}
	}

	duration := time.Since(start)
	s.metrics.RecordEvaluationLatency(duration)
	s.logger.Info("評価サイクルが完了しました",
		slog.Int("scanned", summary.Scanned),
		slog.Int("evaluated", summary.Evaluated),
		slog.Int("changed", summary.Changed),
		slog.Int("notified", summary.Notified),
		slog.Int("failed", summary.Failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return summary, nil
}
