package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
	"github.com/hitoshi/notifyman/internal/repository"
)

// Service は保存済み検索管理のサービス層。
// 検索の保存と一覧取得、自動再評価（ストアドクエリ）の付与を提供する。
type Service struct {
	searchRepo repository.SavedSearchRepository
	userRepo   repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(searchRepo repository.SavedSearchRepository, userRepo repository.UserRepository) *Service {
	return &Service{
		searchRepo: searchRepo,
		userRepo:   userRepo,
	}
}

// CreateSavedSearch はユーザーの保存済み検索を作成する。
// executionIntervalが指定された場合はストアドクエリを紐付け、
// 自動再評価の対象にする。dueクロックは作成時刻から始まる。
func (s *Service) CreateSavedSearch(ctx context.Context, userID, name, filterJSON string, executionInterval interval.ExecutionInterval) (*model.SavedSearch, error) {
	if name == "" {
		return nil, model.NewInvalidArgumentError("検索名は必須です")
	}
	if filterJSON == "" {
		return nil, model.NewInvalidArgumentError("検索フィルタは必須です")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	now := time.Now()
	search := &model.SavedSearch{
		ID:         uuid.New().String(),
		UserID:     userID,
		Name:       name,
		FilterJSON: filterJSON,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if executionInterval != "" {
		if !executionInterval.IsValid() {
			return nil, model.NewInvalidArgumentError(fmt.Sprintf("不明な実行間隔です: %s", executionInterval))
		}
		search.StoredQuery = &model.StoredQuery{
			ID:                  uuid.New().String(),
			SavedSearchID:       search.ID,
			ExecutionInterval:   executionInterval,
			LatestExecutionDate: now,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
	}

	if err := s.searchRepo.Create(ctx, search); err != nil {
		return nil, fmt.Errorf("保存済み検索の作成に失敗しました: %w", err)
	}

	slog.Info("保存済み検索を作成しました",
		slog.String("user_id", userID),
		slog.String("saved_search_id", search.ID),
		slog.Bool("scheduled", search.StoredQuery != nil),
	)
	return search, nil
}

// ListSavedSearches はユーザーの保存済み検索一覧を返す。
func (s *Service) ListSavedSearches(ctx context.Context, userID string) ([]*model.SavedSearch, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	searches, err := s.searchRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("保存済み検索一覧の取得に失敗しました: %w", err)
	}
	return searches, nil
}

// GetSavedSearch は指定ユーザーが所有する保存済み検索を返す。
// 存在しない場合、または他ユーザーの検索の場合はSAVED_SEARCH_NOT_FOUNDを返す。
func (s *Service) GetSavedSearch(ctx context.Context, userID, savedSearchID string) (*model.SavedSearch, error) {
	search, err := s.searchRepo.FindByID(ctx, savedSearchID)
	if err != nil {
		return nil, fmt.Errorf("保存済み検索の取得に失敗しました: %w", err)
	}
	if search == nil || search.UserID != userID {
		return nil, model.NewSavedSearchNotFoundError(savedSearchID)
	}
	return search, nil
}
