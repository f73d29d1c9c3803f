package search

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
)

// --- モック ---

type mockSearchRepo struct {
	findByIDFn     func(ctx context.Context, id string) (*model.SavedSearch, error)
	createFn       func(ctx context.Context, search *model.SavedSearch) error
	listByUserIDFn func(ctx context.Context, userID string) ([]*model.SavedSearch, error)
}

func (m *mockSearchRepo) FindByID(ctx context.Context, id string) (*model.SavedSearch, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockSearchRepo) Create(ctx context.Context, search *model.SavedSearch) error {
	return m.createFn(ctx, search)
}
func (m *mockSearchRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SavedSearch, error) {
	return m.listByUserIDFn(ctx, userID)
}
func (m *mockSearchRepo) ListScheduled(ctx context.Context) ([]*model.SavedSearch, error) {
	return nil, nil
}
func (m *mockSearchRepo) UpdateStoredQuery(ctx context.Context, sq *model.StoredQuery) error {
	return nil
}

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) CreateWithConfig(ctx context.Context, user *model.User, cfg *model.MessageConfig) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}

func existingUserRepo() *mockUserRepo {
	return &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorではないエラー: %v", err)
	}
	return apiErr.Code
}

// --- テスト ---

func TestCreateSavedSearch_WithStoredQuery(t *testing.T) {
	var created *model.SavedSearch
	repo := &mockSearchRepo{
		createFn: func(ctx context.Context, search *model.SavedSearch) error {
			created = search
			return nil
		},
	}
	s := NewService(repo, existingUserRepo())

	search, err := s.CreateSavedSearch(context.Background(), "user-1", "機械学習データセット", `{"keyword":"ml"}`, interval.ExecutionWeekly)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if created == nil {
		t.Fatal("保存済み検索が作成されていない")
	}
	if search.StoredQuery == nil {
		t.Fatal("ストアドクエリが紐付いていない")
	}
	if search.StoredQuery.ExecutionInterval != interval.ExecutionWeekly {
		t.Errorf("ExecutionInterval = %s, want %s", search.StoredQuery.ExecutionInterval, interval.ExecutionWeekly)
	}
	if search.StoredQuery.SavedSearchID != search.ID {
		t.Errorf("SavedSearchID = %s, want %s", search.StoredQuery.SavedSearchID, search.ID)
	}
	if search.StoredQuery.LatestExecutionDate.IsZero() {
		t.Error("dueクロックの起点（LatestExecutionDate）が設定されていない")
	}
}

func TestCreateSavedSearch_WithoutStoredQuery(t *testing.T) {
	repo := &mockSearchRepo{
		createFn: func(ctx context.Context, search *model.SavedSearch) error {
			return nil
		},
	}
	s := NewService(repo, existingUserRepo())

	search, err := s.CreateSavedSearch(context.Background(), "user-1", "一時的な検索", `{"keyword":"tmp"}`, "")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if search.StoredQuery != nil {
		t.Error("実行間隔未指定でストアドクエリが紐付いている")
	}
}

func TestCreateSavedSearch_InvalidExecutionInterval(t *testing.T) {
	s := NewService(&mockSearchRepo{}, existingUserRepo())

	_, err := s.CreateSavedSearch(context.Background(), "user-1", "検索", `{}`, interval.ExecutionInterval("hourly"))
	if err == nil {
		t.Fatal("不正な実行間隔でエラーが返らなかった")
	}
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidArgument {
		t.Errorf("code = %s, want %s", code, model.ErrCodeInvalidArgument)
	}
}

func TestCreateSavedSearch_MissingName(t *testing.T) {
	s := NewService(&mockSearchRepo{}, existingUserRepo())

	_, err := s.CreateSavedSearch(context.Background(), "user-1", "", `{}`, "")
	if err == nil {
		t.Fatal("検索名未指定でエラーが返らなかった")
	}
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidArgument {
		t.Errorf("code = %s, want %s", code, model.ErrCodeInvalidArgument)
	}
}

func TestCreateSavedSearch_UnknownUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}
	s := NewService(&mockSearchRepo{}, userRepo)

	_, err := s.CreateSavedSearch(context.Background(), "missing", "検索", `{}`, "")
	if err == nil {
		t.Fatal("存在しないユーザーでエラーが返らなかった")
	}
	if code := apiErrorCode(t, err); code != model.ErrCodeUserNotFound {
		t.Errorf("code = %s, want %s", code, model.ErrCodeUserNotFound)
	}
}

func TestGetSavedSearch_ForeignSearch(t *testing.T) {
	repo := &mockSearchRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.SavedSearch, error) {
			return &model.SavedSearch{ID: id, UserID: "other-user"}, nil
		},
	}
	s := NewService(repo, existingUserRepo())

	_, err := s.GetSavedSearch(context.Background(), "user-1", "search-1")
	if err == nil {
		t.Fatal("他ユーザーの検索でエラーが返らなかった")
	}
	if code := apiErrorCode(t, err); code != model.ErrCodeSavedSearchNotFound {
		t.Errorf("code = %s, want %s", code, model.ErrCodeSavedSearchNotFound)
	}
}

func TestListSavedSearches(t *testing.T) {
	repo := &mockSearchRepo{
		listByUserIDFn: func(ctx context.Context, userID string) ([]*model.SavedSearch, error) {
			return []*model.SavedSearch{
				{ID: "search-1", UserID: userID},
				{ID: "search-2", UserID: userID},
			}, nil
		},
	}
	s := NewService(repo, existingUserRepo())

	searches, err := s.ListSavedSearches(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(searches) != 2 {
		t.Errorf("検索数 = %d, want 2", len(searches))
	}
}
