package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
)

// SearchServiceInterface は保存済み検索ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	// CreateSavedSearch は保存済み検索を作成する（実行間隔指定で自動再評価の対象になる）。
	CreateSavedSearch(ctx context.Context, userID, name, filterJSON string, executionInterval interval.ExecutionInterval) (*model.SavedSearch, error)
	// ListSavedSearches はユーザーの保存済み検索一覧を返す。
	ListSavedSearches(ctx context.Context, userID string) ([]*model.SavedSearch, error)
	// GetSavedSearch はユーザーが所有する保存済み検索を返す。
	GetSavedSearch(ctx context.Context, userID, savedSearchID string) (*model.SavedSearch, error)
}

// SearchHandler は保存済み検索のHTTPハンドラー。
type SearchHandler struct {
	service SearchServiceInterface
}

// NewSearchHandler はSearchHandlerを生成する。
func NewSearchHandler(service SearchServiceInterface) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// savedSearchResponse は保存済み検索のAPIレスポンス。
type savedSearchResponse struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	Name                string     `json:"name"`
	FilterJSON          string     `json:"filter_json"`
	ExecutionInterval   string     `json:"execution_interval,omitempty"`
	LatestExecutionDate *time.Time `json:"latest_execution_date,omitempty"`
	NumberSearchResults *int       `json:"number_search_results,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// createSavedSearchRequest は保存済み検索作成リクエストのボディ。
type createSavedSearchRequest struct {
	Name              string `json:"name"`
	FilterJSON        string `json:"filter_json"`
	ExecutionInterval string `json:"execution_interval"`
}

func toSavedSearchResponse(s *model.SavedSearch) savedSearchResponse {
	resp := savedSearchResponse{
		ID:         s.ID,
		UserID:     s.UserID,
		Name:       s.Name,
		FilterJSON: s.FilterJSON,
		CreatedAt:  s.CreatedAt,
	}
	if sq := s.StoredQuery; sq != nil {
		resp.ExecutionInterval = string(sq.ExecutionInterval)
		latest := sq.LatestExecutionDate
		resp.LatestExecutionDate = &latest
		count := sq.NumberSearchResults
		resp.NumberSearchResults = &count
	}
	return resp
}

// ListSavedSearches はユーザーの保存済み検索一覧を取得する。
// GET /api/users/:id/searches
func (h *SearchHandler) ListSavedSearches(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	searches, err := h.service.ListSavedSearches(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]savedSearchResponse, 0, len(searches))
	for _, s := range searches {
		resp = append(resp, toSavedSearchResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSavedSearch は保存済み検索を作成する。
// POST /api/users/:id/searches
func (h *SearchHandler) CreateSavedSearch(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req createSavedSearchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	search, err := h.service.CreateSavedSearch(r.Context(), userID, req.Name, req.FilterJSON,
		interval.ExecutionInterval(req.ExecutionInterval))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSavedSearchResponse(search))
}

// GetSavedSearch は保存済み検索を取得する。
// GET /api/users/:id/searches/:sid
func (h *SearchHandler) GetSavedSearch(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	savedSearchID := chi.URLParam(r, "sid")

	search, err := h.service.GetSavedSearch(r.Context(), userID, savedSearchID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSavedSearchResponse(search))
}
