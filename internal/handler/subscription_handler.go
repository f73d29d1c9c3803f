package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notifyman/internal/model"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// Subscribe はカタログエントリの購読を作成する。
	Subscribe(ctx context.Context, userID, colidPidURI, note string) (*model.ColidEntrySubscription, error)
	// Unsubscribe は購読を削除する。
	Unsubscribe(ctx context.Context, userID, subscriptionID string) error
	// ListSubscriptions はユーザーの購読一覧を返す。
	ListSubscriptions(ctx context.Context, userID string) ([]*model.ColidEntrySubscription, error)
	// CountSubscribers は要求されたエントリごとの購読者数を返す。
	CountSubscribers(ctx context.Context, colidPidURIs []string) (map[string]int, error)
}

// SubscriptionHandler はカタログエントリ購読のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
	}
}

// subscriptionResponse は購読情報のAPIレスポンス。
type subscriptionResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ColidPidURI string    `json:"colid_pid_uri"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// subscribeRequest は購読作成リクエストのボディ。
type subscribeRequest struct {
	ColidPidURI string `json:"colid_pid_uri"`
	Note        string `json:"note"`
}

// countSubscribersRequest は購読者数集計リクエストのボディ。
type countSubscribersRequest struct {
	ColidPidURIs []string `json:"colid_pid_uris"`
}

func toSubscriptionResponse(sub *model.ColidEntrySubscription) subscriptionResponse {
	return subscriptionResponse{
		ID:          sub.ID,
		UserID:      sub.UserID,
		ColidPidURI: sub.ColidPidURI,
		Note:        sub.Note,
		CreatedAt:   sub.CreatedAt,
	}
}

// ListSubscriptions はユーザーの購読一覧を取得する。
// GET /api/users/:id/subscriptions
func (h *SubscriptionHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	subs, err := h.service.ListSubscriptions(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, toSubscriptionResponse(sub))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Subscribe はカタログエントリの購読を作成する。
// POST /api/users/:id/subscriptions
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req subscribeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	sub, err := h.service.Subscribe(r.Context(), userID, req.ColidPidURI, req.Note)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

// Unsubscribe は購読を解除する。
// DELETE /api/users/:id/subscriptions/:sid
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	subscriptionID := chi.URLParam(r, "sid")

	if err := h.service.Unsubscribe(r.Context(), userID, subscriptionID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CountSubscribers は要求されたエントリごとの購読者数を返す。
// 購読者のいないエントリも0件として結果に含まれる。
// POST /api/subscriptions/count
func (h *SubscriptionHandler) CountSubscribers(w http.ResponseWriter, r *http.Request) {
	var req countSubscribersRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	counts, err := h.service.CountSubscribers(r.Context(), req.ColidPidURIs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}
