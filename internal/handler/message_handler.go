package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notifyman/internal/model"
)

// MessageServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
type MessageServiceInterface interface {
	// ListMessages はユーザーの全メッセージを返す。
	ListMessages(ctx context.Context, userID string) ([]*model.Message, error)
	// MarkMessageRead は指定メッセージを既読にする（冪等）。
	MarkMessageRead(ctx context.Context, userID, messageID string) (*model.Message, error)
	// MarkMessageSent は指定メッセージを配信済みにする。
	MarkMessageSent(ctx context.Context, userID, messageID string) (*model.Message, error)
	// MarkMessagesRead は複数メッセージを一括既読にし、既読化した件数を返す。
	MarkMessagesRead(ctx context.Context, userID string, messageIDs []string) (int, error)
}

// MessageHandler はメッセージ管理のHTTPハンドラー。
type MessageHandler struct {
	service MessageServiceInterface
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(service MessageServiceInterface) *MessageHandler {
	return &MessageHandler{
		service: service,
	}
}

// messageResponse はメッセージのAPIレスポンス。
// stateはタイムスタンプから導出されるもので、保存はされない。
type messageResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Subject        string     `json:"subject"`
	Body           string     `json:"body"`
	AdditionalInfo string     `json:"additional_info,omitempty"`
	State          string     `json:"state"`
	SendOn         *time.Time `json:"send_on,omitempty"`
	ReadOn         *time.Time `json:"read_on,omitempty"`
	DeleteOn       *time.Time `json:"delete_on,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// batchReadRequest は一括既読リクエストのボディ。
type batchReadRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// batchReadResponse は一括既読レスポンス。
type batchReadResponse struct {
	MarkedCount int `json:"marked_count"`
}

func toMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		UserID:         m.UserID,
		Subject:        m.Subject,
		Body:           m.Body,
		AdditionalInfo: m.AdditionalInfo,
		State:          string(m.State()),
		SendOn:         m.SendOn,
		ReadOn:         m.ReadOn,
		DeleteOn:       m.DeleteOn,
		CreatedAt:      m.CreatedAt,
	}
}

// ListMessages はユーザーのメッセージ一覧を取得する。
// GET /api/users/:id/messages
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	messages, err := h.service.ListMessages(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// MarkRead はメッセージを既読にする。既読済みの場合も200を返す（冪等）。
// POST /api/users/:id/messages/:mid/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	messageID := chi.URLParam(r, "mid")

	m, err := h.service.MarkMessageRead(r.Context(), userID, messageID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponse(m))
}

// MarkSent はメッセージを配信済みにする。
// POST /api/users/:id/messages/:mid/sent
func (h *MessageHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	messageID := chi.URLParam(r, "mid")

	m, err := h.service.MarkMessageSent(r.Context(), userID, messageID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponse(m))
}

// MarkReadBatch は複数メッセージを一括既読にする。
// ユーザーのメッセージに解決できないIDは黙ってスキップされる。
// POST /api/users/:id/messages/read
func (h *MessageHandler) MarkReadBatch(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req batchReadRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	marked, err := h.service.MarkMessagesRead(r.Context(), userID, req.MessageIDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batchReadResponse{MarkedCount: marked})
}
