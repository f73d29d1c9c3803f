package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Create はユーザーをデフォルトのメッセージ設定付きで作成する。
	Create(ctx context.Context, email, name string) (*model.User, error)
	// Get は指定IDのユーザーを返す。
	Get(ctx context.Context, userID string) (*model.User, error)
	// Delete はユーザーと従属データをCASCADE削除する。
	Delete(ctx context.Context, userID string) error
}

// MessageConfigServiceInterface はメッセージ設定ハンドラーが必要とするサービスインターフェース。
type MessageConfigServiceInterface interface {
	// GetConfig はユーザーのメッセージ設定を返す。
	GetConfig(ctx context.Context, userID string) (*model.MessageConfig, error)
	// UpdateConfig は検証付きで設定を更新し、全メッセージを再計算する。
	UpdateConfig(ctx context.Context, userID string, send interval.SendInterval, del interval.DeleteInterval) (*model.MessageConfig, error)
}

// UserHandler はユーザーとメッセージ設定のHTTPハンドラー。
type UserHandler struct {
	users   UserServiceInterface
	configs MessageConfigServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(users UserServiceInterface, configs MessageConfigServiceInterface) *UserHandler {
	return &UserHandler{
		users:   users,
		configs: configs,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	ExternalID string    `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// createUserRequest はユーザー作成リクエストのボディ。
// 名前が未指定の場合はディレクトリサービスで補完される。
type createUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// messageConfigResponse はメッセージ設定のAPIレスポンス。
type messageConfigResponse struct {
	UserID         string    `json:"user_id"`
	SendInterval   string    `json:"send_interval"`
	DeleteInterval string    `json:"delete_interval"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// messageConfigRequest はメッセージ設定更新リクエストのボディ。
type messageConfigRequest struct {
	SendInterval   string `json:"send_interval"`
	DeleteInterval string `json:"delete_interval"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		ExternalID: u.ExternalID,
		CreatedAt:  u.CreatedAt,
	}
}

func toConfigResponse(cfg *model.MessageConfig) messageConfigResponse {
	return messageConfigResponse{
		UserID:         cfg.UserID,
		SendInterval:   string(cfg.SendInterval),
		DeleteInterval: string(cfg.DeleteInterval),
		UpdatedAt:      cfg.UpdatedAt,
	}
}

// CreateUser はユーザーを作成する。
// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	u, err := h.users.Create(r.Context(), req.Email, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// GetUser はユーザーを取得する。
// GET /api/users/:id
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// DeleteUser はユーザーを削除する。従属データはCASCADE削除される。
// DELETE /api/users/:id
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if err := h.users.Delete(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetMessageConfig はユーザーのメッセージ設定を取得する。
// GET /api/users/:id/message-config
func (h *UserHandler) GetMessageConfig(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	cfg, err := h.configs.GetConfig(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

// UpdateMessageConfig はユーザーのメッセージ設定を更新する。
// 変更点が無い（NOT_MODIFIED）場合は現行設定をそのまま200で返す。
// PUT /api/users/:id/message-config
func (h *UserHandler) UpdateMessageConfig(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req messageConfigRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	cfg, err := h.configs.UpdateConfig(r.Context(), userID,
		interval.SendInterval(req.SendInterval),
		interval.DeleteInterval(req.DeleteInterval),
	)
	if err != nil {
		if isNotModified(err) {
			current, getErr := h.configs.GetConfig(r.Context(), userID)
			if getErr != nil {
				handleServiceError(w, getErr)
				return
			}
			writeJSON(w, http.StatusOK, toConfigResponse(current))
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

// isNotModified はno-op更新（NOT_MODIFIED）かどうかを判定する。
func isNotModified(err error) bool {
	apiErr, ok := err.(*model.APIError)
	return ok && apiErr.Code == model.ErrCodeNotModified
}
