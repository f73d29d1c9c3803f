package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
)

// --- モック ---

type mockUserService struct {
	createFn func(ctx context.Context, email, name string) (*model.User, error)
	getFn    func(ctx context.Context, userID string) (*model.User, error)
	deleteFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Create(ctx context.Context, email, name string) (*model.User, error) {
	return m.createFn(ctx, email, name)
}
func (m *mockUserService) Get(ctx context.Context, userID string) (*model.User, error) {
	return m.getFn(ctx, userID)
}
func (m *mockUserService) Delete(ctx context.Context, userID string) error {
	return m.deleteFn(ctx, userID)
}

type mockConfigService struct {
	getConfigFn    func(ctx context.Context, userID string) (*model.MessageConfig, error)
	updateConfigFn func(ctx context.Context, userID string, send interval.SendInterval, del interval.DeleteInterval) (*model.MessageConfig, error)
}

func (m *mockConfigService) GetConfig(ctx context.Context, userID string) (*model.MessageConfig, error) {
	return m.getConfigFn(ctx, userID)
}
func (m *mockConfigService) UpdateConfig(ctx context.Context, userID string, send interval.SendInterval, del interval.DeleteInterval) (*model.MessageConfig, error) {
	return m.updateConfigFn(ctx, userID, send, del)
}

// newUserRouter はユーザー関連ルートだけを持つテスト用ルーターを構成する。
func newUserRouter(users UserServiceInterface, configs MessageConfigServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewUserHandler(users, configs)
	r.Post("/api/users", h.CreateUser)
	r.Get("/api/users/{id}", h.GetUser)
	r.Delete("/api/users/{id}", h.DeleteUser)
	r.Get("/api/users/{id}/message-config", h.GetMessageConfig)
	r.Put("/api/users/{id}/message-config", h.UpdateMessageConfig)
	return r
}

// --- テスト ---

func TestCreateUser_Returns201(t *testing.T) {
	users := &mockUserService{
		createFn: func(ctx context.Context, email, name string) (*model.User, error) {
			return &model.User{
				ID:        "user-1",
				Email:     email,
				Name:      name,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	router := newUserRouter(users, &mockConfigService{})

	body := `{"email":"tanaka@example.com","name":"田中太郎"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp["id"] != "user-1" {
		t.Errorf("id = %v, want user-1", resp["id"])
	}
	if resp["email"] != "tanaka@example.com" {
		t.Errorf("email = %v, want tanaka@example.com", resp["email"])
	}
}

func TestCreateUser_DuplicateReturns409(t *testing.T) {
	users := &mockUserService{
		createFn: func(ctx context.Context, email, name string) (*model.User, error) {
			return nil, model.NewDuplicateUserError(email)
		},
	}
	router := newUserRouter(users, &mockConfigService{})

	body := `{"email":"tanaka@example.com","name":"田中太郎"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}

	var resp errorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.Code != model.ErrCodeDuplicateUser {
		t.Errorf("code = %s, want %s", resp.Code, model.ErrCodeDuplicateUser)
	}
}

func TestCreateUser_InvalidJSONReturns400(t *testing.T) {
	router := newUserRouter(&mockUserService{}, &mockConfigService{})

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestGetUser_NotFoundReturns404(t *testing.T) {
	users := &mockUserService{
		getFn: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, model.NewUserNotFoundError(userID)
		},
	}
	router := newUserRouter(users, &mockConfigService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestDeleteUser_Returns204(t *testing.T) {
	deleted := ""
	users := &mockUserService{
		deleteFn: func(ctx context.Context, userID string) error {
			deleted = userID
			return nil
		},
	}
	router := newUserRouter(users, &mockConfigService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/users/user-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if deleted != "user-1" {
		t.Errorf("削除されたユーザー = %q, want user-1", deleted)
	}
}

func TestGetMessageConfig_ReturnsConfig(t *testing.T) {
	configs := &mockConfigService{
		getConfigFn: func(ctx context.Context, userID string) (*model.MessageConfig, error) {
			return &model.MessageConfig{
				UserID:         userID,
				SendInterval:   interval.SendWeekly,
				DeleteInterval: interval.DeleteMonthly,
			}, nil
		},
	}
	router := newUserRouter(&mockUserService{}, configs)

	req := httptest.NewRequest(http.MethodGet, "/api/users/user-1/message-config", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp["send_interval"] != "weekly" {
		t.Errorf("send_interval = %v, want weekly", resp["send_interval"])
	}
	if resp["delete_interval"] != "monthly" {
		t.Errorf("delete_interval = %v, want monthly", resp["delete_interval"])
	}
}

func TestUpdateMessageConfig_InvalidOrderReturns400(t *testing.T) {
	configs := &mockConfigService{
		updateConfigFn: func(ctx context.Context, userID string, send interval.SendInterval, del interval.DeleteInterval) (*model.MessageConfig, error) {
			return nil, model.NewInvalidConfigurationError(string(send), string(del))
		},
	}
	router := newUserRouter(&mockUserService{}, configs)

	body := `{"send_interval":"monthly","delete_interval":"weekly"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/user-1/message-config", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	var resp errorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.Code != model.ErrCodeInvalidConfiguration {
		t.Errorf("code = %s, want %s", resp.Code, model.ErrCodeInvalidConfiguration)
	}
}

// no-op更新（NOT_MODIFIED）は成功として現行設定を200で返す。
func TestUpdateMessageConfig_NotModifiedReturns200(t *testing.T) {
	configs := &mockConfigService{
		updateConfigFn: func(ctx context.Context, userID string, send interval.SendInterval, del interval.DeleteInterval) (*model.MessageConfig, error) {
			return nil, model.NewNotModifiedError()
		},
		getConfigFn: func(ctx context.Context, userID string) (*model.MessageConfig, error) {
			return &model.MessageConfig{
				UserID:         userID,
				SendInterval:   interval.SendWeekly,
				DeleteInterval: interval.DeleteMonthly,
			}, nil
		},
	}
	router := newUserRouter(&mockUserService{}, configs)

	body := `{"send_interval":"weekly","delete_interval":"monthly"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/user-1/message-config", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp["send_interval"] != "weekly" {
		t.Errorf("send_interval = %v, want weekly", resp["send_interval"])
	}
}
