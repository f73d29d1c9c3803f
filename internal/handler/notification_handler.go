package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/notifyman/internal/fanout"
	"github.com/hitoshi/notifyman/internal/model"
	"github.com/hitoshi/notifyman/internal/worker/notify"
)

// NotificationServiceInterface は通知トリガーハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	// NotifyUpdated はエントリの全購読者に更新通知メッセージを生成する。
	NotifyUpdated(ctx context.Context, colidPidURI, label string) (int, error)
	// NotifyDeleted は削除通知を生成した後、エントリの全購読を解除する。
	NotifyDeleted(ctx context.Context, colidPidURI, label string) (int, error)
	// NotifyInvalidContacts は無効な連絡先を持つエントリごとに通知を生成する。
	NotifyInvalidContacts(ctx context.Context, entries []fanout.InvalidContactEntry) (int, error)
}

// EvaluationRunnerInterface は保存済み検索の評価サイクルを1回実行するインターフェース。
type EvaluationRunnerInterface interface {
	RunOnce(ctx context.Context) (notify.Summary, error)
}

// NotificationHandler はカタログ側トリガーと評価実行のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationServiceInterface
	runner  EvaluationRunnerInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface, runner EvaluationRunnerInterface) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		runner:  runner,
	}
}

// entryNotifyRequest は更新・削除通知トリガーのボディ。
type entryNotifyRequest struct {
	ColidPidURI string `json:"colid_pid_uri"`
	Label       string `json:"label"`
}

// invalidContactsRequest は無効連絡先通知トリガーのボディ。
type invalidContactsRequest struct {
	Entries []invalidContactEntry `json:"entries"`
}

type invalidContactEntry struct {
	ColidPidURI  string `json:"colid_pid_uri"`
	Label        string `json:"label"`
	ContactEmail string `json:"contact_email"`
}

// notifyResponse は通知トリガーの結果レスポンス。
type notifyResponse struct {
	NotifiedCount int `json:"notified_count"`
}

// evaluationResponse は評価サイクル1回分の集計レスポンス。
type evaluationResponse struct {
	Scanned   int `json:"scanned"`
	Evaluated int `json:"evaluated"`
	Changed   int `json:"changed"`
	Notified  int `json:"notified"`
	Failed    int `json:"failed"`
}

// NotifyUpdated はエントリ更新通知をトリガーする。
// POST /api/notify/updated
func (h *NotificationHandler) NotifyUpdated(w http.ResponseWriter, r *http.Request) {
	var req entryNotifyRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.ColidPidURI == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("カタログエントリのURIは必須です"))
		return
	}

	notified, err := h.service.NotifyUpdated(r.Context(), req.ColidPidURI, req.Label)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notifyResponse{NotifiedCount: notified})
}

// NotifyDeleted はエントリ削除通知をトリガーする。
// 通知後、エントリを指す全購読が解除される。
// POST /api/notify/deleted
func (h *NotificationHandler) NotifyDeleted(w http.ResponseWriter, r *http.Request) {
	var req entryNotifyRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.ColidPidURI == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("カタログエントリのURIは必須です"))
		return
	}

	notified, err := h.service.NotifyDeleted(r.Context(), req.ColidPidURI, req.Label)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notifyResponse{NotifiedCount: notified})
}

// NotifyInvalidContacts は無効な連絡先の通知をトリガーする。
// POST /api/notify/invalid-contacts
func (h *NotificationHandler) NotifyInvalidContacts(w http.ResponseWriter, r *http.Request) {
	var req invalidContactsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	entries := make([]fanout.InvalidContactEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, fanout.InvalidContactEntry{
			ColidPidURI:  e.ColidPidURI,
			Label:        e.Label,
			ContactEmail: e.ContactEmail,
		})
	}

	notified, err := h.service.NotifyInvalidContacts(r.Context(), entries)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notifyResponse{NotifiedCount: notified})
}

// RunEvaluation は保存済み検索の評価サイクルを1回実行する。
// POST /api/evaluation/run
func (h *NotificationHandler) RunEvaluation(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.RunOnce(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluationResponse{
		Scanned:   summary.Scanned,
		Evaluated: summary.Evaluated,
		Changed:   summary.Changed,
		Notified:  summary.Notified,
		Failed:    summary.Failed,
	})
}
