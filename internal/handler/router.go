package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notifyman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           middleware.StatusMetrics // 省略可

	// ユーザーとメッセージ設定
	UserService   UserServiceInterface
	ConfigService MessageConfigServiceInterface

	// メッセージ
	MessageService MessageServiceInterface

	// 購読と通知
	SubscriptionService SubscriptionServiceInterface
	NotificationService NotificationServiceInterface

	// 保存済み検索と評価
	SearchService    SearchServiceInterface
	EvaluationRunner EvaluationRunnerInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → RateLimit(General)
//
// 通知・評価トリガーには専用のより厳しいレート制限クラスを追加適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware())

	userHandler := NewUserHandler(deps.UserService, deps.ConfigService)
	messageHandler := NewMessageHandler(deps.MessageService)
	subHandler := NewSubscriptionHandler(deps.SubscriptionService)
	notifyHandler := NewNotificationHandler(deps.NotificationService, deps.EvaluationRunner)
	searchHandler := NewSearchHandler(deps.SearchService)

	// ヘルスチェック（レート制限の対象外）
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Post("/", userHandler.CreateUser)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.GetUser)
				r.Delete("/", userHandler.DeleteUser)

				// メッセージ設定（ユーザーと1:1）
				r.Get("/message-config", userHandler.GetMessageConfig)
				r.Put("/message-config", userHandler.UpdateMessageConfig)

				// メッセージ
				r.Route("/messages", func(r chi.Router) {
					r.Get("/", messageHandler.ListMessages)
					r.Post("/read", messageHandler.MarkReadBatch)
					r.Post("/{mid}/read", messageHandler.MarkRead)
					r.Post("/{mid}/sent", messageHandler.MarkSent)
				})

				// 購読
				r.Route("/subscriptions", func(r chi.Router) {
					r.Get("/", subHandler.ListSubscriptions)
					r.Post("/", subHandler.Subscribe)
					r.Delete("/{sid}", subHandler.Unsubscribe)
				})

				// 保存済み検索
				r.Route("/searches", func(r chi.Router) {
					r.Get("/", searchHandler.ListSavedSearches)
					r.Post("/", searchHandler.CreateSavedSearch)
					r.Get("/{sid}", searchHandler.GetSavedSearch)
				})
			})
		})

		// 購読者数の集計（カタログ側UI用）
		r.Post("/api/subscriptions/count", subHandler.CountSubscribers)

		// カタログ側からの通知トリガーと評価実行（専用レート制限クラス）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.NotifyMiddleware())

			r.Post("/api/notify/updated", notifyHandler.NotifyUpdated)
			r.Post("/api/notify/deleted", notifyHandler.NotifyDeleted)
			r.Post("/api/notify/invalid-contacts", notifyHandler.NotifyInvalidContacts)
			r.Post("/api/evaluation/run", notifyHandler.RunEvaluation)
		})
	})

	return r
}
