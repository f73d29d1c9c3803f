package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hitoshi/notifyman/internal/cache"
	"github.com/hitoshi/notifyman/internal/changedetect"
	"github.com/hitoshi/notifyman/internal/config"
	"github.com/hitoshi/notifyman/internal/database"
	"github.com/hitoshi/notifyman/internal/directory"
	"github.com/hitoshi/notifyman/internal/fanout"
	"github.com/hitoshi/notifyman/internal/handler"
	"github.com/hitoshi/notifyman/internal/logger"
	"github.com/hitoshi/notifyman/internal/message"
	"github.com/hitoshi/notifyman/internal/metrics"
	"github.com/hitoshi/notifyman/internal/middleware"
	"github.com/hitoshi/notifyman/internal/repository"
	"github.com/hitoshi/notifyman/internal/search"
	"github.com/hitoshi/notifyman/internal/security"
	"github.com/hitoshi/notifyman/internal/user"
	"github.com/hitoshi/notifyman/internal/worker/cleanup"
	"github.com/hitoshi/notifyman/internal/worker/notify"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// deps はドメインサービス一式。serveとworkerで共通のワイヤリングをまとめる。
type deps struct {
	registry  *prometheus.Registry
	collector *metrics.Collector

	userService    *user.Service
	messageService *message.Service
	fanoutService  *fanout.Service
	searchService  *search.Service
	scheduler      *notify.Scheduler
}

// buildDeps はリポジトリ、外部サービスクライアント、ドメインサービスを構築する。
func buildDeps(cfg *config.Config, db *sql.DB) (*deps, error) {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	cfgRepo := repository.NewPostgresMessageConfigRepo(db)
	msgRepo := repository.NewPostgresMessageRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)
	searchRepo := repository.NewPostgresSavedSearchRepo(db)

	// 2. 外部サービスクライアントの初期化
	httpClient := &http.Client{Timeout: 10 * time.Second}
	resolver := directory.NewClient(httpClient, slog.Default(), cfg.DirectoryServiceURL)
	searcher := search.NewClient(httpClient, slog.Default(), cfg.SearchServiceURL)
	sanitizer := security.NewContentSanitizer()

	templateCache, err := newTemplateCache(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	fanoutService := fanout.NewService(
		subRepo, userRepo, cfgRepo, msgRepo,
		resolver, sanitizer, templateCache,
	)
	detector := changedetect.NewDetector(searchRepo, searcher, fanoutService)

	return &deps{
		registry:       registry,
		collector:      collector,
		userService:    user.NewService(userRepo, resolver),
		messageService: message.NewService(msgRepo, cfgRepo, userRepo),
		fanoutService:  fanoutService,
		searchService:  search.NewService(searchRepo, userRepo),
		scheduler:      notify.NewScheduler(searchRepo, detector, slog.Default(), collector),
	}, nil
}

// newTemplateCache はメッセージテンプレート用のキャッシュを生成する。
// REDIS_URLが設定されていればRedis、未設定ならインメモリにフォールバックする。
func newTemplateCache(redisURL string) (cache.Cache, error) {
	if redisURL == "" {
		slog.Info("template cache: using in-memory cache")
		return cache.NewMemoryCache(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	slog.Info("template cache: using redis", slog.String("addr", opts.Addr))
	return cache.NewRedisCache(redis.NewClient(opts), slog.Default()), nil
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	d, err := buildDeps(cfg, db)
	if err != nil {
		return err
	}

	// レート制限の構成（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.NotifyRate = rate.Limit(float64(cfg.RateLimitNotify) / 60.0)
	rateLimiterCfg.NotifyBurst = cfg.RateLimitNotify

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           d.collector,

		UserService:         d.userService,
		ConfigService:       d.messageService,
		MessageService:      d.messageService,
		SubscriptionService: d.fanoutService,
		NotificationService: d.fanoutService,
		SearchService:       d.searchService,
		EvaluationRunner:    d.scheduler,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 保存済み検索の評価スケジューラとメッセージクリーンアップジョブを起動し、
// /metrics エンドポイントでPrometheusメトリクスを公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	d, err := buildDeps(cfg, db)
	if err != nil {
		return err
	}

	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), d.collector)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("evaluation_interval", cfg.EvaluationInterval),
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	// メトリクスサーバーをバックグラウンドで起動
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.SetupMetricsRoute(d.registry))
	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: metricsMux,
	}
	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// クリーンアップジョブをバックグラウンドで起動
	go cleanupJob.Start(ctx, cfg.CleanupInterval)

	// 評価スケジューラをメインgoroutineで実行（ブロッキング）
	d.scheduler.Start(ctx, cfg.EvaluationInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
