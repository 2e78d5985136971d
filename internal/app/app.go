package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/newsroom/internal/ad"
	"github.com/hitoshi/newsroom/internal/admin"
	"github.com/hitoshi/newsroom/internal/article"
	"github.com/hitoshi/newsroom/internal/auth"
	"github.com/hitoshi/newsroom/internal/comment"
	"github.com/hitoshi/newsroom/internal/config"
	"github.com/hitoshi/newsroom/internal/database"
	"github.com/hitoshi/newsroom/internal/handler"
	"github.com/hitoshi/newsroom/internal/logger"
	"github.com/hitoshi/newsroom/internal/metrics"
	"github.com/hitoshi/newsroom/internal/middleware"
	"github.com/hitoshi/newsroom/internal/profile"
	"github.com/hitoshi/newsroom/internal/repository"
	"github.com/hitoshi/newsroom/internal/security"
	"github.com/hitoshi/newsroom/internal/session"
	"github.com/hitoshi/newsroom/internal/sitesettings"
	"github.com/hitoshi/newsroom/internal/worker/cleanup"
	"github.com/hitoshi/newsroom/internal/worker/syndication"
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
		slog.String("base_url", cfg.BaseURL),
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

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	tokenRepo := repository.NewPostgresAuthTokenRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	tagRepo := repository.NewPostgresTagRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	reactionRepo := repository.NewPostgresReactionRepo(db)
	adRepo := repository.NewPostgresAdRepo(db)
	settingRepo := repository.NewPostgresSettingRepo(db)
	tableMutator := repository.NewPostgresTableMutator(db)

	// 3. メトリクスとセキュリティサービスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	sanitizer := security.NewContentSanitizer()

	// 4. 認証サービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo, tokenRepo,
		auth.NewLogMailer(),
		auth.ServiceConfig{
			SessionMaxAge:    cfg.SessionMaxAge,
			TokenTTL:         cfg.AuthTokenTTL,
			PasswordMinChars: cfg.PasswordMinChars,
			BaseURL:          cfg.BaseURL,
			EventBuffer:      cfg.AuthEventBuffer,
		},
	)

	// 5. ドメインサービスの初期化
	profileService := profile.NewService(profileRepo, userRepo)
	articleService := article.NewService(articleRepo, categoryRepo, tagRepo, sanitizer)
	commentService := comment.NewService(commentRepo, reactionRepo, articleRepo, sanitizer)
	adService := ad.NewService(adRepo, collector)
	settingsService := sitesettings.NewService(settingRepo, articleRepo)
	adminService := admin.NewService(profileRepo, tableMutator)

	// 6. セッションマネージャの起動
	// 認証イベントを直列に消費し、セッション・ユーザー・プロフィールの
	// スナップショットを一貫した状態に保つ。
	sessionManager := session.NewManager(
		authService.Events(), userRepo, profileService,
		session.Config{ProvisionDelay: cfg.ProvisionDelay},
	)
	sessionManager.Start()
	defer sessionManager.Stop()

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rateLimitPerSecond(cfg.RateLimitGeneral),
		GeneralBurst:    cfg.RateLimitGeneral,
		CommentRate:     rateLimitPerSecond(cfg.RateLimitComment),
		CommentBurst:    cfg.RateLimitComment,
		CleanupInterval: 5 * time.Minute,
	})
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Authenticator:     authService,
		ProfileFinder:     profileRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:  slog.Default(),
		Metrics: collector,

		HealthChecker:  db,
		MetricsHandler: metrics.SetupMetricsRoute(registry),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProfileService: profileService,
		ProfileLoader:  profileService,

		ArticleService: articleService,
		CommentService: commentService,

		AdService:       adService,
		SettingsService: settingsService,
		AdminService:    adminService,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
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
// DB接続を開き、シンジケーション取り込みスケジューラと
// 認証データクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	sessionRepo := repository.NewPostgresSessionRepo(db)
	tokenRepo := repository.NewPostgresAuthTokenRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)
	sourceRepo := repository.NewPostgresSyndicationSourceRepo(db)

	// 3. メトリクスとセキュリティサービスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. インポーターの初期化
	importer := syndication.NewImporter(
		sourceRepo, articleRepo, sanitizer, ssrfGuard,
		slog.Default(), cfg.SyndicationTimeout, cfg.SyndicationMaxSize,
	)

	// 5. スケジューラの初期化
	scheduler := syndication.NewScheduler(
		sourceRepo, importer, collector, slog.Default(), 0,
	)

	// 6. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, tokenRepo, slog.Default())
	if days := int(cfg.SessionRetention.Hours() / 24); days > 0 {
		cleanupJob.RetentionDays = days
	}

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
		slog.Duration("syndication_interval", cfg.SyndicationInterval),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// 取り込みスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.SyndicationInterval)

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
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
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

// rateLimitPerSecond はreq/min単位の設定値をrate.Limit（req/sec）に変換する。
func rateLimitPerSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60.0)
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
