package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsroom/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	ProfileFinder     middleware.ProfileFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	Metrics           middleware.MetricsRecorder

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証・プロフィール
	AuthService    AuthServiceInterface
	AuthConfig     AuthHandlerConfig
	ProfileService ProfileServiceInterface
	ProfileLoader  ProfileLoader

	// コンテンツ
	ArticleService ArticleServiceInterface
	CommentService CommentServiceInterface

	// 広告・設定・管理
	AdService       AdServiceInterface
	SettingsService SettingsServiceInterface
	AdminService    AdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → CSRF → (OptionalSession | Session) → RateLimit
//
// 公開APIは未認証でもアクセスでき、認証済みの場合は付加情報が利用される。
// 管理API（/api/admin/*）はセッションに加えてロール検証を通過する必要がある。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	articleHandler := NewArticleHandler(deps.ArticleService, deps.ProfileLoader)
	commentHandler := NewCommentHandler(deps.CommentService, deps.ProfileLoader)
	adHandler := NewAdHandler(deps.AdService)
	settingsHandler := NewSettingsHandler(deps.SettingsService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 認証ルート ---
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/signout", authHandler.SignOut)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/reset", authHandler.RequestPasswordReset)
		r.Get("/me", authHandler.Me)
		r.Get("/confirm", authHandler.Confirm)

		// OAuthフロー
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)

		// ユーザー属性の変更は認証必須
		r.With(middleware.NewSessionMiddleware(deps.Authenticator)).
			Patch("/user", authHandler.UpdateUser)
	})

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 運用エンドポイント ---
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 公開API ---
	// 未認証でもアクセス可能。レート制限はユーザーIDまたはIPでキーイングされる。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/articles", articleHandler.List)
		r.Get("/api/articles/{slug}", articleHandler.Get)
		r.Get("/api/articles/{slug}/comments", commentHandler.List)
		r.Get("/api/articles/{slug}/reactions", commentHandler.CountReactions)
		r.Get("/api/categories", articleHandler.ListCategories)
		r.Get("/api/tags", articleHandler.ListTags)

		r.Get("/api/ads/{slot}", adHandler.Select)
		r.Post("/api/ads/{id}/impression", adHandler.TrackImpression)
		r.Get("/api/ads/{id}/click", adHandler.TrackClick)

		r.Get("/api/settings", settingsHandler.GetAll)
		r.Get("/api/header", settingsHandler.HeaderSummary)
	})

	// --- 認証が必要なAPI ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール
		r.Get("/api/profile", profileHandler.Get)
		r.Patch("/api/profile", profileHandler.Update)

		// 記事の作成・編集（ロール検証はサービス層で行う）
		r.Post("/api/articles", articleHandler.Create)
		r.Put("/api/articles/{slug}", articleHandler.Update)

		// コメント投稿は専用レート制限を追加
		r.With(deps.RateLimiter.CommentMiddleware()).
			Post("/api/articles/{slug}/comments", commentHandler.Create)
		r.Post("/api/articles/{slug}/reactions", commentHandler.ToggleReaction)

		// モデレーション
		r.Patch("/api/comments/{id}/status", commentHandler.Moderate)
		r.Delete("/api/comments/{id}", commentHandler.Delete)

		// 管理API: ロール検証を通過したリクエストのみ
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewRequireAdminMiddleware(deps.ProfileFinder))

			r.Post("/{table}", adminHandler.Insert)
			r.Patch("/{table}/{id}", adminHandler.Update)
			r.Delete("/{table}/{id}", adminHandler.Delete)
		})
	})

	return r
}
