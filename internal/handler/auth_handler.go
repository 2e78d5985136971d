package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/newsroom/internal/middleware"
	"github.com/hitoshi/newsroom/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleOAuthCallback(ctx context.Context, code string) (*model.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*model.Session, error)
	CurrentUser(ctx context.Context, accessToken string) (*model.User, *model.Session, error)
	VerifyToken(ctx context.Context, rawToken string, tokenType model.AuthTokenType) (*model.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, userID, newPassword string) error
	RequestEmailChange(ctx context.Context, userID, newEmail string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string // フロントエンドのベースURL。リダイレクト先の起点
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// SignUp は新規ユーザーを登録し、確認メールを送信する。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	metadata := map[string]string{}
	if req.FullName != "" {
		metadata["full_name"] = req.FullName
	}

	user, err := h.service.SignUp(r.Context(), req.Email, req.Password, metadata)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":              user.ID,
		"email":           user.Email,
		"email_confirmed": user.EmailConfirmed,
	})
}

// SignIn はメールアドレスとパスワードでサインインする。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, sessionResponse(session))
}

// SignOut はセッションを破棄する。
// POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token != "" {
		if err := h.service.SignOut(r.Context(), token); err != nil {
			slog.Error("failed to sign out", slog.String("error", err.Error()))
			// サインアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh はリフレッシュトークンでセッションを置き換える。
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := ""
	if cookie, err := r.Cookie(middleware.RefreshCookieName); err == nil {
		refreshToken = cookie.Value
	}
	if refreshToken == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if decodeJSONBody(w, r, &req) {
			refreshToken = req.RefreshToken
		} else {
			return
		}
	}

	session, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		h.clearSessionCookies(w)
		handleServiceError(w, err)
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, sessionResponse(session))
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	user, session, err := h.service.CurrentUser(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":              user.ID,
		"email":           user.Email,
		"email_confirmed": user.EmailConfirmed,
		"metadata":        user.Metadata,
		"expires_at":      session.ExpiresAt.Format(time.RFC3339),
	})
}

// Confirm はメール内リンクのワンタイムトークンを検証し、
// セッションを発行してフロントエンドにリダイレクトする。
// GET /auth/confirm?token_hash=xxx&type=signup&next=/
// 旧形式の ?token=xxx パラメータも受け付ける。
// 検証失敗時は /auth/error?code=xxx にリダイレクトする。
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	rawToken := query.Get("token_hash")
	if rawToken == "" {
		// 旧形式のメールテンプレートとの互換
		rawToken = query.Get("token")
	}

	tokenType := model.AuthTokenType(query.Get("type"))
	switch tokenType {
	case model.AuthTokenTypeSignup, model.AuthTokenTypeRecovery, model.AuthTokenTypeEmailChange:
	default:
		h.redirectError(w, r, model.ErrCodeInvalidToken)
		return
	}

	session, err := h.service.VerifyToken(r.Context(), rawToken, tokenType)
	if err != nil {
		code := "INTERNAL_ERROR"
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			code = apiErr.Code
		} else {
			slog.Error("token verification failed", slog.String("error", err.Error()))
		}
		h.redirectError(w, r, code)
		return
	}

	h.setSessionCookies(w, session)
	http.Redirect(w, r, h.nextURL(query.Get("next")), http.StatusTemporaryRedirect)
}

// RequestPasswordReset はパスワードリセットメールを送信する。
// POST /auth/reset
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	// メールアドレスの存在有無にかかわらず同じレスポンスを返す
	w.WriteHeader(http.StatusNoContent)
}

// UpdateUser はサインイン中のユーザーのパスワード・メールアドレスを更新する。
// PATCH /auth/user
// メールアドレスの変更は確認リンクが開かれるまで反映されない。
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req struct {
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Password == "" && req.Email == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("変更する項目を指定してください"))
		return
	}

	if req.Password != "" {
		if err := h.service.UpdatePassword(r.Context(), userID, req.Password); err != nil {
			handleServiceError(w, err)
			return
		}
	}

	emailChangeRequested := false
	if req.Email != "" {
		if err := h.service.RequestEmailChange(r.Context(), userID, req.Email); err != nil {
			handleServiceError(w, err)
			return
		}
		emailChangeRequested = true
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"email_change_requested": emailChangeRequested,
	})
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	loginURL := h.service.GetLoginURL("")
	if loginURL == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("OAuth認証は設定されていません"))
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch")
		h.redirectError(w, r, model.ErrCodeInvalidToken)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectError(w, r, model.ErrCodeInvalidToken)
		return
	}

	// 3. 認証処理
	session, err := h.service.HandleOAuthCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.redirectError(w, r, model.ErrCodeInvalidCredentials)
		return
	}

	// 4. セッションCookieを設定しフロントエンドにリダイレクト
	h.setSessionCookies(w, session)
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// setSessionCookies はアクセストークン・リフレッシュトークンのCookieを設定する。
func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, session *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	// リフレッシュトークンはリフレッシュエンドポイントのみに送信する
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    session.RefreshToken,
		Path:     "/auth/refresh",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge * 2,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookies はセッション関連のCookieをクリアする。
func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    "",
		Path:     "/auth/refresh",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectError はフロントエンドのエラーページにリダイレクトする。
func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	target := h.config.BaseURL + "/auth/error?code=" + url.QueryEscape(code)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// nextURL はリダイレクト先を検証して返す。
// オープンリダイレクト防止のため、サイト内の相対パスのみを許可する。
func (h *AuthHandler) nextURL(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return h.config.BaseURL
	}
	return h.config.BaseURL + next
}

// sessionResponse はセッションのJSONレスポンスを構築する。
func sessionResponse(session *model.Session) map[string]any {
	return map[string]any{
		"access_token":  session.ID,
		"refresh_token": session.RefreshToken,
		"user_id":       session.UserID,
		"expires_at":    session.ExpiresAt.Format(time.RFC3339),
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
