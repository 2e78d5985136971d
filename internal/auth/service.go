// Package auth はパスワード認証、OAuth認証フロー、ワンタイムトークン、
// セッション発行と認証イベントの配信を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge    int           // アクセストークン有効期間（秒）
	TokenTTL         time.Duration // ワンタイムトークン有効期間
	PasswordMinChars int
	BaseURL          string // 確認リンクの生成に使用
	EventBuffer      int    // 認証イベントチャネルのバッファサイズ
}

// Service は認証に関するビジネスロジックを提供する。
// セッションの発行・破棄のたびに認証イベントをチャネルに配信する。
type Service struct {
	oauth       OAuthProvider // OAuth未設定の場合はnil
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	tokenRepo   repository.AuthTokenRepository
	mailer      Mailer
	config      ServiceConfig
	events      chan Event
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	tokenRepo repository.AuthTokenRepository,
	mailer Mailer,
	config ServiceConfig,
) *Service {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		mailer:      mailer,
		config:      config,
		events:      make(chan Event, config.EventBuffer),
	}
}

// Events は認証イベントの購読チャネルを返す。
// 購読者が処理しきれずバッファが埋まった場合、イベントは破棄される。
func (s *Service) Events() <-chan Event {
	return s.events
}

// emit は認証イベントを配信する。購読者をブロックしない。
func (s *Service) emit(event Event) {
	select {
	case s.events <- event:
	default:
		slog.Warn("auth event dropped: buffer full",
			slog.String("type", string(event.Type)),
			slog.String("user_id", event.UserID),
		)
	}
}

// SignUp はメールアドレスとパスワードで新規ユーザーを登録し、確認メールを送信する。
// メールアドレスが確認されるまでサインインはできない。
func (s *Service) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.User, error) {
	if !strings.Contains(email, "@") {
		return nil, model.NewInvalidRequestError("メールアドレスの形式が正しくありません")
	}
	if len(password) < s.config.PasswordMinChars {
		return nil, model.NewWeakPasswordError()
	}

	// 1. メールアドレスの重複チェック
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	// 2. パスワードをハッシュ化してユーザーを作成
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 重複チェックとCreateの間に同一メールアドレスで登録された場合
		if repository.IsUniqueViolation(err) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// 3. 確認トークンを発行しメール送信
	token, err := s.issueToken(ctx, user.ID, model.AuthTokenTypeSignup, "")
	if err != nil {
		return nil, fmt.Errorf("failed to issue signup token: %w", err)
	}
	if err := s.mailer.SendSignupConfirmation(ctx, email, s.confirmLink(token, model.AuthTokenTypeSignup)); err != nil {
		return nil, fmt.Errorf("failed to send signup confirmation: %w", err)
	}

	slog.Info("user signed up",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)

	return user, nil
}

// SignIn はメールアドレスとパスワードでサインインし、セッションを発行する。
// メールアドレスの存在有無を推測されないよう、ユーザー未検出と
// パスワード不一致は同一のエラーを返す。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if !user.EmailConfirmed {
		return nil, model.NewEmailNotConfirmedError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user signed in", slog.String("user_id", user.ID))
	s.emit(Event{Type: EventSignedIn, Session: session, UserID: user.ID})

	return session, nil
}

// SignOut はセッションを破棄する。
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		// 既に破棄・期限切れのセッション。サインアウトは冪等に成功させる。
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user signed out", slog.String("user_id", session.UserID))
	s.emit(Event{Type: EventSignedOut, Session: nil, UserID: session.UserID})

	return nil
}

// Refresh はリフレッシュトークンでセッションを置き換え、新しいセッションを返す。
// 旧セッションのアクセストークン・リフレッシュトークンは即座に無効になる。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	if refreshToken == "" {
		return nil, model.NewInvalidTokenError()
	}

	old, err := s.sessionRepo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to find session by refresh token: %w", err)
	}
	if old == nil {
		return nil, model.NewInvalidTokenError()
	}

	next, err := s.newSession(old.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session: %w", err)
	}
	if err := s.sessionRepo.Replace(ctx, old.ID, next); err != nil {
		return nil, fmt.Errorf("failed to replace session: %w", err)
	}

	slog.Info("session refreshed", slog.String("user_id", next.UserID))
	s.emit(Event{Type: EventTokenRefreshed, Session: next, UserID: next.UserID})

	return next, nil
}

// CurrentUser はアクセストークンからセッションとユーザーを取得する。
// セッションが無効・期限切れの場合はUNAUTHORIZEDを返す。
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*model.User, *model.Session, error) {
	if accessToken == "" {
		return nil, nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, accessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewUserNotFoundError()
	}

	return user, session, nil
}

// VerifyToken はメール内リンクのワンタイムトークンを検証・消費し、セッションを発行する。
// トークン種別に応じてメール確認・メールアドレス変更を反映する。
// 無効・期限切れ・消費済みのトークンにはINVALID_TOKENを返す。
func (s *Service) VerifyToken(ctx context.Context, rawToken string, tokenType model.AuthTokenType) (*model.Session, error) {
	if rawToken == "" {
		return nil, model.NewInvalidTokenError()
	}

	// 1. トークンをハッシュ化し、アトミックに消費する
	token, err := s.tokenRepo.Consume(ctx, hashToken(rawToken), tokenType)
	if err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	if token == nil {
		return nil, model.NewInvalidTokenError()
	}

	// 2. 種別ごとの副作用を反映
	switch tokenType {
	case model.AuthTokenTypeSignup:
		if err := s.userRepo.ConfirmEmail(ctx, token.UserID); err != nil {
			return nil, fmt.Errorf("failed to confirm email: %w", err)
		}
	case model.AuthTokenTypeEmailChange:
		if err := s.userRepo.UpdateEmail(ctx, token.UserID, token.Payload); err != nil {
			if repository.IsUniqueViolation(err) {
				return nil, model.NewEmailTakenError()
			}
			return nil, fmt.Errorf("failed to update email: %w", err)
		}
	case model.AuthTokenTypeRecovery:
		// セッション発行のみ。パスワードの更新はサインイン後に行う。
	}

	// 3. セッションを発行
	session, err := s.createSession(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("auth token verified",
		slog.String("user_id", token.UserID),
		slog.String("type", string(tokenType)),
	)

	if tokenType == model.AuthTokenTypeEmailChange {
		s.emit(Event{Type: EventUserUpdated, Session: session, UserID: token.UserID})
	}
	s.emit(Event{Type: EventSignedIn, Session: session, UserID: token.UserID})

	return session, nil
}

// RequestPasswordReset はパスワードリセットメールを送信する。
// メールアドレスの存在有無を推測されないよう、未登録のアドレスでも成功を返す。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		slog.Info("password reset requested for unknown email")
		return nil
	}

	token, err := s.issueToken(ctx, user.ID, model.AuthTokenTypeRecovery, "")
	if err != nil {
		return fmt.Errorf("failed to issue recovery token: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, email, s.confirmLink(token, model.AuthTokenTypeRecovery)); err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}

	slog.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// UpdatePassword はサインイン中のユーザーのパスワードを更新する。
func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < s.config.PasswordMinChars {
		return model.NewWeakPasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	slog.Info("password updated", slog.String("user_id", userID))
	s.emit(Event{Type: EventUserUpdated, Session: nil, UserID: userID})

	return nil
}

// RequestEmailChange はメールアドレス変更の確認メールを変更後のアドレスに送信する。
// 変更は確認リンクが開かれるまで反映されない。
func (s *Service) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	if !strings.Contains(newEmail, "@") {
		return model.NewInvalidRequestError("メールアドレスの形式が正しくありません")
	}

	existing, err := s.userRepo.FindByEmail(ctx, newEmail)
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return model.NewEmailTakenError()
	}

	token, err := s.issueToken(ctx, userID, model.AuthTokenTypeEmailChange, newEmail)
	if err != nil {
		return fmt.Errorf("failed to issue email change token: %w", err)
	}
	if err := s.mailer.SendEmailChangeConfirmation(ctx, newEmail, s.confirmLink(token, model.AuthTokenTypeEmailChange)); err != nil {
		return fmt.Errorf("failed to send email change confirmation: %w", err)
	}

	slog.Info("email change requested", slog.String("user_id", userID))
	return nil
}

// GetLoginURL はOAuth認証URLを生成する。OAuth未設定の場合は空文字列を返す。
func (s *Service) GetLoginURL(state string) string {
	if s.oauth == nil {
		return ""
	}
	return s.oauth.GetLoginURL(state)
}

// HandleOAuthCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定しログインする。
func (s *Service) HandleOAuthCallback(ctx context.Context, code string) (*model.Session, error) {
	if s.oauth == nil {
		return nil, model.NewInvalidRequestError("OAuth認証は設定されていません")
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string

	if identity != nil {
		// 3a. 既存ユーザー: identityからユーザーIDを取得
		userID = identity.UserID
		slog.Info("existing user logged in via oauth",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		// 3b. 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
		now := time.Now()

		newUser := &model.User{
			ID:             uuid.New().String(),
			Email:          userInfo.Email,
			EmailConfirmed: userInfo.EmailVerified,
			Metadata:       map[string]string{"full_name": userInfo.Name},
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			UserID:         newUser.ID,
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			CreatedAt:      now,
		}

		if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
			return nil, fmt.Errorf("failed to create user and identity: %w", err)
		}

		userID = newUser.ID
		slog.Info("new user created via oauth",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.emit(Event{Type: EventSignedIn, Session: session, UserID: userID})

	return session, nil
}

// issueToken はワンタイムトークンを生成・永続化し、平文トークンを返す。
// 平文は保存せず、SHA-256ハッシュのみを永続化する。
func (s *Service) issueToken(ctx context.Context, userID string, tokenType model.AuthTokenType, payload string) (string, error) {
	raw, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := &model.AuthToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hashToken(raw),
		Type:      tokenType,
		Payload:   payload,
		ExpiresAt: time.Now().Add(s.config.TokenTTL),
		CreatedAt: time.Now(),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	return raw, nil
}

// confirmLink はメール内に埋め込む確認リンクを生成する。
func (s *Service) confirmLink(rawToken string, tokenType model.AuthTokenType) string {
	params := url.Values{
		"token_hash": {rawToken},
		"type":       {string(tokenType)},
	}
	return s.config.BaseURL + "/auth/confirm?" + params.Encode()
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	session, err := s.newSession(userID)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// newSession は永続化前のセッションを生成する。
func (s *Service) newSession(userID string) (*model.Session, error) {
	accessToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &model.Session{
		ID:           accessToken,
		RefreshToken: refreshToken,
		UserID:       userID,
		ExpiresAt:    time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:    time.Now(),
	}, nil
}

// generateToken は暗号的に安全な不透明トークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken はトークンのSHA-256ハッシュを16進文字列で返す。
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
