package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionMaxAge int // アクセストークンの有効期間（秒）

	// Auth
	AuthTokenTTL     time.Duration // ワンタイムトークンの有効期間
	ProvisionDelay   time.Duration // サインイン直後のプロフィール取得前の待機時間
	AuthEventBuffer  int           // 認証イベントチャネルのバッファサイズ
	PasswordMinChars int

	// Syndication
	SyndicationInterval time.Duration
	SyndicationTimeout  time.Duration
	SyndicationMaxSize  int64

	// Rate Limit
	RateLimitGeneral int // req/min/user
	RateLimitComment int // req/min/user

	// Cleanup
	SessionRetention time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// OAuthは任意。未設定の場合はパスワード認証のみで起動する。
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = getEnvString("GOOGLE_REDIRECT_URL", cfg.BaseURL+"/auth/google/callback")

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.AuthTokenTTL = getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour)
	cfg.ProvisionDelay = getEnvDuration("PROVISION_DELAY", 300*time.Millisecond)
	cfg.AuthEventBuffer = getEnvInt("AUTH_EVENT_BUFFER", 64)
	cfg.PasswordMinChars = getEnvInt("PASSWORD_MIN_CHARS", 8)
	cfg.SyndicationInterval = getEnvDuration("SYNDICATION_INTERVAL", 30*time.Minute)
	cfg.SyndicationTimeout = getEnvDuration("SYNDICATION_TIMEOUT", 10*time.Second)
	cfg.SyndicationMaxSize = getEnvInt64("SYNDICATION_MAX_SIZE", 5242880)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitComment = getEnvInt("RATE_LIMIT_COMMENT", 10)
	cfg.SessionRetention = getEnvDuration("SESSION_RETENTION", 7*24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// OAuthEnabled はGoogle OAuthの設定が揃っているかを返す。
func (c *Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
