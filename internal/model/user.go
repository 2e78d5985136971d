// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// User は認証サービスが管理するユーザーアイデンティティを表す。
// 表示名やロール等のアプリケーションレベルの情報はProfileが保持する。
type User struct {
	ID             string
	Email          string
	EmailConfirmed bool
	PasswordHash   string // OAuthのみのユーザーは空
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayNameSeed はProfile作成時の表示名のシード値を返す。
// メタデータのfull_nameを優先し、なければメールアドレスのローカル部を使う。
func (u *User) DisplayNameSeed() string {
	if name, ok := u.Metadata["full_name"]; ok && name != "" {
		return name
	}
	if local, _, found := strings.Cut(u.Email, "@"); found && local != "" {
		return local
	}
	return u.Email
}

// Identity は外部IdPとの紐付け情報を表す。
// 複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// アクセストークン（ID）とリフレッシュトークンのペアを保持する。
// リフレッシュのたびに両トークンが置き換えられる。
type Session struct {
	ID           string // アクセストークン（不透明な乱数文字列）
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// AuthTokenType はワンタイムトークンの用途を表す。
type AuthTokenType string

const (
	// AuthTokenTypeSignup はメールアドレス確認用トークン。
	AuthTokenTypeSignup AuthTokenType = "signup"
	// AuthTokenTypeRecovery はパスワードリセット用トークン。
	AuthTokenTypeRecovery AuthTokenType = "recovery"
	// AuthTokenTypeEmailChange はメールアドレス変更確認用トークン。
	AuthTokenTypeEmailChange AuthTokenType = "email_change"
)

// AuthToken はメール確認・パスワードリセット等のワンタイムトークンを表す。
// トークン本体は保存せず、SHA-256ハッシュのみを永続化する。
type AuthToken struct {
	ID         string
	UserID     string
	TokenHash  string
	Type       AuthTokenType
	Payload    string // email_changeの場合は変更後のメールアドレス
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}
