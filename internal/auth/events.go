package auth

import "github.com/hitoshi/newsroom/internal/model"

// EventType は認証状態の変化の種別を表す。
type EventType string

const (
	// EventSignedIn はサインイン完了（パスワード・OAuth・トークン確認のいずれも含む）。
	EventSignedIn EventType = "SIGNED_IN"
	// EventTokenRefreshed はトークンリフレッシュによるセッション置き換え。
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	// EventUserUpdated はメールアドレス・パスワード等のユーザー属性変更。
	EventUserUpdated EventType = "USER_UPDATED"
	// EventSignedOut はサインアウトによるセッション破棄。
	EventSignedOut EventType = "SIGNED_OUT"
)

// Event は認証状態変化の通知を表す。
// セッション同期マネージャが購読し、スナップショットの更新に使用する。
type Event struct {
	Type EventType
	// Session はイベント発生後の有効なセッション。SIGNED_OUTの場合はnil。
	Session *model.Session
	// UserID は対象ユーザーのID。SIGNED_OUTでSessionがnilの場合も設定される。
	UserID string
}
