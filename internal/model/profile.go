package model

import "time"

// Role はプロフィールの権限ロールを表す。
// 管理系の操作にはRoleAdminまたはRoleSuperadminが必要となる。
type Role string

const (
	// RoleMember は一般会員。コメント・リアクションのみ可能。
	RoleMember Role = "member"
	// RoleAuthor は記事の執筆者。自分の記事の作成・編集が可能。
	RoleAuthor Role = "author"
	// RoleEditor は編集者。全記事の編集・公開が可能。
	RoleEditor Role = "editor"
	// RoleAdmin は管理者。管理APIの全テーブル操作が可能。
	RoleAdmin Role = "admin"
	// RoleSuperadmin は最上位管理者。ロール変更を含む全操作が可能。
	RoleSuperadmin Role = "superadmin"
)

// IsValid はロールが定義済みのいずれかであるかを返す。
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleAuthor, RoleEditor, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// CanAdministrate は管理系の変更操作が許可されるロールかを返す。
// プロフィールのロールが権限判定の唯一のシグナルとなる。
func (r Role) CanAdministrate() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// Profile はユーザーアイデンティティと1対1のアプリケーションレベルのレコード。
// 表示名・アバター・ロール・自己紹介・SNSリンクを保持する。
// ユーザーIDを主キーとすることで1ユーザー1プロフィールの不変条件を保証する。
type Profile struct {
	ID          string // users.idと同一
	FullName    string
	AvatarURL   string
	Role        Role
	Bio         string
	SocialLinks map[string]string // 例: {"x": "https://x.com/...", "github": "..."}
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
