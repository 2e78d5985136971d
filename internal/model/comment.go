package model

import "time"

// CommentStatus はコメントの公開状態を表す。
type CommentStatus string

const (
	// CommentStatusVisible は表示中のコメント。
	CommentStatusVisible CommentStatus = "visible"
	// CommentStatusHidden はモデレーションにより非表示のコメント。
	CommentStatusHidden CommentStatus = "hidden"
)

// Comment は記事へのコメントを表す。
// Bodyはサニタイズ済みHTMLとして保存される。
type Comment struct {
	ID        string
	ArticleID string
	UserID    string
	ParentID  string // 返信先コメントID。トップレベルの場合は空
	Body      string // サニタイズ済み
	Status    CommentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CommentWithAuthor はコメントと投稿者プロフィール情報を結合したモデル。
type CommentWithAuthor struct {
	Comment
	AuthorName      string
	AuthorAvatarURL string
}

// ReactionKind はリアクションの種別を表す。
type ReactionKind string

const (
	// ReactionLike は「いいね」リアクション。
	ReactionLike ReactionKind = "like"
	// ReactionBookmark はブックマークリアクション。
	ReactionBookmark ReactionKind = "bookmark"
)

// IsValid はリアクション種別が定義済みのいずれかであるかを返す。
func (k ReactionKind) IsValid() bool {
	return k == ReactionLike || k == ReactionBookmark
}

// Reaction はユーザーの記事へのリアクションを表す。
// (user_id, article_id, kind) の組で一意となり、トグル操作で作成・削除される。
type Reaction struct {
	ID        string
	UserID    string
	ArticleID string
	Kind      ReactionKind
	CreatedAt time.Time
}
