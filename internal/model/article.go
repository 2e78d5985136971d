package model

import "time"

// ArticleStatus は記事の公開状態を表す。
type ArticleStatus string

const (
	// ArticleStatusDraft は下書き状態。公開APIには表示されない。
	ArticleStatusDraft ArticleStatus = "draft"
	// ArticleStatusPublished は公開済み状態。
	ArticleStatusPublished ArticleStatus = "published"
	// ArticleStatusArchived はアーカイブ済み状態。一覧には表示されない。
	ArticleStatusArchived ArticleStatus = "archived"
)

// Article はニュース記事を表す。
// Contentはサニタイズ済みHTMLとして保存される。
type Article struct {
	ID          string
	AuthorID    string
	CategoryID  string
	Title       string
	Slug        string
	Summary     string
	Content     string // サニタイズ済みHTML
	CoverURL    string
	Status      ArticleStatus
	ViewCount   int64
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ArticleWithMeta は記事とカテゴリ名・執筆者名・タグを結合したモデル。
// 一覧APIのレスポンス構築に使用する。
type ArticleWithMeta struct {
	Article
	CategoryName string
	AuthorName   string
	Tags         []string
}

// ArticleFilter は記事一覧の絞り込み条件を表す。
type ArticleFilter struct {
	CategorySlug string
	TagSlug      string
	Status       ArticleStatus
	Query        string // タイトル・サマリーの部分一致検索
}

// Category は記事のカテゴリを表す。
type Category struct {
	ID        string
	Name      string
	Slug      string
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tag は記事のタグを表す。
type Tag struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}
