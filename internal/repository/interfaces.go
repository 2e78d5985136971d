// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
)

// UserRepository はユーザーアイデンティティの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複時は一意制約違反を返す。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateEmail はメールアドレスを更新し、確認済みフラグを立てる。
	UpdateEmail(ctx context.Context, id, email string) error

	// UpdatePasswordHash はパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// ConfirmEmail はメールアドレス確認済みフラグを立てる。
	ConfirmEmail(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定ID（アクセストークン）のセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindByRefreshToken はリフレッシュトークンでセッションを検索する。見つからない場合はnilを返す。
	FindByRefreshToken(ctx context.Context, refreshToken string) (*model.Session, error)
	// Replace は旧セッションを削除し、新セッションを同一トランザクションで作成する。
	// トークンリフレッシュで使用する。
	Replace(ctx context.Context, oldID string, newSession *model.Session) error
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpiredBefore は期限切れからretention経過したセッションを削除し、削除件数を返す。
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuthTokenRepository はワンタイムトークンの永続化インターフェース。
type AuthTokenRepository interface {
	// Create はワンタイムトークンを作成する。
	Create(ctx context.Context, token *model.AuthToken) error
	// Consume はトークンハッシュと種別が一致する未消費・有効期限内のトークンを
	// 消費済みにし、該当トークンを返す。見つからない場合はnilを返す。
	Consume(ctx context.Context, tokenHash string, tokenType model.AuthTokenType) (*model.AuthToken, error)
	// DeleteStale は期限切れまたは消費済みのトークンを削除し、削除件数を返す。
	DeleteStale(ctx context.Context) (int64, error)
}

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定ユーザーIDのプロフィールを取得する。
	// 見つからない場合はErrCodeRowNotFoundのAPIErrorを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// Create はプロフィールを作成する。
	// 同一IDの行が既に存在する場合は一意制約違反のAPIErrorを返す。
	Create(ctx context.Context, profile *model.Profile) error

	// UpdateSelf は本人が変更可能なフィールド（表示名・アバター・自己紹介・SNSリンク）を更新する。
	UpdateSelf(ctx context.Context, profile *model.Profile) error

	// UpdateRole はロールを更新する。管理APIからのみ呼び出される。
	UpdateRole(ctx context.Context, id string, role model.Role) error
}

// ArticleRepository は記事データの永続化インターフェース。
type ArticleRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Article, error)

	// FindBySlug はスラッグで公開済み記事をメタ情報付きで取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.ArticleWithMeta, error)

	// ListPublished は公開済み記事をフィルタ・カーソルページネーション付きで取得する。
	// published_at降順。cursorがゼロ値の場合は先頭から取得する。
	ListPublished(ctx context.Context, filter model.ArticleFilter, cursor time.Time, limit int) ([]model.ArticleWithMeta, error)

	// ListHeadlines は最新の公開済み記事をlimit件取得する。
	ListHeadlines(ctx context.Context, limit int) ([]model.Article, error)

	// Create は記事を作成し、タグを関連付ける。
	Create(ctx context.Context, article *model.Article, tagIDs []string) error

	// Update は記事を更新し、タグ関連を置き換える。
	Update(ctx context.Context, article *model.Article, tagIDs []string) error

	// IncrementViewCount は閲覧数をアトミックにインクリメントする。
	IncrementViewCount(ctx context.Context, id string) error

	// FindAnyBySlug は公開状態を問わずスラッグで記事を検索する。
	// シンジケーション取り込みの重複判定に使用する。見つからない場合はnilを返す。
	FindAnyBySlug(ctx context.Context, slug string) (*model.Article, error)
}

// CategoryRepository はカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// List は全カテゴリをsort_order昇順で取得する。
	List(ctx context.Context) ([]model.Category, error)
	// FindBySlug はスラッグでカテゴリを検索する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)
}

// TagRepository はタグの永続化インターフェース。
type TagRepository interface {
	// List は全タグを名前昇順で取得する。
	List(ctx context.Context) ([]model.Tag, error)
	// EnsureBySlugs はスラッグ群に対応するタグを取得し、存在しないものは作成してIDを返す。
	EnsureBySlugs(ctx context.Context, slugs []string) ([]string, error)
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// ListByArticle は記事の表示中コメントを投稿者情報付きで作成日時昇順に取得する。
	ListByArticle(ctx context.Context, articleID string) ([]model.CommentWithAuthor, error)
	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error
	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)
	// UpdateStatus はコメントの表示状態を更新する。モデレーション用。
	UpdateStatus(ctx context.Context, id string, status model.CommentStatus) error
	// Delete は指定IDのコメントを削除する。
	Delete(ctx context.Context, id string) error
}

// ReactionRepository はリアクションの永続化インターフェース。
type ReactionRepository interface {
	// Toggle は(user, article, kind)のリアクションをトグルする。
	// 既存行があれば削除してfalse、なければ作成してtrueを返す。
	Toggle(ctx context.Context, userID, articleID string, kind model.ReactionKind) (bool, error)
	// CountByArticle は記事のリアクション数を種別ごとに返す。
	CountByArticle(ctx context.Context, articleID string) (map[model.ReactionKind]int, error)
}

// AdRepository は広告の永続化インターフェース。
type AdRepository interface {
	// FindActiveBySlot はスロットの配信対象広告を1件取得する。
	// is_active = true かつ start_date <= now <= end_date の行のうち
	// created_atが最新の1件を返す。対象がない場合はnilを返す。
	FindActiveBySlot(ctx context.Context, slot model.AdSlot, now time.Time) (*model.Ad, error)

	// FindByID は指定IDの広告を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Ad, error)

	// IncrementImpressions はインプレッション数をアトミックにインクリメントする。
	IncrementImpressions(ctx context.Context, id string) error

	// IncrementClicks はクリック数をアトミックにインクリメントする。
	IncrementClicks(ctx context.Context, id string) error
}

// SettingRepository はサイト設定の永続化インターフェース。
type SettingRepository interface {
	// GetAll は全設定をキーバリューのマップで返す。
	GetAll(ctx context.Context) (map[string]string, error)
	// Get は指定キーの設定値を返す。未設定の場合は空文字列を返す。
	Get(ctx context.Context, key string) (string, error)
	// Set は設定値をUPSERTする。
	Set(ctx context.Context, key, value string) error
}

// SyndicationSourceRepository はシンジケーション取り込み元の永続化インターフェース。
type SyndicationSourceRepository interface {
	// ListActive は有効な取り込み元を取得する。
	ListActive(ctx context.Context) ([]model.SyndicationSource, error)
	// UpdateLastFetched は最終取り込み日時を更新する。
	UpdateLastFetched(ctx context.Context, id string, fetchedAt time.Time) error
}

// TableMutator は管理API用の許可リスト制テーブル操作インターフェース。
type TableMutator interface {
	// Insert は許可リスト内のテーブルに行を挿入し、生成されたIDを返す。
	Insert(ctx context.Context, table string, values map[string]any) (string, error)
	// Update は許可リスト内のテーブルの指定ID行を部分更新する。
	Update(ctx context.Context, table, id string, values map[string]any) error
	// Delete は許可リスト内のテーブルの指定ID行を削除する。
	Delete(ctx context.Context, table, id string) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
