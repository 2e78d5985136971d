package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/newsroom/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

const articleColumns = `a.id, a.author_id, a.category_id, a.title, a.slug, a.summary,
	a.content, a.cover_url, a.status, a.view_count, a.published_at, a.created_at, a.updated_at`

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	article := &model.Article{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.id = $1`,
		id,
	).Scan(&article.ID, &article.AuthorID, &article.CategoryID, &article.Title,
		&article.Slug, &article.Summary, &article.Content, &article.CoverURL,
		&article.Status, &article.ViewCount, &article.PublishedAt,
		&article.CreatedAt, &article.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article by ID: %w", err)
	}

	return article, nil
}

// FindAnyBySlug は公開状態を問わずスラッグで記事を検索する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindAnyBySlug(ctx context.Context, slug string) (*model.Article, error) {
	article := &model.Article{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.slug = $1`,
		slug,
	).Scan(&article.ID, &article.AuthorID, &article.CategoryID, &article.Title,
		&article.Slug, &article.Summary, &article.Content, &article.CoverURL,
		&article.Status, &article.ViewCount, &article.PublishedAt,
		&article.CreatedAt, &article.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article by slug: %w", err)
	}

	return article, nil
}

// FindBySlug はスラッグで公開済み記事をメタ情報付きで取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindBySlug(ctx context.Context, slug string) (*model.ArticleWithMeta, error) {
	a := &model.ArticleWithMeta{}
	var tags pq.StringArray
	err := r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+`, c.name, p.full_name,
		        COALESCE(array_agg(t.slug) FILTER (WHERE t.slug IS NOT NULL), '{}')
		 FROM articles a
		 JOIN categories c ON c.id = a.category_id
		 JOIN profiles p ON p.id = a.author_id
		 LEFT JOIN article_tags at ON at.article_id = a.id
		 LEFT JOIN tags t ON t.id = at.tag_id
		 WHERE a.slug = $1 AND a.status = 'published'
		 GROUP BY a.id, c.name, p.full_name`,
		slug,
	).Scan(&a.ID, &a.AuthorID, &a.CategoryID, &a.Title, &a.Slug, &a.Summary,
		&a.Content, &a.CoverURL, &a.Status, &a.ViewCount, &a.PublishedAt,
		&a.CreatedAt, &a.UpdatedAt, &a.CategoryName, &a.AuthorName, &tags)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article by slug: %w", err)
	}

	a.Tags = []string(tags)
	return a, nil
}

// ListPublished は公開済み記事をフィルタ・カーソルページネーション付きで取得する。
// published_at降順。cursorがゼロ値の場合は先頭から取得する。
func (r *PostgresArticleRepo) ListPublished(ctx context.Context, filter model.ArticleFilter, cursor time.Time, limit int) ([]model.ArticleWithMeta, error) {
	query := `SELECT ` + articleColumns + `, c.name, p.full_name,
		COALESCE(array_agg(t.slug) FILTER (WHERE t.slug IS NOT NULL), '{}')
		FROM articles a
		JOIN categories c ON c.id = a.category_id
		JOIN profiles p ON p.id = a.author_id
		LEFT JOIN article_tags at ON at.article_id = a.id
		LEFT JOIN tags t ON t.id = at.tag_id
		WHERE a.status = 'published'`

	args := []any{}
	argPos := 1

	if !cursor.IsZero() {
		query += fmt.Sprintf(" AND a.published_at < $%d", argPos)
		args = append(args, cursor)
		argPos++
	}
	if filter.CategorySlug != "" {
		query += fmt.Sprintf(" AND c.slug = $%d", argPos)
		args = append(args, filter.CategorySlug)
		argPos++
	}
	if filter.TagSlug != "" {
		query += fmt.Sprintf(` AND a.id IN (
			SELECT at2.article_id FROM article_tags at2
			JOIN tags t2 ON t2.id = at2.tag_id WHERE t2.slug = $%d)`, argPos)
		args = append(args, filter.TagSlug)
		argPos++
	}
	if filter.Query != "" {
		query += fmt.Sprintf(" AND (a.title ILIKE $%d OR a.summary ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+filter.Query+"%")
		argPos++
	}

	query += fmt.Sprintf(` GROUP BY a.id, c.name, p.full_name
		ORDER BY a.published_at DESC LIMIT $%d`, argPos)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list published articles: %w", err)
	}
	defer rows.Close()

	var articles []model.ArticleWithMeta
	for rows.Next() {
		a := model.ArticleWithMeta{}
		var tags pq.StringArray
		if err := rows.Scan(&a.ID, &a.AuthorID, &a.CategoryID, &a.Title, &a.Slug,
			&a.Summary, &a.Content, &a.CoverURL, &a.Status, &a.ViewCount,
			&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
			&a.CategoryName, &a.AuthorName, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		a.Tags = []string(tags)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate article rows: %w", err)
	}

	return articles, nil
}

// ListHeadlines は最新の公開済み記事をlimit件取得する。本文は含めない。
func (r *PostgresArticleRepo) ListHeadlines(ctx context.Context, limit int) ([]model.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.author_id, a.category_id, a.title, a.slug, a.summary,
		        a.cover_url, a.status, a.view_count, a.published_at, a.created_at, a.updated_at
		 FROM articles a
		 WHERE a.status = 'published'
		 ORDER BY a.published_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list headlines: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a := model.Article{}
		if err := rows.Scan(&a.ID, &a.AuthorID, &a.CategoryID, &a.Title, &a.Slug,
			&a.Summary, &a.CoverURL, &a.Status, &a.ViewCount,
			&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan headline row: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate headline rows: %w", err)
	}

	return articles, nil
}

// Create は記事を作成し、タグを関連付ける。
func (r *PostgresArticleRepo) Create(ctx context.Context, article *model.Article, tagIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO articles (id, author_id, category_id, title, slug, summary, content,
		                       cover_url, status, view_count, published_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		article.ID, article.AuthorID, article.CategoryID, article.Title, article.Slug,
		article.Summary, article.Content, article.CoverURL, article.Status,
		article.ViewCount, article.PublishedAt, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", MapPgError(err))
	}

	if err := insertArticleTags(ctx, tx, article.ID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update は記事を更新し、タグ関連を置き換える。
func (r *PostgresArticleRepo) Update(ctx context.Context, article *model.Article, tagIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE articles
		 SET category_id = $2, title = $3, slug = $4, summary = $5, content = $6,
		     cover_url = $7, status = $8, published_at = $9, updated_at = now()
		 WHERE id = $1`,
		article.ID, article.CategoryID, article.Title, article.Slug, article.Summary,
		article.Content, article.CoverURL, article.Status, article.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", MapPgError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewArticleNotFoundError(article.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM article_tags WHERE article_id = $1`, article.ID); err != nil {
		return fmt.Errorf("failed to delete article tags: %w", err)
	}
	if err := insertArticleTags(ctx, tx, article.ID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IncrementViewCount は閲覧数をアトミックにインクリメントする。
func (r *PostgresArticleRepo) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE articles SET view_count = view_count + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

// insertArticleTags は記事とタグの関連を挿入する。
func insertArticleTags(ctx context.Context, tx *sql.Tx, articleID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO article_tags (article_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			articleID, tagID,
		); err != nil {
			return fmt.Errorf("failed to insert article tag: %w", MapPgError(err))
		}
	}
	return nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
