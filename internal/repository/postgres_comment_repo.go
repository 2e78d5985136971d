package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/newsroom/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// ListByArticle は記事の表示中コメントを投稿者情報付きで作成日時昇順に取得する。
func (r *PostgresCommentRepo) ListByArticle(ctx context.Context, articleID string) ([]model.CommentWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cm.id, cm.article_id, cm.user_id, COALESCE(cm.parent_id::text, ''),
		        cm.body, cm.status, cm.created_at, cm.updated_at,
		        p.full_name, p.avatar_url
		 FROM comments cm
		 JOIN profiles p ON p.id = cm.user_id
		 WHERE cm.article_id = $1 AND cm.status = 'visible'
		 ORDER BY cm.created_at`,
		articleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.CommentWithAuthor
	for rows.Next() {
		c := model.CommentWithAuthor{}
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.UserID, &c.ParentID,
			&c.Body, &c.Status, &c.CreatedAt, &c.UpdatedAt,
			&c.AuthorName, &c.AuthorAvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comment rows: %w", err)
	}

	return comments, nil
}

// Create はコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	var parentID any
	if comment.ParentID != "" {
		parentID = comment.ParentID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, article_id, user_id, parent_id, body, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		comment.ID, comment.ArticleID, comment.UserID, parentID,
		comment.Body, comment.Status, comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", MapPgError(err))
	}
	return nil
}

// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	c := &model.Comment{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, article_id, user_id, COALESCE(parent_id::text, ''), body, status, created_at, updated_at
		 FROM comments WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.ArticleID, &c.UserID, &c.ParentID, &c.Body, &c.Status, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	return c, nil
}

// UpdateStatus はコメントの表示状態を更新する。
func (r *PostgresCommentRepo) UpdateStatus(ctx context.Context, id string, status model.CommentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update comment status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewCommentNotFoundError(id)
	}
	return nil
}

// Delete は指定IDのコメントを削除する。
func (r *PostgresCommentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
