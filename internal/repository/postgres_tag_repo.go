package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newsroom/internal/model"
)

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

// List は全タグを名前昇順で取得する。
func (r *PostgresTagRepo) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM tags ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		t := model.Tag{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag rows: %w", err)
	}

	return tags, nil
}

// EnsureBySlugs はスラッグ群に対応するタグを取得し、存在しないものは作成してIDを返す。
// ON CONFLICTで同時作成との競合を吸収する。
func (r *PostgresTagRepo) EnsureBySlugs(ctx context.Context, slugs []string) ([]string, error) {
	ids := make([]string, 0, len(slugs))

	for _, slug := range slugs {
		if slug == "" {
			continue
		}

		var id string
		err := r.db.QueryRowContext(ctx,
			`INSERT INTO tags (id, name, slug, created_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
			 RETURNING id`,
			uuid.New().String(), slug, slug, time.Now(),
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure tag %q: %w", slug, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// compile-time interface check
var _ TagRepository = (*PostgresTagRepo)(nil)
