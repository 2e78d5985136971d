package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
)

// PostgresSyndicationSourceRepo はPostgreSQLを使用したシンジケーション取り込み元リポジトリ。
type PostgresSyndicationSourceRepo struct {
	db *sql.DB
}

// NewPostgresSyndicationSourceRepo はPostgresSyndicationSourceRepoを生成する。
func NewPostgresSyndicationSourceRepo(db *sql.DB) *PostgresSyndicationSourceRepo {
	return &PostgresSyndicationSourceRepo{db: db}
}

// ListActive は有効な取り込み元を取得する。
func (r *PostgresSyndicationSourceRepo) ListActive(ctx context.Context) ([]model.SyndicationSource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, feed_url, category_id, author_id, is_active, last_fetched_at, created_at
		 FROM syndication_sources
		 WHERE is_active = true
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list syndication sources: %w", err)
	}
	defer rows.Close()

	var sources []model.SyndicationSource
	for rows.Next() {
		s := model.SyndicationSource{}
		if err := rows.Scan(&s.ID, &s.FeedURL, &s.CategoryID, &s.AuthorID,
			&s.IsActive, &s.LastFetchedAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan syndication source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate syndication source rows: %w", err)
	}

	return sources, nil
}

// UpdateLastFetched は最終取り込み日時を更新する。
func (r *PostgresSyndicationSourceRepo) UpdateLastFetched(ctx context.Context, id string, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE syndication_sources SET last_fetched_at = $2 WHERE id = $1`,
		id, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update last fetched: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SyndicationSourceRepository = (*PostgresSyndicationSourceRepo)(nil)
