package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newsroom/internal/model"
)

// PostgresReactionRepo はPostgreSQLを使用したリアクションリポジトリ。
type PostgresReactionRepo struct {
	db *sql.DB
}

// NewPostgresReactionRepo はPostgresReactionRepoを生成する。
func NewPostgresReactionRepo(db *sql.DB) *PostgresReactionRepo {
	return &PostgresReactionRepo{db: db}
}

// Toggle は(user, article, kind)のリアクションをトグルする。
// 既存行があれば削除してfalse、なければ作成してtrueを返す。
// 同時トグルの競合は(user_id, article_id, kind)の一意制約で吸収し、
// 一意制約違反の場合は「既に存在した」として削除にフォールバックする。
func (r *PostgresReactionRepo) Toggle(ctx context.Context, userID, articleID string, kind model.ReactionKind) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE user_id = $1 AND article_id = $2 AND kind = $3`,
		userID, articleID, kind,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete reaction: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if deleted > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reactions (id, user_id, article_id, kind, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), userID, articleID, kind, time.Now(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			// 同時トグルで別リクエストが先に作成した。トグルの意味を保つため削除する。
			if _, delErr := r.db.ExecContext(ctx,
				`DELETE FROM reactions WHERE user_id = $1 AND article_id = $2 AND kind = $3`,
				userID, articleID, kind,
			); delErr != nil {
				return false, fmt.Errorf("failed to resolve toggle conflict: %w", delErr)
			}
			return false, nil
		}
		return false, fmt.Errorf("failed to insert reaction: %w", MapPgError(err))
	}

	return true, nil
}

// CountByArticle は記事のリアクション数を種別ごとに返す。
func (r *PostgresReactionRepo) CountByArticle(ctx context.Context, articleID string) (map[model.ReactionKind]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, count(*) FROM reactions WHERE article_id = $1 GROUP BY kind`,
		articleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ReactionKind]int)
	for rows.Next() {
		var kind model.ReactionKind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan reaction count: %w", err)
		}
		counts[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reaction counts: %w", err)
	}

	return counts, nil
}

// compile-time interface check
var _ ReactionRepository = (*PostgresReactionRepo)(nil)
