package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/newsroom/internal/model"
)

// PostgresAuthTokenRepo はPostgreSQLを使用したワンタイムトークンリポジトリ。
type PostgresAuthTokenRepo struct {
	db *sql.DB
}

// NewPostgresAuthTokenRepo はPostgresAuthTokenRepoを生成する。
func NewPostgresAuthTokenRepo(db *sql.DB) *PostgresAuthTokenRepo {
	return &PostgresAuthTokenRepo{db: db}
}

// Create はワンタイムトークンを作成する。
func (r *PostgresAuthTokenRepo) Create(ctx context.Context, token *model.AuthToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (id, user_id, token_hash, token_type, payload, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		token.ID, token.UserID, token.TokenHash, token.Type, token.Payload, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auth token: %w", MapPgError(err))
	}
	return nil
}

// Consume はトークンハッシュと種別が一致する未消費・有効期限内のトークンを
// 消費済みにし、該当トークンを返す。見つからない場合はnilを返す。
// UPDATE ... RETURNING により検索と消費をアトミックに行い、二重消費を防ぐ。
func (r *PostgresAuthTokenRepo) Consume(ctx context.Context, tokenHash string, tokenType model.AuthTokenType) (*model.AuthToken, error) {
	token := &model.AuthToken{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE auth_tokens
		 SET consumed_at = now()
		 WHERE token_hash = $1 AND token_type = $2
		   AND consumed_at IS NULL AND expires_at > now()
		 RETURNING id, user_id, token_hash, token_type, payload, expires_at, consumed_at, created_at`,
		tokenHash, tokenType,
	).Scan(&token.ID, &token.UserID, &token.TokenHash, &token.Type, &token.Payload,
		&token.ExpiresAt, &token.ConsumedAt, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume auth token: %w", err)
	}

	return token, nil
}

// DeleteStale は期限切れまたは消費済みのトークンを削除し、削除件数を返す。
func (r *PostgresAuthTokenRepo) DeleteStale(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE expires_at < now() OR consumed_at IS NOT NULL`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale auth tokens: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ AuthTokenRepository = (*PostgresAuthTokenRepo)(nil)
