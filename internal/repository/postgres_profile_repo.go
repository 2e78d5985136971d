package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/newsroom/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定ユーザーIDのプロフィールを取得する。
// 見つからない場合はErrCodeRowNotFoundのAPIErrorを返す。
// 呼び出し側（fetch-or-create）が「行なし」を他の失敗と区別できるようにするため、
// nilではなく専用エラーを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	profile := &model.Profile{}
	var linksJSON []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, avatar_url, role, bio, social_links, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(&profile.ID, &profile.FullName, &profile.AvatarURL, &profile.Role,
		&profile.Bio, &linksJSON, &profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, model.NewRowNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	if len(linksJSON) > 0 {
		if err := json.Unmarshal(linksJSON, &profile.SocialLinks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal social links: %w", err)
		}
	}

	return profile, nil
}

// Create はプロフィールを作成する。
// 同一IDの行が既に存在する場合は一意制約違反のAPIErrorを返す。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	linksJSON, err := marshalSocialLinks(profile.SocialLinks)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, avatar_url, role, bio, social_links, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		profile.ID, profile.FullName, profile.AvatarURL, profile.Role,
		profile.Bio, linksJSON, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", MapPgError(err))
	}
	return nil
}

// UpdateSelf は本人が変更可能なフィールドを更新する。ロールは変更しない。
func (r *PostgresProfileRepo) UpdateSelf(ctx context.Context, profile *model.Profile) error {
	linksJSON, err := marshalSocialLinks(profile.SocialLinks)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET full_name = $2, avatar_url = $3, bio = $4, social_links = $5, updated_at = now()
		 WHERE id = $1`,
		profile.ID, profile.FullName, profile.AvatarURL, profile.Bio, linksJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", MapPgError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewRowNotFoundError()
	}
	return nil
}

// UpdateRole はロールを更新する。管理APIからのみ呼び出される。
func (r *PostgresProfileRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET role = $2, updated_at = now() WHERE id = $1`,
		id, role,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewRowNotFoundError()
	}
	return nil
}

// marshalSocialLinks はSNSリンクをJSONBカラム用にエンコードする。
func marshalSocialLinks(links map[string]string) ([]byte, error) {
	if links == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal social links: %w", err)
	}
	return b, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
