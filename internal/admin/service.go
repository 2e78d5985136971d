// Package admin は管理バックオフィスの許可リスト制テーブル操作を提供する。
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// Service は管理APIのビジネスロジックを提供する。
// すべての変更操作は実行のたびにプロフィールのロールをデータベースから
// 再取得して検証する。キャッシュ済みのロールは信用しない。
type Service struct {
	profileRepo repository.ProfileRepository
	mutator     repository.TableMutator
}

// NewService はServiceを生成する。
func NewService(profileRepo repository.ProfileRepository, mutator repository.TableMutator) *Service {
	return &Service{
		profileRepo: profileRepo,
		mutator:     mutator,
	}
}

// Insert は許可リスト内のテーブルに行を挿入し、生成されたIDを返す。
func (s *Service) Insert(ctx context.Context, actorID, table string, values map[string]any) (string, error) {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return "", err
	}
	if err := s.checkRoleMutation(actor, table, values); err != nil {
		return "", err
	}

	id, err := s.mutator.Insert(ctx, table, values)
	if err != nil {
		return "", err
	}

	slog.Info("admin insert",
		slog.String("actor_id", actorID),
		slog.String("table", table),
		slog.String("id", id),
	)

	return id, nil
}

// Update は許可リスト内のテーブルの指定ID行を部分更新する。
func (s *Service) Update(ctx context.Context, actorID, table, id string, values map[string]any) error {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return err
	}
	if err := s.checkRoleMutation(actor, table, values); err != nil {
		return err
	}

	if err := s.mutator.Update(ctx, table, id, values); err != nil {
		return err
	}

	slog.Info("admin update",
		slog.String("actor_id", actorID),
		slog.String("table", table),
		slog.String("id", id),
	)

	return nil
}

// Delete は許可リスト内のテーブルの指定ID行を削除する。
func (s *Service) Delete(ctx context.Context, actorID, table, id string) error {
	if _, err := s.authorize(ctx, actorID); err != nil {
		return err
	}

	if err := s.mutator.Delete(ctx, table, id); err != nil {
		return err
	}

	slog.Info("admin delete",
		slog.String("actor_id", actorID),
		slog.String("table", table),
		slog.String("id", id),
	)

	return nil
}

// authorize は操作者のプロフィールをデータベースから再取得し、
// 管理操作が許可されるロールであることを検証する。
func (s *Service) authorize(ctx context.Context, actorID string) (*model.Profile, error) {
	if actorID == "" {
		return nil, model.NewUnauthorizedError()
	}

	actor, err := s.profileRepo.FindByID(ctx, actorID)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeRowNotFound {
			return nil, model.NewForbiddenError()
		}
		return nil, fmt.Errorf("failed to load actor profile: %w", err)
	}

	if !actor.Role.CanAdministrate() {
		slog.Warn("admin operation denied",
			slog.String("actor_id", actorID),
			slog.String("role", string(actor.Role)),
		)
		return nil, model.NewForbiddenError()
	}

	return actor, nil
}

// checkRoleMutation はprofiles.roleの変更を検証する。
// ロールの付け替えはsuperadminのみに許可され、値は定義済みロールに限る。
func (s *Service) checkRoleMutation(actor *model.Profile, table string, values map[string]any) error {
	if table != "profiles" {
		return nil
	}
	raw, ok := values["role"]
	if !ok {
		return nil
	}

	if actor.Role != model.RoleSuperadmin {
		return model.NewForbiddenError()
	}

	roleStr, ok := raw.(string)
	if !ok || !model.Role(roleStr).IsValid() {
		return model.NewInvalidRequestError(fmt.Sprintf("無効なロールです: %v", raw))
	}

	return nil
}
