// Package profile はユーザープロフィールの取得・自動作成・更新を提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// Service はプロフィールに関するビジネスロジックを提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(profileRepo repository.ProfileRepository, userRepo repository.UserRepository) *Service {
	return &Service{
		profileRepo: profileRepo,
		userRepo:    userRepo,
	}
}

// Get は指定ユーザーのプロフィールを取得する。
// 見つからない場合はPROFILE_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	prof, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		if isRowNotFound(err) {
			return nil, model.NewProfileNotFoundError()
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return prof, nil
}

// GetOrCreate は指定ユーザーのプロフィールを取得し、存在しない場合は
// memberロールのプロフィールを自動作成して返す。
// 同一ユーザーに対する並行呼び出しで作成が競合した場合は、
// 主キーの一意制約違反を検出して再読み込みで解決する。
// プロフィールが取得できない失敗は認証済み状態を壊さないよう、
// エラーではなくnilを返してログに記録する。
func (s *Service) GetOrCreate(ctx context.Context, userID string) *model.Profile {
	// 1. 既存プロフィールの取得を試みる
	prof, err := s.profileRepo.FindByID(ctx, userID)
	if err == nil {
		return prof
	}
	if !isRowNotFound(err) {
		slog.Error("failed to load profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	// 2. 未作成: ユーザー情報から表示名のシードを取得
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user == nil {
		slog.Error("failed to load user for profile provisioning",
			slog.String("user_id", userID),
		)
		return nil
	}

	now := time.Now()
	created := &model.Profile{
		ID:          userID,
		FullName:    user.DisplayNameSeed(),
		Role:        model.RoleMember,
		SocialLinks: map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// 3. memberロールで作成。並行作成との競合は一意制約違反として現れる
	if err := s.profileRepo.Create(ctx, created); err != nil {
		if repository.IsUniqueViolation(err) {
			// 別の呼び出しが先に作成した。確定した行を読み直す
			existing, rerr := s.profileRepo.FindByID(ctx, userID)
			if rerr != nil {
				slog.Error("failed to reload profile after create race",
					slog.String("user_id", userID),
					slog.String("error", rerr.Error()),
				)
				return nil
			}
			return existing
		}
		slog.Error("failed to create profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	slog.Info("profile provisioned",
		slog.String("user_id", userID),
		slog.String("full_name", created.FullName),
	)

	return created
}

// UpdateSelf は本人が変更可能なフィールドを更新し、更新後のプロフィールを返す。
// ロールは変更対象に含まれない。
func (s *Service) UpdateSelf(ctx context.Context, userID string, fullName, avatarURL, bio string, socialLinks map[string]string) (*model.Profile, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	current.FullName = fullName
	current.AvatarURL = avatarURL
	current.Bio = bio
	if socialLinks != nil {
		current.SocialLinks = socialLinks
	}

	if err := s.profileRepo.UpdateSelf(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.Get(ctx, userID)
}

// isRowNotFound は行未検出のAPIErrorかを判定する。
func isRowNotFound(err error) bool {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == model.ErrCodeRowNotFound
	}
	return false
}
