// Package sitesettings はサイト設定の取得とヘッダーサマリーの集約を提供する。
package sitesettings

import (
	"context"
	"fmt"

	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// NoticeKey はヘッダーに表示するお知らせの設定キー。
const NoticeKey = "site_notice"

// headlineCount はヘッダーサマリーに含めるヘッドライン件数。
const headlineCount = 5

// Service はサイト設定に関するビジネスロジックを提供する。
type Service struct {
	settingRepo repository.SettingRepository
	articleRepo repository.ArticleRepository
}

// NewService はServiceを生成する。
func NewService(settingRepo repository.SettingRepository, articleRepo repository.ArticleRepository) *Service {
	return &Service{
		settingRepo: settingRepo,
		articleRepo: articleRepo,
	}
}

// GetAll は全設定をキーバリューのマップで返す。
func (s *Service) GetAll(ctx context.Context) (map[string]string, error) {
	settings, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// HeaderSummary は最新ヘッドラインとお知らせを集約して返す。
// ヘッダー描画のために1回のリクエストで必要な情報をまとめる。
func (s *Service) HeaderSummary(ctx context.Context) (*model.HeaderSummary, error) {
	headlines, err := s.articleRepo.ListHeadlines(ctx, headlineCount)
	if err != nil {
		return nil, fmt.Errorf("failed to list headlines: %w", err)
	}

	notice, err := s.settingRepo.Get(ctx, NoticeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get notice: %w", err)
	}

	return &model.HeaderSummary{
		Headlines: headlines,
		Notice:    notice,
	}, nil
}
