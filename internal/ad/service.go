// Package ad は広告の選択とインプレッション・クリックのトラッキングを提供する。
package ad

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// Recorder は広告メトリクスの記録インターフェース。
type Recorder interface {
	AdImpression(slot string)
	AdClick(slot string)
}

// Service は広告に関するビジネスロジックを提供する。
type Service struct {
	adRepo   repository.AdRepository
	recorder Recorder
}

// NewService はServiceを生成する。
func NewService(adRepo repository.AdRepository, recorder Recorder) *Service {
	return &Service{
		adRepo:   adRepo,
		recorder: recorder,
	}
}

// Select はスロットの配信対象広告を1件返す。
// 配信対象は is_active かつ start_date <= now <= end_date の広告で、
// 複数候補がある場合はcreated_atが最新の1件が選ばれる。
// 配信対象がない場合はnilを返す（エラーではない）。
func (s *Service) Select(ctx context.Context, slot model.AdSlot) (*model.Ad, error) {
	if !slot.IsValid() {
		return nil, model.NewInvalidSlotError(string(slot))
	}

	ad, err := s.adRepo.FindActiveBySlot(ctx, slot, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to find active ad: %w", err)
	}

	return ad, nil
}

// TrackImpression はインプレッションを記録する。
// トラッキングの失敗は配信に影響させないため、エラーはログに記録するのみ。
func (s *Service) TrackImpression(ctx context.Context, adID string) {
	ad, err := s.adRepo.FindByID(ctx, adID)
	if err != nil || ad == nil {
		slog.Warn("impression for unknown ad", slog.String("ad_id", adID))
		return
	}

	if err := s.adRepo.IncrementImpressions(ctx, adID); err != nil {
		slog.Error("failed to increment impressions",
			slog.String("ad_id", adID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.recorder.AdImpression(string(ad.Slot))
}

// TrackClick はクリックを記録し、リダイレクト先URLを返す。
// 広告が見つからない場合は空文字列を返す。
func (s *Service) TrackClick(ctx context.Context, adID string) (string, error) {
	ad, err := s.adRepo.FindByID(ctx, adID)
	if err != nil {
		return "", fmt.Errorf("failed to find ad: %w", err)
	}
	if ad == nil {
		return "", model.NewRowNotFoundError()
	}

	if err := s.adRepo.IncrementClicks(ctx, adID); err != nil {
		// クリック数の更新失敗でリダイレクトを止めない
		slog.Error("failed to increment clicks",
			slog.String("ad_id", adID),
			slog.String("error", err.Error()),
		)
	} else {
		s.recorder.AdClick(string(ad.Slot))
	}

	return ad.TargetURL, nil
}
