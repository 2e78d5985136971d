package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsroom/internal/model"
)

// AdServiceInterface は広告ハンドラーが必要とするサービスインターフェース。
type AdServiceInterface interface {
	Select(ctx context.Context, slot model.AdSlot) (*model.Ad, error)
	TrackImpression(ctx context.Context, adID string)
	TrackClick(ctx context.Context, adID string) (string, error)
}

// AdHandler は広告配信・トラッキングのHTTPハンドラー。
type AdHandler struct {
	service AdServiceInterface
}

// NewAdHandler はAdHandlerを生成する。
func NewAdHandler(service AdServiceInterface) *AdHandler {
	return &AdHandler{service: service}
}

// Select はスロットの配信対象広告を返す。
// GET /api/ads/{slot}
// 配信対象がない場合は204を返す。
func (h *AdHandler) Select(w http.ResponseWriter, r *http.Request) {
	slot := model.AdSlot(chi.URLParam(r, "slot"))

	ad, err := h.service.Select(r.Context(), slot)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if ad == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         ad.ID,
		"slot":       string(ad.Slot),
		"title":      ad.Title,
		"image_url":  ad.ImageURL,
		"target_url": ad.TargetURL,
	})
}

// TrackImpression はインプレッションを記録する。
// POST /api/ads/{id}/impression
// トラッキングの失敗は配信に影響させないため、リクエストとは切り離して処理し、
// 常に202を返す。
func (h *AdHandler) TrackImpression(w http.ResponseWriter, r *http.Request) {
	adID := chi.URLParam(r, "id")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.service.TrackImpression(ctx, adID)
	}()

	w.WriteHeader(http.StatusAccepted)
}

// TrackClick はクリックを記録し、広告のリンク先にリダイレクトする。
// GET /api/ads/{id}/click
func (h *AdHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	targetURL, err := h.service.TrackClick(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, targetURL, http.StatusFound)
}
