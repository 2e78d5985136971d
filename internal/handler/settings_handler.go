package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
)

// SettingsServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type SettingsServiceInterface interface {
	GetAll(ctx context.Context) (map[string]string, error)
	HeaderSummary(ctx context.Context) (*model.HeaderSummary, error)
}

// SettingsHandler はサイト設定・ヘッダーサマリーのHTTPハンドラー。
type SettingsHandler struct {
	service SettingsServiceInterface
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GetAll は全設定をキーバリューで返す。
// GET /api/settings
func (h *SettingsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// HeaderSummary は最新ヘッドラインとお知らせを返す。
// GET /api/header
func (h *SettingsHandler) HeaderSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.HeaderSummary(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	headlines := make([]map[string]any, 0, len(summary.Headlines))
	for _, a := range summary.Headlines {
		item := map[string]any{
			"id":    a.ID,
			"title": a.Title,
			"slug":  a.Slug,
		}
		if a.PublishedAt != nil {
			item["published_at"] = a.PublishedAt.Format(time.RFC3339)
		}
		headlines = append(headlines, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"headlines": headlines,
		"notice":    summary.Notice,
	})
}
