package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/newsroom/internal/middleware"
	"github.com/hitoshi/newsroom/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetOrCreate(ctx context.Context, userID string) *model.Profile
	UpdateSelf(ctx context.Context, userID string, fullName, avatarURL, bio string, socialLinks map[string]string) (*model.Profile, error)
}

// ProfileHandler はプロフィール関連のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Get は自分のプロフィールを返す。未作成の場合は自動作成する。
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	profile := h.service.GetOrCreate(r.Context(), userID)
	if profile == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewProfileNotFoundError())
		return
	}

	writeJSON(w, http.StatusOK, profileResponse(profile))
}

// Update は自分のプロフィールを更新する。ロールは変更できない。
// PATCH /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req struct {
		FullName    string            `json:"full_name"`
		AvatarURL   string            `json:"avatar_url"`
		Bio         string            `json:"bio"`
		SocialLinks map[string]string `json:"social_links"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateSelf(r.Context(), userID, req.FullName, req.AvatarURL, req.Bio, req.SocialLinks)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse(profile))
}

// profileResponse はプロフィールのJSONレスポンスを構築する。
func profileResponse(p *model.Profile) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"full_name":    p.FullName,
		"avatar_url":   p.AvatarURL,
		"role":         string(p.Role),
		"bio":          p.Bio,
		"social_links": p.SocialLinks,
	}
}
