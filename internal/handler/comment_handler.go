package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsroom/internal/middleware"
	"github.com/hitoshi/newsroom/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	ListByArticle(ctx context.Context, articleSlug string) ([]model.CommentWithAuthor, error)
	Create(ctx context.Context, userID, articleSlug, parentID, body string) (*model.Comment, error)
	Moderate(ctx context.Context, actor *model.Profile, commentID string, status model.CommentStatus) error
	Delete(ctx context.Context, actor *model.Profile, commentID string) error
	ToggleReaction(ctx context.Context, userID, articleSlug string, kind model.ReactionKind) (bool, error)
	CountReactions(ctx context.Context, articleSlug string) (map[model.ReactionKind]int, error)
}

// CommentHandler はコメント・リアクション関連のHTTPハンドラー。
type CommentHandler struct {
	service  CommentServiceInterface
	profiles ProfileLoader
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface, profiles ProfileLoader) *CommentHandler {
	return &CommentHandler{
		service:  service,
		profiles: profiles,
	}
}

// List は記事の表示中コメントを返す。
// GET /api/articles/{slug}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListByArticle(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(comments))
	for _, c := range comments {
		items = append(items, map[string]any{
			"id":                c.ID,
			"parent_id":         c.ParentID,
			"body":              c.Body,
			"author_name":       c.AuthorName,
			"author_avatar_url": c.AuthorAvatarURL,
			"created_at":        c.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": items})
}

// Create はコメントを投稿する。
// POST /api/articles/{slug}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req struct {
		ParentID string `json:"parent_id"`
		Body     string `json:"body"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	comment, err := h.service.Create(r.Context(), userID, chi.URLParam(r, "slug"), req.ParentID, req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         comment.ID,
		"body":       comment.Body,
		"created_at": comment.CreatedAt.Format(time.RFC3339),
	})
}

// Moderate はコメントの表示状態を変更する。
// PATCH /api/comments/{id}/status
func (h *CommentHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.loadActor(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.service.Moderate(r.Context(), actor, chi.URLParam(r, "id"), model.CommentStatus(req.Status)); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete はコメントを削除する。
// DELETE /api/comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.loadActor(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleReaction はリアクションをトグルする。
// POST /api/articles/{slug}/reactions
func (h *CommentHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	active, err := h.service.ToggleReaction(r.Context(), userID, chi.URLParam(r, "slug"), model.ReactionKind(req.Kind))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":   req.Kind,
		"active": active,
	})
}

// CountReactions は記事のリアクション数を種別ごとに返す。
// GET /api/articles/{slug}/reactions
func (h *CommentHandler) CountReactions(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.CountReactions(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := map[string]int{}
	for kind, count := range counts {
		resp[string(kind)] = count
	}
	writeJSON(w, http.StatusOK, map[string]any{"reactions": resp})
}

// loadActor はリクエストコンテキストから操作者プロフィールを取得する。
func (h *CommentHandler) loadActor(w http.ResponseWriter, r *http.Request) (*model.Profile, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}

	actor, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return actor, true
}
