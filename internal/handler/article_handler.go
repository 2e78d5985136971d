package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsroom/internal/article"
	"github.com/hitoshi/newsroom/internal/middleware"
	"github.com/hitoshi/newsroom/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	ListPublished(ctx context.Context, filter model.ArticleFilter, cursor string, limit int) ([]model.ArticleWithMeta, string, error)
	GetBySlug(ctx context.Context, slug string) (*model.ArticleWithMeta, error)
	Create(ctx context.Context, actor *model.Profile, input article.Input) (*model.Article, error)
	Update(ctx context.Context, actor *model.Profile, slug string, input article.Input) (*model.Article, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
}

// ProfileLoader は操作者プロフィールの取得インターフェース。
type ProfileLoader interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
}

// ArticleHandler は記事関連のHTTPハンドラー。
type ArticleHandler struct {
	service  ArticleServiceInterface
	profiles ProfileLoader
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface, profiles ProfileLoader) *ArticleHandler {
	return &ArticleHandler{
		service:  service,
		profiles: profiles,
	}
}

// articleInput は記事作成・更新のリクエストボディ。
type articleInput struct {
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Summary    string   `json:"summary"`
	Content    string   `json:"content"`
	CoverURL   string   `json:"cover_url"`
	CategoryID string   `json:"category_id"`
	Status     string   `json:"status"`
	TagSlugs   []string `json:"tag_slugs"`
}

// List は公開済み記事の一覧を返す。
// GET /api/articles?category=xxx&tag=yyy&q=zzz&cursor=...&limit=20
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := model.ArticleFilter{
		CategorySlug: query.Get("category"),
		TagSlug:      query.Get("tag"),
		Query:        query.Get("q"),
	}
	limit, _ := strconv.Atoi(query.Get("limit"))

	articles, nextCursor, err := h.service.ListPublished(r.Context(), filter, query.Get("cursor"), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(articles))
	for i := range articles {
		items = append(items, articleMetaResponse(&articles[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"articles":    items,
		"next_cursor": nextCursor,
	})
}

// Get はスラッグで記事詳細を返す。
// GET /api/articles/{slug}
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	a, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := articleMetaResponse(a)
	resp["content"] = a.Content
	writeJSON(w, http.StatusOK, resp)
}

// Create は記事を作成する。author以上のロールが必要。
// POST /api/articles
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.loadActor(w, r)
	if !ok {
		return
	}

	var req articleInput
	if !decodeJSONBody(w, r, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), actor, toArticleInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":   created.ID,
		"slug": created.Slug,
	})
}

// Update はスラッグで指定した記事を更新する。
// PUT /api/articles/{slug}
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.loadActor(w, r)
	if !ok {
		return
	}

	var req articleInput
	if !decodeJSONBody(w, r, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "slug"), toArticleInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":   updated.ID,
		"slug": updated.Slug,
	})
}

// ListCategories は全カテゴリを返す。
// GET /api/categories
func (h *ArticleHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		items = append(items, map[string]any{
			"id":         c.ID,
			"name":       c.Name,
			"slug":       c.Slug,
			"sort_order": c.SortOrder,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": items})
}

// ListTags は全タグを返す。
// GET /api/tags
func (h *ArticleHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(tags))
	for _, t := range tags {
		items = append(items, map[string]any{
			"id":   t.ID,
			"name": t.Name,
			"slug": t.Slug,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": items})
}

// loadActor はリクエストコンテキストから操作者プロフィールを取得する。
func (h *ArticleHandler) loadActor(w http.ResponseWriter, r *http.Request) (*model.Profile, bool) {
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

// toArticleInput はリクエストボディをサービス層の入力に変換する。
func toArticleInput(req articleInput) article.Input {
	return article.Input{
		Title:      req.Title,
		Slug:       req.Slug,
		Summary:    req.Summary,
		Content:    req.Content,
		CoverURL:   req.CoverURL,
		CategoryID: req.CategoryID,
		Status:     model.ArticleStatus(req.Status),
		TagSlugs:   req.TagSlugs,
	}
}

// articleMetaResponse は一覧・詳細共通の記事レスポンスを構築する。本文は含まない。
func articleMetaResponse(a *model.ArticleWithMeta) map[string]any {
	resp := map[string]any{
		"id":            a.ID,
		"title":         a.Title,
		"slug":          a.Slug,
		"summary":       a.Summary,
		"cover_url":     a.CoverURL,
		"category_name": a.CategoryName,
		"author_name":   a.AuthorName,
		"tags":          a.Tags,
		"view_count":    a.ViewCount,
	}
	if a.PublishedAt != nil {
		resp["published_at"] = a.PublishedAt.Format(time.RFC3339)
	}
	return resp
}
