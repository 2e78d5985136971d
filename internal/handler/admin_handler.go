package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsroom/internal/middleware"
	"github.com/hitoshi/newsroom/internal/model"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	Insert(ctx context.Context, actorID, table string, values map[string]any) (string, error)
	Update(ctx context.Context, actorID, table, id string, values map[string]any) error
	Delete(ctx context.Context, actorID, table, id string) error
}

// AdminHandler は管理バックオフィスのHTTPハンドラー。
// 操作可能なテーブルとカラムはサービス層の許可リストで制限される。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// Insert は許可リスト内のテーブルに行を挿入する。
// POST /api/admin/{table}
func (h *AdminHandler) Insert(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var values map[string]any
	if !decodeJSONBody(w, r, &values) {
		return
	}

	id, err := h.service.Insert(r.Context(), actorID, chi.URLParam(r, "table"), values)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// Update は許可リスト内のテーブルの指定ID行を部分更新する。
// PATCH /api/admin/{table}/{id}
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var values map[string]any
	if !decodeJSONBody(w, r, &values) {
		return
	}

	if err := h.service.Update(r.Context(), actorID, chi.URLParam(r, "table"), chi.URLParam(r, "id"), values); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete は許可リスト内のテーブルの指定ID行を削除する。
// DELETE /api/admin/{table}/{id}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), actorID, chi.URLParam(r, "table"), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
