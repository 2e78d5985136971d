package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/newsroom/internal/model"
)

// ProfileFinder はロール検証に必要なインターフェース。
// repository.ProfileRepositoryの部分集合として定義する。
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// NewRequireAdminMiddleware は管理ロールを要求するミドルウェアを返す。
// プロフィールのロールをリクエストのたびにデータベースから取得して検証する。
// セッションミドルウェアの後に配置すること。
// ロールが不足しているリクエストには403 Forbiddenを返す。
func NewRequireAdminMiddleware(profiles ProfileFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			profile, err := profiles.FindByID(r.Context(), userID)
			if err != nil {
				if apiErr, ok := err.(*model.APIError); ok && apiErr.Code == model.ErrCodeRowNotFound {
					WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
					return
				}
				slog.Error("failed to load profile for role check",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			if !profile.Role.CanAdministrate() {
				slog.Warn("admin route denied",
					slog.String("user_id", userID),
					slog.String("role", string(profile.Role)),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
