package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/cobros/internal/model"
)

// profileContextKey はリクエストコンテキストにユーザープロフィールを格納するためのキー。
var profileContextKey = contextKey("profile")

// UserFinder はユーザープロフィールの検索に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.UserProfile, error)
}

// NewActiveUserMiddleware は認証済みユーザーのアカウント状態を検証するミドルウェアを返す。
// 未承認アカウントにはACCOUNT_PENDING、ブロック済みアカウントにはACCOUNT_BLOCKEDを返す。
// 通過した場合、プロフィールをリクエストコンテキストに注入する。
// SessionMiddlewareの後に配置すること。
func NewActiveUserMiddleware(userFinder UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			user, err := userFinder.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to find user",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if user.Blocked {
				WriteErrorResponse(w, http.StatusForbidden, model.NewAccountBlockedError())
				return
			}
			if !user.Approved {
				WriteErrorResponse(w, http.StatusForbidden, model.NewAccountPendingError())
				return
			}

			ctx := context.WithValue(r.Context(), profileContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAdminMiddleware は管理者ロールを要求するミドルウェアを返す。
// ActiveUserMiddlewareの後に配置すること。
func NewAdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := ProfileFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if !user.IsAdmin() {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProfileFromContext はリクエストコンテキストからユーザープロフィールを取得する。
// ActiveUserMiddlewareを通過したリクエストでのみ有効。
func ProfileFromContext(ctx context.Context) (*model.UserProfile, error) {
	user, ok := ctx.Value(profileContextKey).(*model.UserProfile)
	if !ok || user == nil {
		return nil, model.NewUnauthorizedError()
	}
	return user, nil
}

// ContextWithProfile はコンテキストにユーザープロフィールを注入する。テスト用。
func ContextWithProfile(ctx context.Context, user *model.UserProfile) context.Context {
	return context.WithValue(ctx, profileContextKey, user)
}
