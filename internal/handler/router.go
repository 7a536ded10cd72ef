package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/cobros/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService     AuthServiceInterface
	BindingRepairer BindingRepairer
	AuthConfig      AuthHandlerConfig

	// レコード
	RecordService RecordServiceInterface
	UploadMaxSize int64

	// 通知
	NotificationService NotificationServiceInterface

	// 管理
	AdminService AdminServiceInterface

	// 運用
	MetricsHandler http.Handler
	Healthcheck    http.HandlerFunc
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging →
//	Session → ActiveUser → RateLimit(General)
//
// 認証ルート（/auth/*）と運用ルート（/health, /metrics）は
// 認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.BindingRepairer, deps.AuthConfig)
	recordHandler := NewRecordHandler(deps.RecordService, deps.UploadMaxSize)
	notifHandler := NewNotificationHandler(deps.NotificationService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 認証不要のルート ---

	if deps.Healthcheck != nil {
		r.Get("/health", deps.Healthcheck)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → ActiveUser → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewActiveUserMiddleware(deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// レコード管理
		r.Route("/api/records", func(r chi.Router) {
			// POST /api/records - レコード送信（送信専用レート制限を追加）
			r.With(deps.RateLimiter.SubmitMiddleware()).Post("/", recordHandler.Create)

			r.Get("/", recordHandler.List)
			r.Get("/totals", recordHandler.Totals)
		})

		// エクスポートURL
		r.Get("/api/export", recordHandler.Export)

		// 通知
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notifHandler.List)
			r.Post("/{id}/read", notifHandler.MarkRead)
		})

		// 管理（管理者ロールを追加で要求）
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewAdminMiddleware())

			r.Get("/users", adminHandler.ListUsers)
			r.Get("/logs", adminHandler.ListLogs)

			r.Route("/users/{id}", func(r chi.Router) {
				r.Post("/approve", adminHandler.Approve)
				r.Post("/block", adminHandler.Block)
				r.Post("/promote", adminHandler.Promote)
			})
		})
	})

	return r
}
