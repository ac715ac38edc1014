package ui

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/clubhub/internal/auth"
	"github.com/hitoshi/clubhub/internal/metrics"
	"github.com/hitoshi/clubhub/internal/middleware"
	"github.com/hitoshi/clubhub/internal/mutation"
	"github.com/hitoshi/clubhub/internal/notify"
	"github.com/hitoshi/clubhub/internal/roster"
	"github.com/hitoshi/clubhub/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Auth      *auth.Controller
	View      *roster.View
	Mutations *mutation.Coordinator
	Notifier  *notify.Presenter
	Sanitizer security.TextSanitizerService
	Logger    *slog.Logger

	RateLimiter *middleware.RateLimiter
	Gatherer    prometheus.Gatherer
}

// NewRouter は全ルートとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging
//
// レート制限は変異ルート（/signup, /unregister）にのみ追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	h := NewHandler(deps.Auth, deps.View, deps.Mutations, deps.Notifier, deps.Sanitizer, deps.Logger)

	r.Get("/", h.Page)
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	// 変異ルートのみレート制限を掛ける
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.MutationMiddleware())
		r.Post("/signup", h.Signup)
		r.Post("/unregister", h.Unregister)
	})

	return r
}
