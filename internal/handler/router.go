package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/fletnix/internal/catalog"
	"github.com/hitoshi/fletnix/internal/metrics"
	"github.com/hitoshi/fletnix/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Resolver          middleware.ViewerResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector

	// 運用
	DB             Pinger
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface

	// カタログ
	CatalogService CatalogServiceInterface
	Paging         catalog.Paging
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → SecurityHeaders → Logging → Metrics → CORS
//	  /catalog: OptionalAuth → RateLimit(General)
//	  /auth/register, /auth/login: RateLimit(Auth)
//	  /auth/me: RequireAuth → RateLimit(General)
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(m))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, notFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusMethodNotAllowed, methodNotAllowedError())
	})

	healthHandler := NewHealthHandler(deps.DB)
	authHandler := NewAuthHandler(deps.AuthService)
	catalogHandler := NewCatalogHandler(deps.CatalogService, deps.Paging)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証 ---
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.With(
			middleware.NewRequireAuthMiddleware(deps.Resolver),
			deps.RateLimiter.GeneralMiddleware(),
		).Get("/me", authHandler.Me)
	})

	// --- カタログ（認証任意） ---
	r.Route("/catalog", func(r chi.Router) {
		r.Use(middleware.NewOptionalAuthMiddleware(deps.Resolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", catalogHandler.ListShows)
		r.Get("/{identifier}", catalogHandler.GetShow)
	})

	return r
}
