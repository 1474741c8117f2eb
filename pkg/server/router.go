// Package server assembles the HTTP surface: global middleware, the admin
// pages, the ajax endpoint and the JSON API.
package server

import (
	"fmt"
	"net/http"
	"time"

	"post-reorder-backend/pkg/config"
	"post-reorder-backend/pkg/database"
	"post-reorder-backend/pkg/editor"
	"post-reorder-backend/pkg/handlers"
	customMiddleware "post-reorder-backend/pkg/middleware"
	"post-reorder-backend/pkg/models"
	"post-reorder-backend/pkg/reorder"
	"post-reorder-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxAjaxBody bounds a post_sort request; a few thousand nested ids fit easily.
const maxAjaxBody = 1 << 20

// NewRouter builds the chi router serving every endpoint.
func NewRouter(cfg *config.Config, db database.DatabaseInterface, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := chi.NewRouter()
	setupMiddleware(router, cfg, logger)
	setupRoutes(router, cfg, db, logger)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *zap.Logger) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.StripSlashes)
	router.Use(customMiddleware.Logger(logger))
	router.Use(customMiddleware.Recovery(cfg, logger))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second)) // 留5秒缓冲

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface, logger *zap.Logger) {
	sessions := utils.NewJWTService(cfg.JWTSecret)
	nonces := utils.NewNonceService(cfg.JWTSecret, cfg.NonceTTL)
	persister := reorder.NewPersister(db, nonces, cfg, utils.SortNonceAction, logger)

	healthHandler := handlers.NewHealthHandler(cfg, db)
	adminHandler := handlers.NewAdminHandler(cfg, db, nonces, sessions, logger)
	itemsHandler := handlers.NewItemsHandler(cfg, db, nonces, logger)
	reorderHandler := handlers.NewReorderHandler(persister, logger)

	ajax := handlers.NewAjaxDispatcher(logger)
	ajax.Register(editor.SortAction, reorderHandler.PostSort)

	requireSession := customMiddleware.AuthMiddleware(sessions, logger)
	requireEditor := customMiddleware.RequireCapability(models.CapabilityEditPosts)

	// 健康检查端点
	router.Get("/", healthHandler.HealthCheck)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", healthHandler.DBPool)
	}

	router.Route(handlers.AdminPrefix, func(r chi.Router) {
		// 公开路由
		r.Get("/session", adminHandler.Session)
		r.Handle("/assets/*", handlers.Assets())

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/", adminHandler.Index)
			r.Get("/menu", adminHandler.Menu)

			r.Group(func(r chi.Router) {
				r.Use(requireEditor)
				r.Get("/reorder/{slug}", adminHandler.Page)
				r.With(
					customMiddleware.AjaxContentType,
					customMiddleware.MaxBodySize(maxAjaxBody),
				).Post("/ajax", ajax.ServeHTTP)
			})
		})
	})

	// API路由组（需要认证）
	router.Route("/api", func(r chi.Router) {
		r.Use(requireSession)
		r.Use(requireEditor)
		r.Get("/items", itemsHandler.ListItems)
		r.Get("/nonce", itemsHandler.Nonce)
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
