package handlers

import (
	"context"
	"net/http"
	"time"

	"post-reorder-backend/pkg/config"
	"post-reorder-backend/pkg/database"
	"post-reorder-backend/pkg/utils"
)

type HealthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewHealthHandler(cfg *config.Config, db database.DatabaseInterface) *HealthHandler {
	return &HealthHandler{config: cfg, db: db}
}

// HealthCheck 健康检查
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 测试数据库连接
	dbStatus := "healthy"
	if err := h.db.HealthCheck(ctx); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "post-reorder-backend",
		"version":     "1.0.0",
		"environment": h.config.Environment,
		"database":    h.config.DBDriver,
		"db_status":   dbStatus,
		"timestamp":   time.Now().Unix(),
		"status":      "healthy",
	})
}

// DBPool 数据库连接池状态（调试用）
func (h *HealthHandler) DBPool(w http.ResponseWriter, r *http.Request) {
	stats := database.GetConnectionStats()
	stats["targets"] = len(h.config.Targets)
	utils.WriteSuccessResponse(w, stats)
}
