package handler

import (
	"net/http"
	"sync"

	"post-reorder-backend/pkg/config"
	"post-reorder-backend/pkg/database"
	"post-reorder-backend/pkg/logging"
	"post-reorder-backend/pkg/server"
	"post-reorder-backend/pkg/utils"

	"go.uber.org/zap"
)

var (
	routerOnce   sync.Once
	routerMu     sync.Mutex
	cachedRouter http.Handler
	cachedDB     database.DatabaseInterface
	logger       *zap.Logger
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg := config.GetCached()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	routerOnce.Do(func() {
		logger = logging.NewOrNop(cfg)
	})

	// 获取数据库连接（冷启动复用）
	db, err := database.GetDatabase(cfg.DatabaseConfig())
	if err != nil {
		logger.Error("database unavailable", zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Database unavailable")
		return
	}

	// 连接被池重建时需要重建路由
	routerMu.Lock()
	if cachedRouter == nil || db != cachedDB {
		cachedRouter = server.NewRouter(cfg, db, logger)
		cachedDB = db
	}
	router := cachedRouter
	routerMu.Unlock()

	router.ServeHTTP(w, r)
}
