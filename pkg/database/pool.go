package database

import (
	"context"
	"sync"
	"time"
)

// DatabasePool 数据库连接池（每个冷启动复用一个实例）
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// connectionMaxIdle is how long an unused pooled store is trusted without a health check.
const connectionMaxIdle = 30 * time.Minute

// GetDatabase 获取数据库连接（单例模式 + 连接池）
func GetDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool != nil && !shouldRecreateConnection(globalPool, config) {
		globalPool.mu.Lock()
		globalPool.lastUsed = time.Now()
		globalPool.mu.Unlock()
		return globalPool.instance, nil
	}

	// 关闭旧连接（如果存在）
	if globalPool != nil && globalPool.instance != nil {
		globalPool.instance.Close()
	}
	globalPool = nil

	instance, err := NewDatabase(config)
	if err != nil {
		return nil, err
	}
	globalPool = &DatabasePool{
		instance: instance,
		config:   config,
		lastUsed: time.Now(),
	}
	return instance, nil
}

// shouldRecreateConnection 判断是否需要重新创建连接
func shouldRecreateConnection(pool *DatabasePool, newConfig DatabaseConfig) bool {
	if pool == nil || pool.instance == nil {
		return true
	}
	if pool.config != newConfig {
		return true
	}

	pool.mu.RLock()
	expired := time.Since(pool.lastUsed) > connectionMaxIdle
	pool.mu.RUnlock()
	if expired {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return pool.instance.HealthCheck(ctx) != nil
}

// ClosePool 关闭并清空全局连接
func ClosePool() error {
	poolMutex.Lock()
	defer poolMutex.Unlock()
	if globalPool == nil {
		return nil
	}
	err := globalPool.instance.Close()
	globalPool = nil
	return err
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":     "no_connection",
			"last_used":  nil,
			"serverless": isVercelEnvironment(),
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	return map[string]interface{}{
		"status":     "connected",
		"last_used":  lastUsed.Format(time.RFC3339),
		"age":        time.Since(lastUsed).String(),
		"serverless": isVercelEnvironment(),
		"config": map[string]interface{}{
			"driver":       globalPool.config.Driver,
			"has_postgres": globalPool.config.PostgresDSN != "",
			"sqlite_path":  globalPool.config.SQLitePath,
			"redis_addr":   globalPool.config.RedisAddr,
		},
	}
}
