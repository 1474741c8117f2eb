package database

import (
	"context"
	"errors"
	"fmt"
	"os"

	"post-reorder-backend/pkg/models"
)

// ErrItemNotFound is reported when a write or lookup targets a missing item.
var ErrItemNotFound = errors.New("item not found")

// ErrItemExists is returned by CreateItem for an explicit id already in use.
var ErrItemExists = errors.New("item already exists")

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// Listing
	ListItems(ctx context.Context, q models.ListQuery) ([]models.Item, error)
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	CreateItem(ctx context.Context, it *models.Item) error

	// FilterInScope returns which of ids belong to the post_type/post_status partition.
	FilterInScope(ctx context.Context, postType, postStatus string, ids []int64) (map[int64]bool, error)

	// ApplyOrder writes every assignment independently (no spanning
	// transaction) and reports how many landed and which failed.
	ApplyOrder(ctx context.Context, assignments []models.OrderAssignment) models.ReorderReport

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver      string
	PostgresDSN string
	SQLitePath  string
	RedisAddr   string
	RedisDB     int
	AutoMigrate bool
	Debug       bool
}

// NewDatabase 根据配置选择数据库实现
func NewDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	if config.AutoMigrate {
		if err := Migrate(config); err != nil {
			return nil, err
		}
	}

	var (
		db  DatabaseInterface
		err error
	)
	switch config.Driver {
	case "postgres":
		db, err = unwrap(NewPostgresDatabase(config.PostgresDSN))
	case "sqlite", "":
		db, err = unwrap(NewSQLiteDatabase(config.SQLitePath))
	case "redis":
		db, err = unwrap(NewRedisDatabase(config.RedisAddr, config.RedisDB))
	default:
		err = fmt.Errorf("no valid database configuration found for driver %q", config.Driver)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// unwrap keeps a typed nil store out of the returned interface.
func unwrap[T DatabaseInterface](db T, err error) (DatabaseInterface, error) {
	if err != nil {
		return nil, err
	}
	return db, nil
}

// isVercelEnvironment 内部检查 Vercel 环境
func isVercelEnvironment() bool {
	return os.Getenv("VERCEL_ENV") != "" || os.Getenv("VERCEL_URL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// applyEach runs write for every assignment and folds the results into a report.
func applyEach(ctx context.Context, assignments []models.OrderAssignment, write func(context.Context, models.OrderAssignment) error) models.ReorderReport {
	written := 0
	var failures []models.WriteFailure
	for _, a := range assignments {
		if err := write(ctx, a); err != nil {
			failures = append(failures, models.WriteFailure{ID: a.ID, Error: err.Error()})
			continue
		}
		written++
	}
	return models.NewReorderReport(len(assignments), written, failures)
}
