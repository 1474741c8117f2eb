package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"post-reorder-backend/pkg/models"

	"github.com/lib/pq"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)

	// 尝试多种连接策略来解决Vercel Lambda的IPv6问题
	strategies := []string{
		dsn,
		addConnectionParams(dsn, "connect_timeout=10"),
	}

	var lastErr error
	for _, strategy := range strategies {
		db, err := sql.Open("postgres", strategy)
		if err != nil {
			lastErr = err
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			lastErr = err
			db.Close()
			continue
		}
		return &PostgresDatabase{db: db}, nil
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", lastErr)
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	// key=value DSNs take space separated params
	if !strings.Contains(dsn, "://") {
		return dsn + " " + strings.ReplaceAll(params, "&", " ")
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

// ListItems 按分区与排序返回条目
func (db *PostgresDatabase) ListItems(ctx context.Context, q models.ListQuery) ([]models.Item, error) {
	q = q.Normalized()
	// OrderBy and Direction are whitelisted by Normalized.
	query := fmt.Sprintf(`
        SELECT id, title, post_type, post_status, menu_order, post_parent, updated_at
        FROM posts
        WHERE post_type = $1 AND post_status = $2
        ORDER BY %s %s, id ASC
    `, q.OrderBy, q.Direction)

	rows, err := db.db.QueryContext(ctx, query, q.PostType, q.PostStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.PostType, &it.PostStatus, &it.MenuOrder, &it.ParentID, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItem 根据ID获取条目
func (db *PostgresDatabase) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	var it models.Item
	err := db.db.QueryRowContext(ctx, `
        SELECT id, title, post_type, post_status, menu_order, post_parent, updated_at
        FROM posts WHERE id = $1
    `, id).Scan(&it.ID, &it.Title, &it.PostType, &it.PostStatus, &it.MenuOrder, &it.ParentID, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &it, nil
}

// CreateItem 创建条目；ID 为 0 时由数据库分配
func (db *PostgresDatabase) CreateItem(ctx context.Context, it *models.Item) error {
	if it.ID == 0 {
		err := db.db.QueryRowContext(ctx, `
            INSERT INTO posts (title, post_type, post_status, menu_order, post_parent, updated_at)
            VALUES ($1, $2, $3, $4, $5, NOW())
            RETURNING id, updated_at
        `, it.Title, it.PostType, it.PostStatus, it.MenuOrder, it.ParentID).Scan(&it.ID, &it.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}
		return nil
	}

	err := db.db.QueryRowContext(ctx, `
        INSERT INTO posts (id, title, post_type, post_status, menu_order, post_parent, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING updated_at
    `, it.ID, it.Title, it.PostType, it.PostStatus, it.MenuOrder, it.ParentID).Scan(&it.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("create item %d: %w", it.ID, ErrItemExists)
		}
		return fmt.Errorf("failed to create item %d: %w", it.ID, err)
	}
	// explicit ids bypass the sequence; move it past them
	_, err = db.db.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('posts', 'id'), (SELECT MAX(id) FROM posts))`)
	if err != nil {
		return fmt.Errorf("failed to advance id sequence: %w", err)
	}
	return nil
}

// FilterInScope 返回属于该分区的ID集合
func (db *PostgresDatabase) FilterInScope(ctx context.Context, postType, postStatus string, ids []int64) (map[int64]bool, error) {
	in := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return in, nil
	}
	rows, err := db.db.QueryContext(ctx, `
        SELECT id FROM posts
        WHERE post_type = $1 AND post_status = $2 AND id = ANY($3)
    `, postType, postStatus, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to check item scope: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		in[id] = true
	}
	return in, rows.Err()
}

// ApplyOrder 逐条写入排序值
func (db *PostgresDatabase) ApplyOrder(ctx context.Context, assignments []models.OrderAssignment) models.ReorderReport {
	return applyEach(ctx, assignments, func(ctx context.Context, a models.OrderAssignment) error {
		var (
			res sql.Result
			err error
		)
		if a.SetParent {
			res, err = db.db.ExecContext(ctx,
				`UPDATE posts SET menu_order = $1, post_parent = $2, updated_at = NOW() WHERE id = $3`,
				a.MenuOrder, a.ParentID, a.ID)
		} else {
			res, err = db.db.ExecContext(ctx,
				`UPDATE posts SET menu_order = $1, updated_at = NOW() WHERE id = $2`,
				a.MenuOrder, a.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to update item %d: %w", a.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrItemNotFound
		}
		return nil
	})
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Close 关闭连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
