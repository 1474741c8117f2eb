package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"post-reorder-backend/pkg/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteDatabase is the embedded store used for development and tests.
type SQLiteDatabase struct {
	db *sql.DB
}

// sqliteDSN prepares the data directory and appends connection pragmas.
func sqliteDSN(path string) (string, error) {
	if path == "" {
		path = "./data/reorder.db"
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	if strings.Contains(path, "?") {
		return path, nil
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
}

// NewSQLiteDatabase opens (creating if needed) the SQLite file at path.
// The schema must already be migrated; see Migrate.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between concurrent reorder requests
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return &SQLiteDatabase{db: db}, nil
}

const sqliteItemColumns = `id, title, post_type, post_status, menu_order, post_parent, updated_at`

func scanSQLiteItem(scan func(dest ...any) error) (models.Item, error) {
	var (
		it      models.Item
		updated int64
	)
	if err := scan(&it.ID, &it.Title, &it.PostType, &it.PostStatus, &it.MenuOrder, &it.ParentID, &updated); err != nil {
		return models.Item{}, err
	}
	it.UpdatedAt = time.Unix(updated, 0).UTC()
	return it, nil
}

func (db *SQLiteDatabase) ListItems(ctx context.Context, q models.ListQuery) ([]models.Item, error) {
	q = q.Normalized()
	query := fmt.Sprintf(`SELECT %s FROM posts WHERE post_type = ? AND post_status = ? ORDER BY %s %s, id ASC`,
		sqliteItemColumns, q.OrderBy, q.Direction)
	rows, err := db.db.QueryContext(ctx, query, q.PostType, q.PostStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanSQLiteItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (db *SQLiteDatabase) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	row := db.db.QueryRowContext(ctx, `SELECT `+sqliteItemColumns+` FROM posts WHERE id = ?`, id)
	it, err := scanSQLiteItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &it, nil
}

func (db *SQLiteDatabase) CreateItem(ctx context.Context, it *models.Item) error {
	now := time.Now().UTC().Truncate(time.Second)
	var id any
	if it.ID != 0 {
		id = it.ID
	}
	res, err := db.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, post_type, post_status, menu_order, post_parent, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, it.Title, it.PostType, it.PostStatus, it.MenuOrder, it.ParentID, now.Unix())
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && (se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE) {
			return fmt.Errorf("create item %d: %w", it.ID, ErrItemExists)
		}
		return fmt.Errorf("failed to create item: %w", err)
	}
	if it.ID == 0 {
		if it.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read item id: %w", err)
		}
	}
	it.UpdatedAt = now
	return nil
}

// sqliteScopeChunk keeps IN lists well under SQLite's bound-parameter limit.
const sqliteScopeChunk = 500

func (db *SQLiteDatabase) FilterInScope(ctx context.Context, postType, postStatus string, ids []int64) (map[int64]bool, error) {
	in := make(map[int64]bool, len(ids))
	for start := 0; start < len(ids); start += sqliteScopeChunk {
		end := start + sqliteScopeChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		args := make([]any, 0, len(chunk)+2)
		args = append(args, postType, postStatus)
		for _, id := range chunk {
			args = append(args, id)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		rows, err := db.db.QueryContext(ctx,
			`SELECT id FROM posts WHERE post_type = ? AND post_status = ? AND id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to check item scope: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan item id: %w", err)
			}
			in[id] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (db *SQLiteDatabase) ApplyOrder(ctx context.Context, assignments []models.OrderAssignment) models.ReorderReport {
	return applyEach(ctx, assignments, func(ctx context.Context, a models.OrderAssignment) error {
		now := time.Now().Unix()
		var (
			res sql.Result
			err error
		)
		if a.SetParent {
			res, err = db.db.ExecContext(ctx,
				`UPDATE posts SET menu_order = ?, post_parent = ?, updated_at = ? WHERE id = ?`,
				a.MenuOrder, a.ParentID, now, a.ID)
		} else {
			res, err = db.db.ExecContext(ctx,
				`UPDATE posts SET menu_order = ?, updated_at = ? WHERE id = ?`,
				a.MenuOrder, now, a.ID)
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

func (db *SQLiteDatabase) HealthCheck(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *SQLiteDatabase) Close() error {
	return db.db.Close()
}
