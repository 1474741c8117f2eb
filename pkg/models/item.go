package models

import "time"

// Item is a reorderable post. MenuOrder drives the default display position.
type Item struct {
	ID         int64     `json:"id" db:"id" yaml:"id"`
	Title      string    `json:"title" db:"title" yaml:"title"`
	PostType   string    `json:"post_type" db:"post_type" yaml:"post_type"`
	PostStatus string    `json:"post_status" db:"post_status" yaml:"post_status"`
	MenuOrder  int       `json:"menu_order" db:"menu_order" yaml:"menu_order"`
	ParentID   int64     `json:"parent_id" db:"post_parent" yaml:"parent_id"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at" yaml:"-"`
}

// Post statuses used by the default reorder targets.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
	StatusPending = "pending"
	StatusPrivate = "private"
)

// Sortable listing fields.
const (
	OrderByMenuOrder = "menu_order"
	OrderByTitle     = "title"
	OrderByID        = "id"
)

// ListQuery selects one post_type+post_status partition and its sort order.
type ListQuery struct {
	PostType   string
	PostStatus string
	OrderBy    string // menu_order, title or id
	Direction  string // ASC or DESC
}

// Normalized fills defaults and upper-cases the direction.
func (q ListQuery) Normalized() ListQuery {
	if q.PostType == "" {
		q.PostType = "post"
	}
	if q.PostStatus == "" {
		q.PostStatus = StatusPublish
	}
	switch q.OrderBy {
	case OrderByMenuOrder, OrderByTitle, OrderByID:
	default:
		q.OrderBy = OrderByMenuOrder
	}
	if q.Direction != "ASC" && q.Direction != "asc" {
		q.Direction = "DESC"
	} else {
		q.Direction = "ASC"
	}
	return q
}
