package models

import "strings"

// DefaultMaxLevels bounds how deep the editor may nest items.
const DefaultMaxLevels = 6

// ReorderTarget configures one reorder page.
type ReorderTarget struct {
	PostType   string `json:"post_type" mapstructure:"post_type"`
	Order      string `json:"order" mapstructure:"order"` // ASC or DESC
	Heading    string `json:"heading" mapstructure:"heading"`
	Initial    string `json:"initial,omitempty" mapstructure:"initial"`
	Final      string `json:"final,omitempty" mapstructure:"final"`
	PostStatus string `json:"post_status" mapstructure:"post_status"`
	MenuLabel  string `json:"menu_label" mapstructure:"menu_label"`
	Icon       string `json:"icon,omitempty" mapstructure:"icon"`
	MaxLevels  int    `json:"max_levels" mapstructure:"max_levels"`
}

// WithDefaults fills the fields left empty in configuration.
func (t ReorderTarget) WithDefaults() ReorderTarget {
	if t.PostType == "" {
		t.PostType = "post"
	}
	t.Order = strings.ToUpper(strings.TrimSpace(t.Order))
	if t.Order != "ASC" {
		t.Order = "DESC"
	}
	if t.Heading == "" {
		t.Heading = "Reorder"
	}
	if t.PostStatus == "" {
		t.PostStatus = StatusPublish
	}
	if t.MenuLabel == "" {
		t.MenuLabel = t.Heading
	}
	if t.MaxLevels <= 0 {
		t.MaxLevels = DefaultMaxLevels
	}
	return t
}

// MenuSlug is the admin page slug registered for the target.
func (t ReorderTarget) MenuSlug() string {
	if t.PostType == "post" {
		return "reorder-posts"
	}
	return "reorder-" + t.PostType
}

// ParentSlug is the admin menu the page is registered under.
func (t ReorderTarget) ParentSlug() string {
	if t.PostType == "post" {
		return "edit.php"
	}
	return "edit.php?post_type=" + t.PostType
}

// ListQuery returns the listing query the page renders.
func (t ReorderTarget) ListQuery() ListQuery {
	return ListQuery{
		PostType:   t.PostType,
		PostStatus: t.PostStatus,
		OrderBy:    OrderByMenuOrder,
		Direction:  t.Order,
	}.Normalized()
}

// MenuEntry is one registered admin page.
type MenuEntry struct {
	ParentSlug string `json:"parent_slug"`
	PageTitle  string `json:"page_title"`
	MenuTitle  string `json:"menu_title"`
	Capability string `json:"capability"`
	MenuSlug   string `json:"menu_slug"`
	URL        string `json:"url"`
}
