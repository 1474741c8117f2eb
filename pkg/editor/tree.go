// Package editor is the client side of reordering: a nested list model that
// mirrors the admin page, a client for the listing and post_sort endpoints,
// and a terminal front end built on both.
package editor

import (
	"encoding/json"
	"strconv"
	"strings"

	"post-reorder-backend/pkg/models"
)

// Node is one list entry and the entries nested under it.
type Node struct {
	Item     models.Item
	Children []*Node
	parent   *Node
	// keepParent: listed at the top level while the stored parent lies
	// outside the tree. Cleared once the node is indented or outdented.
	keepParent bool
}

// KeepsParent reports whether the node sits at the top level only because
// its stored parent is not part of the listing.
func (n *Node) KeepsParent() bool {
	return n.keepParent
}

// Tree is the editable order. Roots keep the listing order.
type Tree struct {
	Roots     []*Node
	MaxLevels int
	index     map[int64]*Node
}

// NewTree nests items under their ParentID when the parent is part of the
// listing. Items whose parent is missing, part of a cycle, or would sit
// deeper than maxLevels are placed at the top level and keep their stored
// parent on submission.
func NewTree(items []models.Item, maxLevels int) *Tree {
	if maxLevels <= 0 {
		maxLevels = models.DefaultMaxLevels
	}
	t := &Tree{MaxLevels: maxLevels, index: make(map[int64]*Node, len(items))}
	for _, it := range items {
		if _, dup := t.index[it.ID]; dup {
			continue
		}
		t.index[it.ID] = &Node{Item: it}
	}

	parentOf := func(n *Node) *Node {
		if n.Item.ParentID == 0 || n.Item.ParentID == n.Item.ID {
			return nil
		}
		return t.index[n.Item.ParentID]
	}
	// depth walks the parent chain; 0 means the chain loops.
	depth := func(n *Node) int {
		seen := map[int64]bool{}
		d := 0
		for cur := n; cur != nil; cur = parentOf(cur) {
			if seen[cur.Item.ID] {
				return 0
			}
			seen[cur.Item.ID] = true
			d++
		}
		return d
	}

	placed := make(map[int64]bool, len(t.index))
	for _, it := range items {
		n := t.index[it.ID]
		if placed[it.ID] {
			continue
		}
		placed[it.ID] = true
		p := parentOf(n)
		if d := depth(n); p == nil || d == 0 || d > maxLevels {
			n.keepParent = n.Item.ParentID != 0
			t.Roots = append(t.Roots, n)
			continue
		}
		n.parent = p
		p.Children = append(p.Children, n)
	}
	return t
}

// Len counts every node in the tree.
func (t *Tree) Len() int {
	n := 0
	t.walk(func(*Node, int) { n++ })
	return n
}

// Node returns the node for id.
func (t *Tree) Node(id int64) (*Node, bool) {
	n, ok := t.index[id]
	return n, ok
}

// Depth is the 1-based nesting level of id, 0 when absent.
func (t *Tree) Depth(id int64) int {
	n, ok := t.index[id]
	if !ok {
		return 0
	}
	d := 1
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

func (t *Tree) walk(visit func(*Node, int)) {
	var rec func([]*Node, int)
	rec = func(nodes []*Node, level int) {
		for _, n := range nodes {
			visit(n, level)
			rec(n.Children, level+1)
		}
	}
	rec(t.Roots, 1)
}

func (t *Tree) siblings(n *Node) *[]*Node {
	if n.parent == nil {
		return &t.Roots
	}
	return &n.parent.Children
}

func indexOf(nodes []*Node, n *Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}

func (t *Tree) detach(n *Node) {
	list := t.siblings(n)
	if i := indexOf(*list, n); i >= 0 {
		*list = append((*list)[:i], (*list)[i+1:]...)
	}
}

func height(n *Node) int {
	h := 1
	for _, c := range n.Children {
		if ch := 1 + height(c); ch > h {
			h = ch
		}
	}
	return h
}

// MoveUp swaps id with its previous sibling.
func (t *Tree) MoveUp(id int64) bool {
	n, ok := t.index[id]
	if !ok {
		return false
	}
	list := *t.siblings(n)
	i := indexOf(list, n)
	if i <= 0 {
		return false
	}
	list[i-1], list[i] = list[i], list[i-1]
	return true
}

// MoveDown swaps id with its next sibling.
func (t *Tree) MoveDown(id int64) bool {
	n, ok := t.index[id]
	if !ok {
		return false
	}
	list := *t.siblings(n)
	i := indexOf(list, n)
	if i < 0 || i == len(list)-1 {
		return false
	}
	list[i], list[i+1] = list[i+1], list[i]
	return true
}

// Indent makes id the last child of its previous sibling, unless the moved
// subtree would then exceed MaxLevels.
func (t *Tree) Indent(id int64) bool {
	n, ok := t.index[id]
	if !ok {
		return false
	}
	list := *t.siblings(n)
	i := indexOf(list, n)
	if i <= 0 {
		return false
	}
	prev := list[i-1]
	if t.Depth(prev.Item.ID)+height(n) > t.MaxLevels {
		return false
	}
	t.detach(n)
	n.parent = prev
	n.keepParent = false
	prev.Children = append(prev.Children, n)
	return true
}

// Outdent moves id out of its parent, directly after it.
func (t *Tree) Outdent(id int64) bool {
	n, ok := t.index[id]
	if !ok || n.parent == nil {
		return false
	}
	parent := n.parent
	t.detach(n)
	n.parent = parent.parent
	n.keepParent = false
	list := t.siblings(parent)
	i := indexOf(*list, parent)
	*list = append(*list, nil)
	copy((*list)[i+2:], (*list)[i+1:])
	(*list)[i+1] = n
	return true
}

// Flat returns the ids in display order, depth first.
func (t *Tree) Flat() []int64 {
	ids := make([]int64, 0, len(t.index))
	t.walk(func(n *Node, _ int) { ids = append(ids, n.Item.ID) })
	return ids
}

// Row is one visible line of the list.
type Row struct {
	Node  *Node
	Depth int
}

// Rows returns the list as display lines with their nesting depth.
func (t *Tree) Rows() []Row {
	rows := make([]Row, 0, len(t.index))
	t.walk(func(n *Node, level int) { rows = append(rows, Row{Node: n, Depth: level}) })
	return rows
}

// Hierarchy returns the nested order in submission form.
func (t *Tree) Hierarchy() []models.OrderNode {
	var rec func([]*Node) []models.OrderNode
	rec = func(nodes []*Node) []models.OrderNode {
		out := make([]models.OrderNode, 0, len(nodes))
		for _, n := range nodes {
			node := models.OrderNode{ID: n.Item.ID, KeepParent: n.parent == nil && n.keepParent}
			if len(n.Children) > 0 {
				node.Children = rec(n.Children)
			}
			out = append(out, node)
		}
		return out
	}
	return rec(t.Roots)
}

// Encode serializes the order parameter: the JSON hierarchy when nested,
// otherwise a comma-separated id list. An empty tree encodes as "".
func (t *Tree) Encode(nested bool) (string, error) {
	if len(t.Roots) == 0 {
		return "", nil
	}
	if nested {
		b, err := json.Marshal(t.Hierarchy())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	ids := t.Flat()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ","), nil
}
