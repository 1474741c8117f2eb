// Package reorder turns a drag-and-drop order submission into menu_order
// writes: parse, validate, number, persist.
package reorder

import (
	"encoding/json"
	"fmt"
	"strings"

	"post-reorder-backend/pkg/models"
)

// Submission is a parsed order. Nested is true when the client sent the
// object hierarchy, in which case list nesting also defines each parent.
type Submission struct {
	Nodes  []models.OrderNode
	Nested bool
}

// Len counts every submitted item, including nested ones.
func (s Submission) Len() int {
	return countNodes(s.Nodes)
}

func countNodes(nodes []models.OrderNode) int {
	n := 0
	for _, node := range nodes {
		n += 1 + countNodes(node.Children)
	}
	return n
}

// IDs returns the submitted ids in depth-first order.
func (s Submission) IDs() []int64 {
	ids := make([]int64, 0, s.Len())
	walk(s.Nodes, 0, func(node models.OrderNode, _ int64) {
		ids = append(ids, node.ID)
	})
	return ids
}

// Assignments numbers the submission: the item at position i of N gets
// menu_order N-i. Hierarchical submissions also carry each item's parent,
// except for top-level entries flagged KeepParent.
func (s Submission) Assignments() []models.OrderAssignment {
	n := s.Len()
	out := make([]models.OrderAssignment, 0, n)
	walk(s.Nodes, 0, func(node models.OrderNode, parent int64) {
		setParent := s.Nested
		if parent == 0 && node.KeepParent {
			setParent = false
		}
		out = append(out, models.OrderAssignment{
			ID:        node.ID,
			MenuOrder: n - len(out),
			ParentID:  parent,
			SetParent: setParent,
		})
	})
	return out
}

func walk(nodes []models.OrderNode, parent int64, visit func(models.OrderNode, int64)) {
	for _, node := range nodes {
		visit(node, parent)
		walk(node.Children, node.ID, visit)
	}
}

// ParseSubmission decodes the order parameter. It accepts a comma-separated
// list ("42,17,9"), a JSON array of ids, or the JSON hierarchy the editor
// sends ([{"id":"42","children":[...]}]). A blank value is an empty submission.
func ParseSubmission(raw string, maxLevels int) (Submission, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Submission{}, nil
	}
	if maxLevels <= 0 {
		maxLevels = models.DefaultMaxLevels
	}

	var (
		sub Submission
		err error
	)
	if strings.HasPrefix(raw, "[") {
		sub, err = parseJSON(raw)
	} else {
		sub, err = parseCSV(raw)
	}
	if err != nil {
		return Submission{}, err
	}

	if depth := maxDepth(sub.Nodes); depth > maxLevels {
		return Submission{}, fmt.Errorf("%w: nesting depth %d exceeds %d levels", ErrMalformedOrder, depth, maxLevels)
	}
	seen := make(map[int64]bool, sub.Len())
	for _, id := range sub.IDs() {
		if seen[id] {
			return Submission{}, fmt.Errorf("%w: item %d appears more than once", ErrMalformedOrder, id)
		}
		seen[id] = true
	}
	return sub, nil
}

func parseCSV(raw string) (Submission, error) {
	parts := strings.Split(raw, ",")
	nodes := make([]models.OrderNode, 0, len(parts))
	for i, part := range parts {
		id, err := models.ParseItemID(part)
		if err != nil {
			return Submission{}, fmt.Errorf("%w: position %d: %v", ErrMalformedOrder, i, err)
		}
		nodes = append(nodes, models.OrderNode{ID: id})
	}
	return Submission{Nodes: nodes}, nil
}

func parseJSON(raw string) (Submission, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return Submission{}, fmt.Errorf("%w: %v", ErrMalformedOrder, err)
	}
	sub := Submission{Nodes: make([]models.OrderNode, 0, len(elems))}
	for i, elem := range elems {
		trimmed := strings.TrimSpace(string(elem))
		if strings.HasPrefix(trimmed, "{") {
			var node models.OrderNode
			if err := json.Unmarshal(elem, &node); err != nil {
				return Submission{}, fmt.Errorf("%w: position %d: %v", ErrMalformedOrder, i, err)
			}
			sub.Nested = true
			sub.Nodes = append(sub.Nodes, node)
			continue
		}
		id, err := models.ParseItemID(trimmed)
		if err != nil {
			return Submission{}, fmt.Errorf("%w: position %d: %v", ErrMalformedOrder, i, err)
		}
		sub.Nodes = append(sub.Nodes, models.OrderNode{ID: id})
	}
	return sub, nil
}

func maxDepth(nodes []models.OrderNode) int {
	deepest := 0
	for _, node := range nodes {
		if d := 1 + maxDepth(node.Children); d > deepest {
			deepest = d
		}
	}
	return deepest
}
