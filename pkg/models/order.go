package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// OrderNode is one entry of a submitted (possibly nested) order.
// KeepParent marks a top-level entry whose stored parent lies outside the
// listing and was not changed in the editor; its post_parent is left as is.
type OrderNode struct {
	ID         int64       `json:"id"`
	Children   []OrderNode `json:"children,omitempty"`
	KeepParent bool        `json:"keep_parent,omitempty"`
}

// UnmarshalJSON accepts the id as a JSON number or a numeric string;
// the browser hierarchy sends strings.
func (n *OrderNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         json.RawMessage `json:"id"`
		Children   []OrderNode     `json:"children"`
		KeepParent bool            `json:"keep_parent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := ParseItemID(string(raw.ID))
	if err != nil {
		return err
	}
	n.ID = id
	n.Children = raw.Children
	n.KeepParent = raw.KeepParent
	return nil
}

// ParseItemID parses a positive item id, optionally wrapped in JSON double
// quotes. Only plain decimal digits are accepted.
func ParseItemID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return 0, fmt.Errorf("empty item id")
	}
	if strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("item id must be positive, got %d", id)
	}
	return id, nil
}

// OrderAssignment is the write produced for a single submitted item.
type OrderAssignment struct {
	ID        int64 `json:"id"`
	MenuOrder int   `json:"menu_order"`
	ParentID  int64 `json:"parent_id,omitempty"`
	SetParent bool  `json:"-"`
}

// ReorderOutcome tells how much of a submission reached storage.
type ReorderOutcome string

const (
	OutcomeFull    ReorderOutcome = "full"
	OutcomePartial ReorderOutcome = "partial"
	OutcomeNone    ReorderOutcome = "none"
)

// WriteFailure records one assignment the store could not apply.
type WriteFailure struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// ReorderReport summarizes a persisted submission.
type ReorderReport struct {
	Outcome   ReorderOutcome `json:"outcome"`
	Submitted int            `json:"submitted"`
	Written   int            `json:"written"`
	Failures  []WriteFailure `json:"failures,omitempty"`
}

// NewReorderReport derives the outcome from the written count.
func NewReorderReport(submitted, written int, failures []WriteFailure) ReorderReport {
	r := ReorderReport{Submitted: submitted, Written: written, Failures: failures}
	switch {
	case written == submitted:
		r.Outcome = OutcomeFull
	case written == 0:
		r.Outcome = OutcomeNone
	default:
		r.Outcome = OutcomePartial
	}
	return r
}
