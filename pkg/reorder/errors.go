package reorder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidToken means the nonce did not authorize the request; nothing was written.
	ErrInvalidToken = errors.New("invalid or missing security token")
	// ErrMalformedOrder means the order parameter could not be parsed; nothing was written.
	ErrMalformedOrder = errors.New("malformed order")
	// ErrUnknownTarget means no reorder page is configured for the post type.
	ErrUnknownTarget = errors.New("unknown reorder target")
	// ErrPartialWrite accompanies a report where only some items were written.
	ErrPartialWrite = errors.New("order partially written")
	// ErrNothingWritten accompanies a report where no item could be written.
	ErrNothingWritten = errors.New("order not written")
)

// OutOfScopeError lists submitted ids outside the target's post type and status.
type OutOfScopeError struct {
	PostType   string
	PostStatus string
	IDs        []int64
}

func (e *OutOfScopeError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("items %s are not %s %s items", strings.Join(ids, ","), e.PostStatus, e.PostType)
}
