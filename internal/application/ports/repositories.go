package ports

import (
	"context"

	"hooktrap/internal/domain/capture"
	"hooktrap/internal/domain/hook"
)

// SortOrder selects the created_at ordering of a request listing.
type SortOrder string

const (
	SortOldestFirst SortOrder = "old"
	SortNewestFirst SortOrder = "new"
)

// OrderFromQuery maps the sort query parameter to a SortOrder. Only the
// literal "old" selects ascending order; anything else, including an absent
// parameter, lists most recent first.
func OrderFromQuery(v string) SortOrder {
	if v == string(SortOldestFirst) {
		return SortOldestFirst
	}
	return SortNewestFirst
}

type HookRepository interface {
	Create(ctx context.Context, h *hook.Hook) error
	Get(ctx context.Context, id string) (*hook.Hook, bool, error)
	List(ctx context.Context) ([]*hook.Hook, error)
}

type RequestRepository interface {
	Create(ctx context.Context, r *capture.Request) error
	Get(ctx context.Context, id string) (*capture.Request, bool, error)
	// ListByHook returns the list-view projection of every capture against
	// the hook, ordered by created_at (id as tie-break so the ordering is
	// total). A hook with no captures yields an empty slice, not an error.
	ListByHook(ctx context.Context, hookID string, order SortOrder) ([]capture.Summary, error)
}
