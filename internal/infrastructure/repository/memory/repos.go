package memory

import (
	"context"
	"sort"
	"sync"

	"hooktrap/internal/application/ports"
	"hooktrap/internal/domain/capture"
	"hooktrap/internal/domain/hook"
)

// HooksRepo is an in-memory hook store. Rows are cloned on the way in and
// out so callers can never mutate shared state.
type HooksRepo struct {
	mu    sync.RWMutex
	hooks map[string]*hook.Hook
}

func NewHooksRepo() *HooksRepo {
	return &HooksRepo{hooks: map[string]*hook.Hook{}}
}

func (r *HooksRepo) Create(_ context.Context, h *hook.Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[h.ID] = cloneHook(h)
	return nil
}

func (r *HooksRepo) Get(_ context.Context, id string) (*hook.Hook, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[id]
	if !ok {
		return nil, false, nil
	}
	return cloneHook(h), true, nil
}

func (r *HooksRepo) List(_ context.Context) ([]*hook.Hook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*hook.Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		out = append(out, cloneHook(h))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RequestsRepo is an in-memory captured-request store.
type RequestsRepo struct {
	mu       sync.RWMutex
	requests map[string]*capture.Request
}

func NewRequestsRepo() *RequestsRepo {
	return &RequestsRepo{requests: map[string]*capture.Request{}}
}

func (r *RequestsRepo) Create(_ context.Context, req *capture.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *req
	r.requests[req.ID] = &c
	return nil
}

func (r *RequestsRepo) Get(_ context.Context, id string) (*capture.Request, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, false, nil
	}
	c := *req
	return &c, true, nil
}

func (r *RequestsRepo) ListByHook(_ context.Context, hookID string, order ports.SortOrder) ([]capture.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]capture.Summary, 0)
	for _, req := range r.requests {
		if req.HookID != hookID {
			continue
		}
		out = append(out, capture.Summary{
			IP:        req.IP,
			Method:    req.Method,
			ID:        req.ID,
			CreatedAt: req.CreatedAt,
		})
	}
	asc := order == ports.SortOldestFirst
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			if asc {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		if asc {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func cloneHook(h *hook.Hook) *hook.Hook {
	if h == nil {
		return nil
	}
	c := *h
	c.Owner = cloneStr(h.Owner)
	c.Description = cloneStr(h.Description)
	c.CustomJS = cloneStr(h.CustomJS)
	c.Salt = cloneStr(h.Salt)
	return &c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
