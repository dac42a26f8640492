package captures

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hooktrap/internal/application/ports"
	"hooktrap/internal/domain/capture"
)

// ErrHookNotFound reports a capture against an id no hook was ever
// provisioned under. Nothing is persisted in that case.
var ErrHookNotFound = errors.New("webhook not found")

type Service struct {
	hooks    ports.HookRepository
	requests ports.RequestRepository
	now      func() time.Time
	newID    func() string
}

func NewService(hooks ports.HookRepository, requests ports.RequestRepository) *Service {
	return &Service{
		hooks:    hooks,
		requests: requests,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Params carries one inbound delivery, already lifted out of the transport.
// Body is the raw payload; ClientIP is whatever the trusted proxy header
// held, empty when absent.
type Params struct {
	HookID      string
	Method      string
	ContentType string
	Headers     map[string]string
	Query       map[string]string
	Body        []byte
	ClientIP    string
}

// Capture normalizes and persists one inbound delivery.
//
// The hook-existence check and the insert are two separate statements; that
// is safe only because hooks are immutable once created. The active flag is
// deliberately not consulted — captures land against deactivated hooks too.
func (s *Service) Capture(ctx context.Context, p Params) (*capture.Request, error) {
	_, ok, err := s.hooks.Get(ctx, p.HookID)
	if err != nil {
		return nil, fmt.Errorf("look up hook %q: %w", p.HookID, err)
	}
	if !ok {
		return nil, ErrHookNotFound
	}

	body, err := capture.NormalizeBody(p.Method, p.ContentType, p.Body)
	if err != nil {
		return nil, err
	}
	headers, err := capture.SnapshotHeaders(p.Headers, p.Query)
	if err != nil {
		return nil, err
	}

	r := capture.New(s.newID(), p.HookID, body, headers, p.ClientIP, p.Method, s.now())
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("persist capture: %w", err)
	}
	return r, nil
}

// ListForHook returns the list-view rows for a hook. No existence check is
// made on the hook itself: an unknown or empty hook lists as zero rows.
func (s *Service) ListForHook(ctx context.Context, hookID string, order ports.SortOrder) ([]capture.Summary, error) {
	return s.requests.ListByHook(ctx, hookID, order)
}

// Get fetches one captured request by id; the second return reports existence.
func (s *Service) Get(ctx context.Context, id string) (*capture.Request, bool, error) {
	return s.requests.Get(ctx, id)
}
