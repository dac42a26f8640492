package hooks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"hooktrap/internal/application/ports"
	"hooktrap/internal/domain/hook"
)

type Service struct {
	repo  ports.HookRepository
	now   func() time.Time
	newID func() string
}

func NewService(repo ports.HookRepository) *Service {
	return &Service{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Create provisions a new hook. The caller's request body is irrelevant:
// a hook is entirely server-generated state.
func (s *Service) Create(ctx context.Context) (*hook.Hook, error) {
	if s.repo == nil {
		return nil, errors.New("repo is nil")
	}
	h := hook.New(s.newID(), s.now())
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Get looks a hook up by id; the second return reports existence.
func (s *Service) Get(ctx context.Context, id string) (*hook.Hook, bool, error) {
	return s.repo.Get(ctx, id)
}

// List returns every provisioned hook, unfiltered and unpaginated.
func (s *Service) List(ctx context.Context) ([]*hook.Hook, error) {
	return s.repo.List(ctx)
}
