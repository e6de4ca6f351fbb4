package categories

import (
	"context"
	"fmt"

	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters, kind Kind) ([]Category, int, error) {
	return s.repo.List(ctx, filters, kind)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, mdshared.NotFound("category")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req Request) (Category, error) {
	c, err := normalize(req)
	if err != nil {
		return Category{}, err
	}
	return s.repo.Create(ctx, c)
}

// Update rewrites a category. Rates only affect sales recorded afterwards:
// sale lines keep the rates snapshotted when they were created.
func (s *Service) Update(ctx context.Context, id int64, req Request) (Category, error) {
	c, err := normalize(req)
	if err != nil {
		return Category{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Category{}, err
	}
	if current.Kind != c.Kind {
		refs, err := s.repo.References(ctx, id)
		if err != nil {
			return Category{}, err
		}
		if refs.Items > 0 || refs.Expenses > 0 {
			return Category{}, fmt.Errorf("category kind cannot change while it is in use: %w", shared.ErrInvalidOperation)
		}
	}
	return s.repo.Update(ctx, id, c)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.References(ctx, id)
	if err != nil {
		return err
	}
	if refs.Items > 0 || refs.Expenses > 0 {
		return fmt.Errorf("category is used by %d items and %d expenses: %w", refs.Items, refs.Expenses, shared.ErrInvalidOperation)
	}
	return s.repo.Delete(ctx, id)
}
