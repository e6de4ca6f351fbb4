package roles

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Role, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	if id <= 0 {
		return Role{}, mdshared.NotFound("role")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req Request) (Role, error) {
	role, err := normalize(req)
	if err != nil {
		return Role{}, err
	}
	return s.repo.Create(ctx, role)
}

func (s *Service) Update(ctx context.Context, id int64, req Request) (Role, error) {
	role, err := normalize(req)
	if err != nil {
		return Role{}, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return Role{}, err
	}
	return s.repo.Update(ctx, id, role)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountEmployees(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("role is assigned to %d employees: %w", n, shared.ErrInvalidOperation)
	}
	return s.repo.Delete(ctx, id)
}

func normalize(req Request) (Role, error) {
	role := Role{Name: mdshared.TitleName(req.Name), Description: mdshared.CleanText(req.Description)}
	if role.Name == "" {
		return Role{}, shared.NewValidationError("name", "is required")
	}
	return role, nil
}
