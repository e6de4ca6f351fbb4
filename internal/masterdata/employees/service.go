package employees

import (
	"context"
	"strings"

	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

type Service struct {
	repo  Repository
	phone mdshared.PhoneNormalizer
}

func NewService(repo Repository, phone mdshared.PhoneNormalizer) *Service {
	return &Service{repo: repo, phone: phone}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Employee, int, error) {
	return s.repo.List(ctx, filters, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	if id <= 0 {
		return Employee{}, mdshared.NotFound("employee")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req Request) (Employee, error) {
	e, err := s.normalize(ctx, req, true)
	if err != nil {
		return Employee{}, err
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Update(ctx context.Context, id int64, req Request) (Employee, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	e, err := s.normalize(ctx, req, current.IsActive)
	if err != nil {
		return Employee{}, err
	}
	return s.repo.Update(ctx, id, e)
}

// Delete removes an employee. Employees with sale lines are kept for
// commission history; the repository reports that as an invalid operation.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) normalize(ctx context.Context, req Request, active bool) (Employee, error) {
	e := Employee{
		Name:     mdshared.CleanText(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		RoleID:   req.RoleID,
		IsActive: active,
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}
	if e.Name == "" {
		return Employee{}, shared.NewValidationError("name", "is required")
	}
	phone, err := s.phone.Normalize("phone", req.Phone)
	if err != nil {
		return Employee{}, err
	}
	e.Phone = phone
	ok, err := s.repo.RoleExists(ctx, req.RoleID)
	if err != nil {
		return Employee{}, err
	}
	if !ok {
		return Employee{}, shared.NewValidationError("role_id", "must reference an existing role")
	}
	return e, nil
}
