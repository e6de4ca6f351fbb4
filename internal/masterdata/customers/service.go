package customers

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, mdshared.NotFound("customer")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req Request) (Customer, error) {
	c, err := s.normalize(req)
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, id int64, req Request) (Customer, error) {
	c, err := s.normalize(req)
	if err != nil {
		return Customer{}, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return Customer{}, err
	}
	return s.repo.Update(ctx, id, c)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) normalize(req Request) (Customer, error) {
	c := Customer{
		Name:  mdshared.CleanText(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Notes: strings.TrimSpace(req.Notes),
	}
	if c.Name == "" {
		return Customer{}, shared.NewValidationError("name", "is required")
	}
	phone, err := s.phone.Normalize("phone", req.Phone)
	if err != nil {
		return Customer{}, err
	}
	c.Phone = phone
	return c, nil
}
