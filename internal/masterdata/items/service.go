package items

import (
	"context"
	"fmt"
	"strings"

	"github.com/salonpos/salonpos/internal/masterdata/categories"
	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

// ErrServiceWithHistory blocks turning a stocked product into a service.
var ErrServiceWithHistory = fmt.Errorf("item has inventory or sales history and cannot become a service: %w", shared.ErrInvalidOperation)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Item, int, error) {
	return s.repo.List(ctx, filters, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, mdshared.NotFound("item")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req Request) (Item, error) {
	it, err := s.validate(ctx, req)
	if err != nil {
		return Item{}, err
	}
	return s.repo.Create(ctx, it)
}

func (s *Service) Update(ctx context.Context, id int64, req Request) (Item, error) {
	it, err := s.validate(ctx, req)
	if err != nil {
		return Item{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if it.IsService && !current.IsService {
		n, err := s.repo.CountRecords(ctx, id)
		if err != nil {
			return Item{}, err
		}
		if n > 0 || current.Stock > 0 {
			return Item{}, ErrServiceWithHistory
		}
	}
	return s.repo.Update(ctx, id, it)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountRecords(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("item is referenced by %d inventory records or sale lines: %w", n, shared.ErrInvalidOperation)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(ctx context.Context, req Request) (Item, error) {
	verr := &shared.ValidationError{Fields: map[string]string{}}
	it := Item{
		Name:       mdshared.CleanText(req.Name),
		CategoryID: req.CategoryID,
		UnitPrice:  req.UnitPrice.Round(2),
		IsService:  req.IsService,
	}
	if strings.TrimSpace(it.Name) == "" {
		verr.Fields["name"] = "is required"
	}
	if it.UnitPrice.IsNegative() {
		verr.Fields["unit_price"] = "must be >= 0"
	}
	if it.CategoryID <= 0 {
		verr.Fields["category_id"] = "is required"
	} else {
		kind, err := s.repo.CategoryKind(ctx, it.CategoryID)
		if err != nil {
			return Item{}, err
		}
		if kind != categories.KindItem {
			verr.Fields["category_id"] = "must reference an existing ITEM category"
		}
	}
	if len(verr.Fields) > 0 {
		return Item{}, verr
	}
	return it, nil
}
