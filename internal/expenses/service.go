package expenses

import (
	"context"
	"log/slog"
	"time"

	"github.com/salonpos/salonpos/internal/masterdata/categories"
	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

// CacheInvalidator drops cached report results after a write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

type Service struct {
	repo   Repository
	cache  CacheInvalidator
	logger *slog.Logger
}

func NewService(repo Repository, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Expense, int, error) {
	return s.repo.List(ctx, filters, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	if id <= 0 {
		return Expense{}, mdshared.NotFound("expense")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req Request) (Expense, error) {
	e, err := s.validate(ctx, req)
	if err != nil {
		return Expense{}, err
	}
	e.CreatedBy = shared.ActorID(ctx)
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	s.bump(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, req Request) (Expense, error) {
	e, err := s.validate(ctx, req)
	if err != nil {
		return Expense{}, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return Expense{}, err
	}
	updated, err := s.repo.Update(ctx, id, e)
	if err != nil {
		return Expense{}, err
	}
	s.bump(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) validate(ctx context.Context, req Request) (Expense, error) {
	verr := &shared.ValidationError{Fields: map[string]string{}}
	e := Expense{
		CategoryID:  req.CategoryID,
		Amount:      req.Amount.Round(2),
		Description: mdshared.CleanText(req.Description),
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		verr.Fields["date"] = "must be YYYY-MM-DD"
	}
	e.Date = date
	if !e.Amount.IsPositive() {
		verr.Fields["amount"] = "must be > 0"
	}
	if e.CategoryID <= 0 {
		verr.Fields["category_id"] = "is required"
	} else {
		kind, err := s.repo.CategoryKind(ctx, e.CategoryID)
		if err != nil {
			return Expense{}, err
		}
		if kind != categories.KindExpense {
			verr.Fields["category_id"] = "must reference an existing EXPENSE category"
		}
	}
	if len(verr.Fields) > 0 {
		return Expense{}, verr
	}
	return e, nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}
