package expenses

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonpos/salonpos/internal/masterdata/categories"
	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Expense, int, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, id int64, e Expense) (Expense, error)
	Delete(ctx context.Context, id int64) error
	CategoryKind(ctx context.Context, categoryID int64) (categories.Kind, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const (
	columns = `e.id, e.category_id, c.name, e.expense_date, e.amount, e.description, COALESCE(e.created_by, 0), e.created_at, e.updated_at`
	from    = `expenses e JOIN categories c ON c.id = e.category_id`
)

func (r *repository) List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Expense, int, error) {
	q := mdshared.ListQuery{
		Select:       columns,
		From:         from,
		SearchFields: []string{"e.description", "c.name"},
		SortColumns:  map[string]string{"date": "e.expense_date", "amount": "e.amount", "category": "c.name"},
		DefaultSort:  "e.expense_date",
		IDColumn:     "e.id",
	}
	if !filter.From.IsZero() {
		q.Where("e.expense_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q.Where("e.expense_date < ?", filter.To)
	}
	if filter.CategoryID > 0 {
		q.Where("e.category_id = ?", filter.CategoryID)
	}
	countSQL, pageSQL, countArgs, pageArgs := q.Build(filters)

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	e, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM `+from+` WHERE e.id = $1`, id))
	return e, mdshared.MapError(err, "expense")
}

func (r *repository) Create(ctx context.Context, e Expense) (Expense, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO expenses (category_id, expense_date, amount, description, created_by)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.CategoryID, e.Date, e.Amount, e.Description, nullableID(e.CreatedBy)).Scan(&id)
	if err != nil {
		return Expense{}, mdshared.MapError(err, "expense")
	}
	return r.Get(ctx, id)
}

func (r *repository) Update(ctx context.Context, id int64, e Expense) (Expense, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE expenses SET category_id = $2, expense_date = $3, amount = $4, description = $5, updated_at = NOW()
		WHERE id = $1`, id, e.CategoryID, e.Date, e.Amount, e.Description)
	if err != nil {
		return Expense{}, mdshared.MapError(err, "expense")
	}
	if tag.RowsAffected() == 0 {
		return Expense{}, mdshared.NotFound("expense")
	}
	return r.Get(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return mdshared.MapError(err, "expense")
	}
	if tag.RowsAffected() == 0 {
		return mdshared.NotFound("expense")
	}
	return nil
}

func (r *repository) CategoryKind(ctx context.Context, categoryID int64) (categories.Kind, error) {
	var kind string
	err := r.pool.QueryRow(ctx, `SELECT kind FROM categories WHERE id = $1`, categoryID).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return categories.Kind(kind), err
}

func scan(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.CategoryID, &e.CategoryName, &e.Date, &e.Amount, &e.Description, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
