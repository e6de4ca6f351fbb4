package items

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
	List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id int64, item Item) (Item, error)
	Delete(ctx context.Context, id int64) error
	CountRecords(ctx context.Context, id int64) (int, error)
	CategoryKind(ctx context.Context, categoryID int64) (categories.Kind, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const (
	columns = `i.id, i.name, i.category_id, c.name, i.unit_price, i.is_service, i.stock, i.average_cost, i.created_at, i.updated_at`
	from    = `items i JOIN categories c ON c.id = i.category_id`
)

func (r *repository) List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Item, int, error) {
	q := mdshared.ListQuery{
		Select:       columns,
		From:         from,
		SearchFields: []string{"i.name", "c.name"},
		SortColumns:  map[string]string{"name": "i.name", "price": "i.unit_price", "stock": "i.stock", "category": "c.name"},
		DefaultSort:  "i.name",
		IDColumn:     "i.id",
	}
	if filter.CategoryID > 0 {
		q.Where("i.category_id = ?", filter.CategoryID)
	}
	if filter.IsService != nil {
		q.Where("i.is_service = ?", *filter.IsService)
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
	var out []Item
	for rows.Next() {
		it, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Item, error) {
	it, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM `+from+` WHERE i.id = $1`, id))
	return it, mdshared.MapError(err, "item")
}

func (r *repository) Create(ctx context.Context, it Item) (Item, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO items (name, category_id, unit_price, is_service)
		VALUES ($1, $2, $3, $4) RETURNING id`, it.Name, it.CategoryID, it.UnitPrice, it.IsService).Scan(&id)
	if err != nil {
		return Item{}, mdshared.MapError(err, "item")
	}
	return r.Get(ctx, id)
}

// Update writes the catalogue fields only; stock and average_cost are left to the inventory engine.
func (r *repository) Update(ctx context.Context, id int64, it Item) (Item, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET name = $2, category_id = $3, unit_price = $4, is_service = $5, updated_at = NOW()
		WHERE id = $1`, id, it.Name, it.CategoryID, it.UnitPrice, it.IsService)
	if err != nil {
		return Item{}, mdshared.MapError(err, "item")
	}
	if tag.RowsAffected() == 0 {
		return Item{}, mdshared.NotFound("item")
	}
	return r.Get(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return mdshared.MapError(err, "item")
	}
	if tag.RowsAffected() == 0 {
		return mdshared.NotFound("item")
	}
	return nil
}

func (r *repository) CountRecords(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM inventory_records WHERE item_id = $1) +
		(SELECT COUNT(*) FROM sale_lines WHERE item_id = $1)`, id).Scan(&n)
	return n, err
}

func (r *repository) CategoryKind(ctx context.Context, categoryID int64) (categories.Kind, error) {
	var kind string
	err := r.pool.QueryRow(ctx, `SELECT kind FROM categories WHERE id = $1`, categoryID).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return categories.Kind(kind), err
}

func scan(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.CategoryID, &it.CategoryName, &it.UnitPrice, &it.IsService,
		&it.Stock, &it.AverageCost, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}
