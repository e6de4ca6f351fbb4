package categories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters, kind Kind) ([]Category, int, error)
	Get(ctx context.Context, id int64) (Category, error)
	Create(ctx context.Context, category Category) (Category, error)
	Update(ctx context.Context, id int64, category Category) (Category, error)
	Delete(ctx context.Context, id int64) error
	References(ctx context.Context, id int64) (References, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, kind, commission_rate, salon_owner_rate, tracks_stock, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters, kind Kind) ([]Category, int, error) {
	q := mdshared.ListQuery{
		Select:       columns,
		From:         "categories",
		SearchFields: []string{"name"},
		SortColumns:  map[string]string{"name": "name", "kind": "kind", "created": "created_at"},
		DefaultSort:  "name",
	}
	if kind != "" {
		q.Where("kind = ?", string(kind))
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

	var out []Category
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	c, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM categories WHERE id = $1`, id))
	return c, mdshared.MapError(err, "category")
}

func (r *repository) Create(ctx context.Context, c Category) (Category, error) {
	created, err := scan(r.pool.QueryRow(ctx, `INSERT INTO categories (name, kind, commission_rate, salon_owner_rate, tracks_stock)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+columns,
		c.Name, string(c.Kind), c.CommissionRate, c.SalonOwnerRate, c.TracksStock))
	return created, mdshared.MapError(err, "category")
}

func (r *repository) Update(ctx context.Context, id int64, c Category) (Category, error) {
	updated, err := scan(r.pool.QueryRow(ctx, `UPDATE categories SET name = $2, kind = $3, commission_rate = $4,
		salon_owner_rate = $5, tracks_stock = $6, updated_at = NOW() WHERE id = $1 RETURNING `+columns,
		id, c.Name, string(c.Kind), c.CommissionRate, c.SalonOwnerRate, c.TracksStock))
	return updated, mdshared.MapError(err, "category")
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mdshared.MapError(err, "category")
	}
	if tag.RowsAffected() == 0 {
		return mdshared.NotFound("category")
	}
	return nil
}

func (r *repository) References(ctx context.Context, id int64) (References, error) {
	var refs References
	err := r.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM items WHERE category_id = $1),
		(SELECT COUNT(*) FROM expenses WHERE category_id = $1)`, id).Scan(&refs.Items, &refs.Expenses)
	return refs, err
}

func scan(row pgx.Row) (Category, error) {
	var (
		c    Category
		kind string
	)
	if err := row.Scan(&c.ID, &c.Name, &kind, &c.CommissionRate, &c.SalonOwnerRate, &c.TracksStock, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Category{}, err
	}
	c.Kind = Kind(kind)
	return c, nil
}
