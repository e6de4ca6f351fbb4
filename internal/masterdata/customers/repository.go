package customers

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id int64, c Customer) (Customer, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, phone, email, notes, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	q := mdshared.ListQuery{
		Select:       columns,
		From:         "customers",
		SearchFields: []string{"name", "phone", "email"},
		SortColumns:  map[string]string{"name": "name", "created": "created_at"},
		DefaultSort:  "name",
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
	var out []Customer
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE id = $1`, id))
	return c, mdshared.MapError(err, "customer")
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	created, err := scan(r.pool.QueryRow(ctx, `INSERT INTO customers (name, phone, email, notes)
		VALUES ($1, $2, $3, $4) RETURNING `+columns, c.Name, c.Phone, c.Email, c.Notes))
	return created, mdshared.MapError(err, "customer")
}

func (r *repository) Update(ctx context.Context, id int64, c Customer) (Customer, error) {
	updated, err := scan(r.pool.QueryRow(ctx, `UPDATE customers SET name = $2, phone = $3, email = $4, notes = $5,
		updated_at = NOW() WHERE id = $1 RETURNING `+columns, id, c.Name, c.Phone, c.Email, c.Notes))
	return updated, mdshared.MapError(err, "customer")
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return mdshared.MapError(err, "customer")
	}
	if tag.RowsAffected() == 0 {
		return mdshared.NotFound("customer")
	}
	return nil
}

func scan(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
