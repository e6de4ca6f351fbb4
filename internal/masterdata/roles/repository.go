package roles

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Role, int, error)
	Get(ctx context.Context, id int64) (Role, error)
	Create(ctx context.Context, role Role) (Role, error)
	Update(ctx context.Context, id int64, role Role) (Role, error)
	Delete(ctx context.Context, id int64) error
	CountEmployees(ctx context.Context, id int64) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, description, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Role, int, error) {
	q := mdshared.ListQuery{
		Select:       columns,
		From:         "roles",
		SearchFields: []string{"name", "description"},
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
	var out []Role
	for rows.Next() {
		role, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, role)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Role, error) {
	role, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM roles WHERE id = $1`, id))
	return role, mdshared.MapError(err, "role")
}

func (r *repository) Create(ctx context.Context, role Role) (Role, error) {
	created, err := scan(r.pool.QueryRow(ctx, `INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING `+columns,
		role.Name, role.Description))
	return created, mdshared.MapError(err, "role")
}

func (r *repository) Update(ctx context.Context, id int64, role Role) (Role, error) {
	updated, err := scan(r.pool.QueryRow(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns, id, role.Name, role.Description))
	return updated, mdshared.MapError(err, "role")
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return mdshared.MapError(err, "role")
	}
	if tag.RowsAffected() == 0 {
		return mdshared.NotFound("role")
	}
	return nil
}

func (r *repository) CountEmployees(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM employees WHERE role_id = $1`, id).Scan(&n)
	return n, err
}

func scan(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}
