package employees

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Employee, int, error)
	Get(ctx context.Context, id int64) (Employee, error)
	Create(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, id int64, e Employee) (Employee, error)
	Delete(ctx context.Context, id int64) error
	RoleExists(ctx context.Context, roleID int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const (
	columns = `e.id, e.name, e.phone, e.email, e.role_id, r.name, e.is_active, e.created_at, e.updated_at`
	from    = `employees e JOIN roles r ON r.id = e.role_id`
)

func (r *repository) List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Employee, int, error) {
	q := mdshared.ListQuery{
		Select:       columns,
		From:         from,
		SearchFields: []string{"e.name", "e.phone", "e.email"},
		SortColumns:  map[string]string{"name": "e.name", "role": "r.name", "created": "e.created_at"},
		DefaultSort:  "e.name",
		IDColumn:     "e.id",
	}
	if filter.RoleID > 0 {
		q.Where("e.role_id = ?", filter.RoleID)
	}
	if filter.IsActive != nil {
		q.Where("e.is_active = ?", *filter.IsActive)
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
	var out []Employee
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Employee, error) {
	e, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM `+from+` WHERE e.id = $1`, id))
	return e, mdshared.MapError(err, "employee")
}

func (r *repository) Create(ctx context.Context, e Employee) (Employee, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO employees (name, phone, email, role_id, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, e.Name, e.Phone, e.Email, e.RoleID, e.IsActive).Scan(&id)
	if err != nil {
		return Employee{}, mdshared.MapError(err, "employee")
	}
	return r.Get(ctx, id)
}

func (r *repository) Update(ctx context.Context, id int64, e Employee) (Employee, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET name = $2, phone = $3, email = $4, role_id = $5, is_active = $6,
		updated_at = NOW() WHERE id = $1`, id, e.Name, e.Phone, e.Email, e.RoleID, e.IsActive)
	if err != nil {
		return Employee{}, mdshared.MapError(err, "employee")
	}
	if tag.RowsAffected() == 0 {
		return Employee{}, mdshared.NotFound("employee")
	}
	return r.Get(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return mdshared.MapError(err, "employee")
	}
	if tag.RowsAffected() == 0 {
		return mdshared.NotFound("employee")
	}
	return nil
}

func (r *repository) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&ok)
	return ok, err
}

func scan(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Name, &e.Phone, &e.Email, &e.RoleID, &e.RoleName, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}
