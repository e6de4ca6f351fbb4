package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonpos/salonpos/internal/inventory"
	"github.com/salonpos/salonpos/internal/platform/db"
	"github.com/salonpos/salonpos/internal/shared"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a sales repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional writes CreateSale and DeleteSale need.
type TxRepository interface {
	GetLineItem(ctx context.Context, itemID int64) (LineItem, error)
	EmployeeExists(ctx context.Context, employeeID int64) (bool, error)
	CustomerExists(ctx context.Context, customerID int64) (bool, error)
	InsertSale(ctx context.Context, sale Sale) (Sale, error)
	InsertLine(ctx context.Context, line SaleLine) (SaleLine, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	DeleteSale(ctx context.Context, id int64) error
	// Inventory shares the open transaction with the inventory engine.
	Inventory() inventory.TxRepository
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const saleColumns = `s.id, s.code, COALESCE(s.customer_id, 0), s.sale_date, s.total, s.payment_method, s.note,
	COALESCE(s.created_by, 0), s.created_at`

const lineColumns = `l.id, l.sale_id, l.item_id, i.name, l.employee_id, l.quantity, l.unit_price, l.line_total,
	l.commission_rate, l.salon_owner_rate, l.commission_amount, l.salon_owner_amount`

// GetSale loads a sale with its lines.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales s WHERE s.id = $1`, id))
	if err != nil {
		return Sale{}, err
	}
	sale.Lines, err = listLines(ctx, r.pool, id)
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// ListSales returns sale headers matching filter, newest first by default.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if !filter.From.IsZero() {
		add("s.sale_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		add("s.sale_date < ?", filter.To)
	}
	if filter.CustomerID > 0 {
		add("s.customer_id = ?", filter.CustomerID)
	}
	if filter.EmployeeID > 0 {
		add("EXISTS (SELECT 1 FROM sale_lines l WHERE l.sale_id = s.id AND l.employee_id = ?)", filter.EmployeeID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(s.code || ' ' || s.note) ILIKE ?", "%"+search+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales s`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sales: count: %w", err)
	}

	sortCol := map[string]string{"date": "s.sale_date", "total": "s.total", "code": "s.code"}[filter.SortBy]
	dir := "DESC"
	if sortCol == "" {
		sortCol = "s.sale_date"
	} else if !filter.Desc() {
		dir = "ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = shared.DefaultLimit
	}
	n := len(args)
	args = append(args, limit, filter.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales s`+clause+
		` ORDER BY `+sortCol+` `+dir+`, s.id `+dir+
		` LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sales: list: %w", err)
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sale)
	}
	return out, total, rows.Err()
}

func (t *txRepo) Inventory() inventory.TxRepository {
	return inventory.NewTxRepository(t.tx)
}

func (t *txRepo) GetLineItem(ctx context.Context, itemID int64) (LineItem, error) {
	var li LineItem
	err := t.tx.QueryRow(ctx, `SELECT i.id, i.name, i.is_service, c.id, c.commission_rate, c.salon_owner_rate, c.tracks_stock
		FROM items i JOIN categories c ON c.id = i.category_id
		WHERE i.id = $1`, itemID).
		Scan(&li.ItemID, &li.Name, &li.IsService, &li.CategoryID, &li.CommissionRate, &li.SalonOwnerRate, &li.TracksStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return LineItem{}, fmt.Errorf("item %d: %w", itemID, shared.ErrNotFound)
	}
	return li, err
}

func (t *txRepo) EmployeeExists(ctx context.Context, employeeID int64) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1)`, employeeID)
}

func (t *txRepo) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customerID)
}

func (t *txRepo) InsertSale(ctx context.Context, sale Sale) (Sale, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (code, customer_id, sale_date, total, payment_method, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		sale.Code, nullableID(sale.CustomerID), sale.Date, sale.Total, string(sale.PaymentMethod), sale.Note,
		nullableID(sale.CreatedBy)).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Sale{}, fmt.Errorf("sale code %s: %w", sale.Code, shared.ErrDuplicate)
		}
		return Sale{}, fmt.Errorf("sales: insert: %w", err)
	}
	return sale, nil
}

func (t *txRepo) InsertLine(ctx context.Context, line SaleLine) (SaleLine, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_lines (sale_id, item_id, employee_id, quantity, unit_price, line_total,
		commission_rate, salon_owner_rate, commission_amount, salon_owner_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		line.SaleID, line.ItemID, line.EmployeeID, line.Quantity, line.UnitPrice, line.LineTotal,
		line.CommissionRate, line.SalonOwnerRate, line.CommissionAmount, line.SalonOwnerAmount).Scan(&line.ID)
	if err != nil {
		return SaleLine{}, fmt.Errorf("sales: insert line: %w", err)
	}
	return line, nil
}

func (t *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	return scanSale(t.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales s WHERE s.id = $1 FOR UPDATE`, id))
}

func (t *txRepo) DeleteSale(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sales: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func listLines(ctx context.Context, conn db.DBTX, saleID int64) ([]SaleLine, error) {
	rows, err := conn.Query(ctx, `SELECT `+lineColumns+` FROM sale_lines l JOIN items i ON i.id = l.item_id
		WHERE l.sale_id = $1 ORDER BY l.id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaleLine
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ItemID, &l.ItemName, &l.EmployeeID, &l.Quantity, &l.UnitPrice,
			&l.LineTotal, &l.CommissionRate, &l.SalonOwnerRate, &l.CommissionAmount, &l.SalonOwnerAmount); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var (
		s      Sale
		method string
	)
	err := row.Scan(&s.ID, &s.Code, &s.CustomerID, &s.Date, &s.Total, &method, &s.Note, &s.CreatedBy, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrSaleNotFound
	}
	if err != nil {
		return Sale{}, err
	}
	s.PaymentMethod = PaymentMethod(method)
	return s, nil
}

func exists(ctx context.Context, conn db.DBTX, query string, id int64) (bool, error) {
	var ok bool
	err := conn.QueryRow(ctx, query, id).Scan(&ok)
	return ok, err
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
