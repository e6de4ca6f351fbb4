package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the aggregate queries behind each report.
type Repository interface {
	SalesTotals(ctx context.Context, r Range) (SalesSummary, error)
	EmployeeCommissions(ctx context.Context, r Range) ([]EmployeeCommission, error)
	InventoryValuation(ctx context.Context) ([]ValuationRow, error)
	ExpenseTotals(ctx context.Context, r Range) ([]ExpenseLine, error)
	UsageCOGS(ctx context.Context, r Range) (decimal.Decimal, error)
	DailySales(ctx context.Context, r Range) ([]DailyPoint, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL implementation.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const saleWindow = `s.sale_date >= $1 AND s.sale_date < $2`

func (p *pgRepository) SalesTotals(ctx context.Context, r Range) (SalesSummary, error) {
	out := SalesSummary{Range: r}
	err := p.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM sales s WHERE `+saleWindow+`),
		(SELECT COALESCE(SUM(s.total), 0) FROM sales s WHERE `+saleWindow+`),
		(SELECT COALESCE(SUM(l.commission_amount), 0) FROM sale_lines l JOIN sales s ON s.id = l.sale_id WHERE `+saleWindow+`),
		(SELECT COALESCE(SUM(l.salon_owner_amount), 0) FROM sale_lines l JOIN sales s ON s.id = l.sale_id WHERE `+saleWindow+`),
		(SELECT COALESCE(SUM(ir.cogs_total), 0) FROM inventory_records ir JOIN sales s ON s.id = ir.sale_id WHERE `+saleWindow+`)`,
		r.From, r.To).Scan(&out.SaleCount, &out.Revenue, &out.Commission, &out.SalonOwner, &out.COGS)
	return out, err
}

func (p *pgRepository) EmployeeCommissions(ctx context.Context, r Range) ([]EmployeeCommission, error) {
	rows, err := p.pool.Query(ctx, `SELECT e.id, e.name, COUNT(l.id), COALESCE(SUM(l.line_total), 0), COALESCE(SUM(l.commission_amount), 0)
		FROM sale_lines l
		JOIN sales s ON s.id = l.sale_id
		JOIN employees e ON e.id = l.employee_id
		WHERE `+saleWindow+`
		GROUP BY e.id, e.name
		ORDER BY e.name, e.id`, r.From, r.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EmployeeCommission
	for rows.Next() {
		var ec EmployeeCommission
		if err := rows.Scan(&ec.EmployeeID, &ec.Name, &ec.Lines, &ec.Revenue, &ec.Commission); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

func (p *pgRepository) InventoryValuation(ctx context.Context) ([]ValuationRow, error) {
	rows, err := p.pool.Query(ctx, `SELECT i.id, i.name, i.stock, i.average_cost
		FROM items i JOIN categories c ON c.id = i.category_id
		WHERE i.is_service = FALSE AND c.tracks_stock = TRUE
		ORDER BY i.name, i.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ValuationRow
	for rows.Next() {
		var v ValuationRow
		if err := rows.Scan(&v.ItemID, &v.Name, &v.Stock, &v.AverageCost); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *pgRepository) ExpenseTotals(ctx context.Context, r Range) ([]ExpenseLine, error) {
	rows, err := p.pool.Query(ctx, `SELECT c.id, c.name, COALESCE(SUM(e.amount), 0)
		FROM expenses e JOIN categories c ON c.id = e.category_id
		WHERE e.expense_date >= $1::date AND e.expense_date < $2::date
		GROUP BY c.id, c.name
		ORDER BY c.name, c.id`, r.From, r.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExpenseLine
	for rows.Next() {
		var l ExpenseLine
		if err := rows.Scan(&l.CategoryID, &l.Category, &l.Total); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *pgRepository) UsageCOGS(ctx context.Context, r Range) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := p.pool.QueryRow(ctx, `SELECT COALESCE(SUM(cogs_total), 0) FROM inventory_records
		WHERE movement_type = 'USAGE' AND record_date >= $1 AND record_date < $2`, r.From, r.To).Scan(&total)
	return total, err
}

func (p *pgRepository) DailySales(ctx context.Context, r Range) ([]DailyPoint, error) {
	rows, err := p.pool.Query(ctx, `SELECT (s.sale_date AT TIME ZONE 'UTC')::date AS day, COUNT(*), COALESCE(SUM(s.total), 0)
		FROM sales s
		WHERE `+saleWindow+`
		GROUP BY day
		ORDER BY day`, r.From, r.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailyPoint
	for rows.Next() {
		var d DailyPoint
		if err := rows.Scan(&d.Date, &d.Sales, &d.Revenue); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
