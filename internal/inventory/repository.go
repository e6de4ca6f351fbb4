package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/salonpos/salonpos/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetLedgerForUpdate(ctx context.Context, itemID int64) (Item, error)
	SetLedger(ctx context.Context, itemID int64, ledger Ledger) error
	InsertRecord(ctx context.Context, rec Record) (Record, error)
	GetRecordForUpdate(ctx context.Context, recordID int64) (Record, error)
	UpdateRecord(ctx context.Context, rec Record) error
	DeleteRecord(ctx context.Context, recordID int64) error
	ListRecordsByItem(ctx context.Context, itemID int64) ([]Record, error)
	ListRecordsBySale(ctx context.Context, saleID int64) ([]Record, error)
	DeleteRecordsBySale(ctx context.Context, saleID int64) error
}

type txRepo struct {
	db db.DBTX
}

// NewTxRepository exposes the transactional operations over an open pgx transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{db: tx}
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

const itemColumns = `i.id, i.name, i.is_service, COALESCE(c.tracks_stock, FALSE), i.stock, i.average_cost, i.updated_at`

const itemFrom = ` FROM items i LEFT JOIN categories c ON c.id = i.category_id`

const recordColumns = `id, item_id, record_date, movement_type, quantity, unit_cost, total_cost, cogs_total,
	COALESCE(sale_id, 0), clamped, shortfall, COALESCE(note, ''), COALESCE(created_by, 0), created_at`

// GetItem loads the inventory view of an item.
func (r *Repository) GetItem(ctx context.Context, itemID int64) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+itemFrom+` WHERE i.id = $1`, itemID))
}

// GetRecord loads a single record.
func (r *Repository) GetRecord(ctx context.Context, recordID int64) (Record, error) {
	return scanRecord(r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM inventory_records WHERE id = $1`, recordID))
}

// ListRecordsByItem returns the item's records ordered by date then id.
func (r *Repository) ListRecordsByItem(ctx context.Context, itemID int64) ([]Record, error) {
	return listRecordsByItem(ctx, r.pool, itemID)
}

// ListTrackedItemIDs returns every non-service item whose category tracks stock.
func (r *Repository) ListTrackedItemIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id`+itemFrom+`
		WHERE i.is_service = FALSE AND COALESCE(c.tracks_stock, FALSE) = TRUE ORDER BY i.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *txRepo) GetLedgerForUpdate(ctx context.Context, itemID int64) (Item, error) {
	return scanItem(t.db.QueryRow(ctx, `SELECT `+itemColumns+itemFrom+` WHERE i.id = $1 FOR UPDATE OF i`, itemID))
}

func (t *txRepo) SetLedger(ctx context.Context, itemID int64, ledger Ledger) error {
	tag, err := t.db.Exec(ctx, `UPDATE items SET stock = $2, average_cost = $3, updated_at = NOW() WHERE id = $1`,
		itemID, ledger.Stock, ledger.AverageCost)
	if err != nil {
		return fmt.Errorf("inventory: set ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (t *txRepo) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	row := t.db.QueryRow(ctx, `INSERT INTO inventory_records
		(item_id, record_date, movement_type, quantity, unit_cost, total_cost, cogs_total, sale_id, clamped, shortfall, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		rec.ItemID, rec.Date, string(rec.Type), rec.Quantity, rec.UnitCost, rec.TotalCost, rec.COGSTotal,
		nullableID(rec.SaleID), rec.Clamped, rec.Shortfall, rec.Note, nullableID(rec.CreatedBy))
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		if db.IsForeignKeyViolation(err) {
			return Record{}, ErrItemNotFound
		}
		return Record{}, fmt.Errorf("inventory: insert record: %w", err)
	}
	return rec, nil
}

func (t *txRepo) GetRecordForUpdate(ctx context.Context, recordID int64) (Record, error) {
	return scanRecord(t.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM inventory_records WHERE id = $1 FOR UPDATE`, recordID))
}

func (t *txRepo) UpdateRecord(ctx context.Context, rec Record) error {
	tag, err := t.db.Exec(ctx, `UPDATE inventory_records SET
		item_id = $2, record_date = $3, movement_type = $4, quantity = $5, unit_cost = $6,
		total_cost = $7, cogs_total = $8, clamped = $9, shortfall = $10, note = $11
		WHERE id = $1`,
		rec.ID, rec.ItemID, rec.Date, string(rec.Type), rec.Quantity, rec.UnitCost,
		rec.TotalCost, rec.COGSTotal, rec.Clamped, rec.Shortfall, rec.Note)
	if err != nil {
		return fmt.Errorf("inventory: update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (t *txRepo) DeleteRecord(ctx context.Context, recordID int64) error {
	tag, err := t.db.Exec(ctx, `DELETE FROM inventory_records WHERE id = $1`, recordID)
	if err != nil {
		return fmt.Errorf("inventory: delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (t *txRepo) ListRecordsByItem(ctx context.Context, itemID int64) ([]Record, error) {
	return listRecordsByItem(ctx, t.db, itemID)
}

func (t *txRepo) ListRecordsBySale(ctx context.Context, saleID int64) ([]Record, error) {
	rows, err := t.db.Query(ctx, `SELECT `+recordColumns+` FROM inventory_records WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func (t *txRepo) DeleteRecordsBySale(ctx context.Context, saleID int64) error {
	_, err := t.db.Exec(ctx, `DELETE FROM inventory_records WHERE sale_id = $1`, saleID)
	return err
}

func listRecordsByItem(ctx context.Context, conn db.DBTX, itemID int64) ([]Record, error) {
	rows, err := conn.Query(ctx, `SELECT `+recordColumns+` FROM inventory_records
		WHERE item_id = $1 ORDER BY record_date, id`, itemID)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item Item
		avg  decimal.Decimal
	)
	err := row.Scan(&item.ID, &item.Name, &item.IsService, &item.TracksStock, &item.Stock, &avg, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	item.AverageCost = avg
	return item, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec Record
		typ string
		at  time.Time
	)
	err := row.Scan(&rec.ID, &rec.ItemID, &at, &typ, &rec.Quantity, &rec.UnitCost, &rec.TotalCost, &rec.COGSTotal,
		&rec.SaleID, &rec.Clamped, &rec.Shortfall, &rec.Note, &rec.CreatedBy, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec.Date = at
	rec.Type = MovementType(typ)
	return rec, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
