// Package ledger_repo provides the PostgreSQL implementation of the stock
// ledger store. Entries live in an append-only table; a per-scope counter
// table backs O(1) current-balance reads and serializes concurrent appends.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	entriesTable  = "ledger_entries"
	balancesTable = "stock_balances"
)

// entryColumns follows the field order of entity.LedgerEntry; the insert in
// Append relies on that pairing. entryColumns[0] is the generated id.
var entryColumns = postgres.ExtractDBColumns[entity.LedgerEntry]()

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts the entry and stamps its running balance.
//
// The counter row for the entry's scope is upserted first with
// ON CONFLICT DO UPDATE which takes a row lock, so concurrent appends to the
// same scope queue behind each other and every entry sees a distinct
// post-update balance. The returned counter value becomes the entry's
// running balance; counter and entry commit or roll back together.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	if r.txm.GetTx(ctx) == nil {
		return apperror.NewInternal(fmt.Errorf("ledger append outside transaction"))
	}

	if err := e.Validate(); err != nil {
		return err
	}

	querier := r.txm.GetQuerier(ctx)

	upsertSQL := `
		INSERT INTO stock_balances (tenant_id, product_id, warehouse_id, quantity, last_entry_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (tenant_id, product_id, warehouse_id)
		DO UPDATE SET
			quantity      = stock_balances.quantity + EXCLUDED.quantity,
			last_entry_at = EXCLUDED.last_entry_at,
			updated_at    = EXCLUDED.updated_at
		RETURNING quantity
	`

	scope := e.Scope()
	var balance types.Quantity
	err := querier.QueryRow(ctx, upsertSQL,
		scope.TenantID, scope.ProductID, scope.WarehouseOrNil(),
		e.Quantity, e.TransactionDate,
	).Scan(&balance)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update balance counter: %w", err))
	}
	e.RunningBalance = balance

	q := r.builder.Insert(entriesTable).
		Columns(entryColumns[1:]...).
		Values(
			e.EntryUID,
			e.TenantID, e.ProductID, e.WarehouseID,
			e.MovementType, e.Quantity,
			e.UnitCost, e.TotalCost, e.RunningBalance,
			e.BatchNumber, e.LotNumber, e.SerialNumber,
			e.ManufacturingDate, e.ExpiryDate,
			e.ReferenceType, e.ReferenceID,
			e.CreatedBy, e.Notes, e.Metadata,
			e.TransactionDate, e.CreatedAt,
		).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := querier.QueryRow(ctx, sql, args...).Scan(&e.ID); err != nil {
		return postgres.MapError(fmt.Errorf("insert ledger entry: %w", err))
	}

	return nil
}

// Update always fails: ledger entries are corrected with reversals.
func (r *LedgerRepo) Update(ctx context.Context, e *entity.LedgerEntry) error {
	return apperror.NewImmutableRecord("ledger entry", e.ID)
}

// Delete always fails: ledger entries are corrected with reversals.
func (r *LedgerRepo) Delete(ctx context.Context, entryID int64) error {
	return apperror.NewImmutableRecord("ledger entry", entryID)
}

// GetByID retrieves a single entry within a tenant.
func (r *LedgerRepo) GetByID(ctx context.Context, tenantID id.ID, entryID int64) (*entity.LedgerEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": entryID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var e entity.LedgerEntry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ledger entry", entryID)
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}

	return &e, nil
}

// ListByReference retrieves entries linked to a source document.
func (r *LedgerRepo) ListByReference(ctx context.Context, tenantID id.ID, refType entity.ReferenceType, refID id.ID) ([]entity.LedgerEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{
			"tenant_id":      tenantID,
			"reference_type": refType,
			"reference_id":   refID,
		}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.LedgerEntry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select by reference: %w", err)
	}

	return entries, nil
}

// ListEntries retrieves entry history for a product with optional filters.
func (r *LedgerRepo) ListEntries(ctx context.Context, tenantID, productID id.ID, filter ledger.EntryFilter) ([]entity.LedgerEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "product_id": productID})

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.MovementType != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.MovementType})
	}
	if filter.BatchNumber != nil {
		q = q.Where(squirrel.Eq{"batch_number": *filter.BatchNumber})
	}
	if filter.LotNumber != nil {
		q = q.Where(squirrel.Eq{"lot_number": *filter.LotNumber})
	}
	if filter.SerialNumber != nil {
		q = q.Where(squirrel.Eq{"serial_number": *filter.SerialNumber})
	}

	if filter.RequireExpiry {
		q = q.Where("expiry_date IS NOT NULL")
	}
	if filter.ExpiryAfter != nil {
		q = q.Where(squirrel.Gt{"expiry_date": *filter.ExpiryAfter})
	}
	if filter.ExpiryOnOrBefore != nil {
		q = q.Where(squirrel.LtOrEq{"expiry_date": *filter.ExpiryOnOrBefore})
	}
	if filter.ExpiryBefore != nil {
		q = q.Where(squirrel.Lt{"expiry_date": *filter.ExpiryBefore})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"transaction_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"transaction_date": *filter.ToDate})
	}

	q = q.OrderBy("id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.LedgerEntry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}

	return entries, nil
}

// ScopeBalance returns the counter value for one exact scope, 0 if absent.
func (r *LedgerRepo) ScopeBalance(ctx context.Context, scope entity.Scope) (types.Quantity, error) {
	return r.scopeBalance(ctx, scope, false)
}

// ScopeBalanceForUpdate locks the counter row while reading it. Used by the
// non-negative stock policy so the check and the subsequent append see a
// consistent value. Must be called within a transaction.
func (r *LedgerRepo) ScopeBalanceForUpdate(ctx context.Context, scope entity.Scope) (types.Quantity, error) {
	if r.txm.GetTx(ctx) == nil {
		return types.Zero(), apperror.NewInternal(fmt.Errorf("balance lock outside transaction"))
	}
	return r.scopeBalance(ctx, scope, true)
}

func (r *LedgerRepo) scopeBalance(ctx context.Context, scope entity.Scope, forUpdate bool) (types.Quantity, error) {
	sql := `
		SELECT quantity
		FROM stock_balances
		WHERE tenant_id = $1 AND product_id = $2 AND warehouse_id = $3
	`
	if forUpdate {
		sql += " FOR UPDATE"
	}

	var balance types.Quantity
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, scope.TenantID, scope.ProductID, scope.WarehouseOrNil()).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return types.Zero(), nil
		}
		return types.Zero(), postgres.MapError(fmt.Errorf("get scope balance: %w", err))
	}

	return balance, nil
}

// ProductBalance sums counters for a product across all warehouses.
func (r *LedgerRepo) ProductBalance(ctx context.Context, tenantID, productID id.ID) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_balances
		WHERE tenant_id = $1 AND product_id = $2
	`

	var balance types.Quantity
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, tenantID, productID).Scan(&balance); err != nil {
		return types.Zero(), fmt.Errorf("sum product balance: %w", err)
	}

	return balance, nil
}

// BalanceAsOf sums signed quantities over entries up to and including asOf.
// Derived from history rather than the counter so the answer is correct for
// any point in time.
func (r *LedgerRepo) BalanceAsOf(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID, asOf time.Time) (types.Quantity, error) {
	q := r.builder.Select("COALESCE(SUM(quantity), 0)").
		From(entriesTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "product_id": productID}).
		Where(squirrel.LtOrEq{"transaction_date": asOf})

	if warehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *warehouseID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var balance types.Quantity
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&balance); err != nil {
		return types.Zero(), fmt.Errorf("balance as of: %w", err)
	}

	return balance, nil
}

// MovementSummary groups entries in [from, to] by movement type.
func (r *LedgerRepo) MovementSummary(ctx context.Context, tenantID, productID id.ID, from, to time.Time) ([]ledger.MovementSummaryRow, error) {
	sql := `
		SELECT
			movement_type,
			COALESCE(SUM(ABS(quantity)), 0)                    AS total_quantity,
			COALESCE(SUM(total_cost), 0)                       AS total_cost,
			COUNT(*)                                           AS count
		FROM ledger_entries
		WHERE tenant_id = $1
		  AND product_id = $2
		  AND transaction_date >= $3
		  AND transaction_date <= $4
		GROUP BY movement_type
		ORDER BY movement_type
	`

	var rows []ledger.MovementSummaryRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, tenantID, productID, from, to); err != nil {
		return nil, fmt.Errorf("movement summary: %w", err)
	}

	return rows, nil
}

// StockValuation sums signed quantity x unit cost over costed entries.
func (r *LedgerRepo) StockValuation(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID) (types.Money, error) {
	q := r.builder.Select("COALESCE(SUM(quantity * unit_cost), 0)").
		From(entriesTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "product_id": productID}).
		Where("unit_cost IS NOT NULL")

	if warehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *warehouseID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var value types.Money
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		return types.Zero(), fmt.Errorf("stock valuation: %w", err)
	}

	return value, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
