// Package ledger provides the append-only stock ledger: every
// stock-affecting event is recorded as an immutable entry and all balances
// are derived from entry history.
package ledger

import (
	"context"
	"time"

	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Repository defines operations on the ledger entry store.
//
// Append is the only write. Update and Delete exist so the immutability
// guarantee is enforced at the store boundary rather than by convention:
// both must fail with ImmutableRecord for every entry, always.
type Repository interface {
	// Append persists the entry, assigns its sequence id and stamps its
	// running balance. The balance counter update and the entry insert
	// happen atomically; concurrent appends to the same scope are
	// serialized so no two entries observe the same previous balance.
	// Must be called within a transaction.
	Append(ctx context.Context, e *entity.LedgerEntry) error

	// Update always fails with ImmutableRecord.
	Update(ctx context.Context, e *entity.LedgerEntry) error

	// Delete always fails with ImmutableRecord.
	Delete(ctx context.Context, entryID int64) error

	// GetByID retrieves a single entry within a tenant.
	GetByID(ctx context.Context, tenantID id.ID, entryID int64) (*entity.LedgerEntry, error)

	// ListByReference retrieves entries linked to a source document,
	// ordered by sequence (used to find transfer legs and reversals).
	ListByReference(ctx context.Context, tenantID id.ID, refType entity.ReferenceType, refID id.ID) ([]entity.LedgerEntry, error)

	// ListEntries retrieves entry history for a product with optional
	// dimensional filters, ordered by sequence.
	ListEntries(ctx context.Context, tenantID, productID id.ID, filter EntryFilter) ([]entity.LedgerEntry, error)

	// Balance operations

	// ScopeBalance returns the counter value for one exact scope
	// (nil warehouse means the unscoped sentinel row), 0 if absent.
	ScopeBalance(ctx context.Context, scope entity.Scope) (types.Quantity, error)

	// ScopeBalanceForUpdate is ScopeBalance with a row lock, used by the
	// optional non-negative stock policy.
	ScopeBalanceForUpdate(ctx context.Context, scope entity.Scope) (types.Quantity, error)

	// ProductBalance sums counters for a product across all warehouses.
	ProductBalance(ctx context.Context, tenantID, productID id.ID) (types.Quantity, error)

	// BalanceAsOf sums signed quantities over entries with transaction
	// date <= asOf. A nil warehouse aggregates across all warehouses.
	BalanceAsOf(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID, asOf time.Time) (types.Quantity, error)

	// Reporting

	// MovementSummary groups entries in [from, to] by movement type.
	MovementSummary(ctx context.Context, tenantID, productID id.ID, from, to time.Time) ([]MovementSummaryRow, error)

	// StockValuation sums quantity*unit_cost over entries carrying a unit
	// cost. A nil warehouse aggregates across all warehouses.
	StockValuation(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID) (types.Money, error)
}

// ProductReader supplies the read-only product facts the ledger consults.
// Implementations must return NotFound when the product does not exist or
// belongs to a different tenant.
type ProductReader interface {
	GetProduct(ctx context.Context, tenantID, productID id.ID) (*entity.Product, error)
}

// EntryFilter narrows ListEntries results. Zero value means no filtering.
type EntryFilter struct {
	WarehouseID  *id.ID
	MovementType *entity.MovementType
	BatchNumber  *string
	LotNumber    *string
	SerialNumber *string

	// Expiry bounds, applied to entries carrying an expiry date:
	// ExpiryAfter keeps expiry_date > value, ExpiryOnOrBefore keeps
	// expiry_date <= value, ExpiryBefore keeps expiry_date < value.
	ExpiryAfter      *time.Time
	ExpiryOnOrBefore *time.Time
	ExpiryBefore     *time.Time
	// RequireExpiry keeps only entries that carry an expiry date.
	RequireExpiry bool

	// Business-time range over transaction_date.
	FromDate *time.Time
	ToDate   *time.Time

	Limit  int
	Offset int
}

// MovementSummaryRow is one line of a movement summary report.
type MovementSummaryRow struct {
	MovementType  entity.MovementType `db:"movement_type" json:"movementType"`
	TotalQuantity types.Quantity      `db:"total_quantity" json:"totalQuantity"`
	TotalCost     types.Money         `db:"total_cost" json:"totalCost"`
	Count         int64               `db:"count" json:"count"`
}
