package entity

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// StockBalance is the per-scope balance counter backing the O(1) current
// balance query. It is updated atomically in the same transaction as each
// ledger append; the post-update value is stamped on the entry as its
// running balance, so counter and history can never drift.
type StockBalance struct {
	TenantID  id.ID `db:"tenant_id" json:"tenantId"`
	ProductID id.ID `db:"product_id" json:"productId"`

	// WarehouseID uses the nil UUID as sentinel for unscoped movements,
	// so the scope can participate in a primary key.
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	LastEntryAt *time.Time `db:"last_entry_at" json:"lastEntryAt,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// Scope reconstructs the running-balance scope of the counter row.
func (b *StockBalance) Scope() Scope {
	s := Scope{TenantID: b.TenantID, ProductID: b.ProductID}
	if !id.IsNil(b.WarehouseID) {
		w := b.WarehouseID
		s.WarehouseID = &w
	}
	return s
}
