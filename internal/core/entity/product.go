package entity

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// ProductType defines the category of a product.
type ProductType string

const (
	ProductTypeGoods    ProductType = "goods"
	ProductTypeService  ProductType = "service"
	ProductTypeMaterial ProductType = "material"
	ProductTypeProduct  ProductType = "product" // manufactured output
)

// IsValid reports whether the value belongs to the closed set.
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeGoods, ProductTypeService, ProductTypeMaterial, ProductTypeProduct:
		return true
	}
	return false
}

// Product is the catalog item the ledger moves stock for. The ledger treats
// products as read-only facts owned by the inventory domain; only the fields
// it consults are modeled here.
type Product struct {
	ID       id.ID `db:"id" json:"id"`
	TenantID id.ID `db:"tenant_id" json:"tenantId"`

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	Type ProductType `db:"type" json:"type"`

	// TrackStock gates ledger participation together with Type
	TrackStock  bool `db:"track_stock" json:"trackStock"`
	TrackBatch  bool `db:"track_batch" json:"trackBatch"`
	TrackSerial bool `db:"track_serial" json:"trackSerial"`

	// Alerting thresholds, consulted by reorder checks
	ReorderLevel *types.Quantity `db:"reorder_level" json:"reorderLevel,omitempty"`
	MinStock     *types.Quantity `db:"min_stock" json:"minStock,omitempty"`
	MaxStock     *types.Quantity `db:"max_stock" json:"maxStock,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RequiresStockTracking reports whether ledger entries may be recorded for
// this product. Services never carry stock regardless of the flag.
func (p *Product) RequiresStockTracking() bool {
	return p.Type != ProductTypeService && p.TrackStock
}

// HasReorderLevel reports whether a meaningful reorder threshold is set.
// A zero or absent threshold disables the below-reorder check.
func (p *Product) HasReorderLevel() bool {
	return p.ReorderLevel != nil && p.ReorderLevel.IsPositive()
}
