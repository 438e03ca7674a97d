package entity

import (
	"fmt"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Scope is the (tenant, product, warehouse) triple over which a running
// balance is tracked. WarehouseID is optional: nil means the movement is
// not bound to a physical warehouse.
type Scope struct {
	TenantID    id.ID
	ProductID   id.ID
	WarehouseID *id.ID
}

// WarehouseOrNil returns the warehouse id or the nil UUID sentinel used
// by the balance counter table.
func (s Scope) WarehouseOrNil() id.ID {
	if s.WarehouseID != nil {
		return *s.WarehouseID
	}
	return id.Nil()
}

// Key returns a stable string form usable as a map key.
func (s Scope) Key() string {
	return fmt.Sprintf("%s/%s/%s", s.TenantID, s.ProductID, s.WarehouseOrNil())
}

// LedgerEntry is one immutable fact in the stock ledger. Entries are only
// ever appended; corrections happen through new reversal entries. The
// sequence id defines the basis for running-balance computation.
type LedgerEntry struct {
	// ID is the insertion sequence, assigned by the store on append.
	ID int64 `db:"id" json:"id"`

	// EntryUID is a UUIDv7 assigned at construction, stable across
	// retries and usable as a reference target before the sequence id
	// exists.
	EntryUID id.ID `db:"entry_uid" json:"entryUid"`

	// Scope
	TenantID    id.ID  `db:"tenant_id" json:"tenantId"`
	ProductID   id.ID  `db:"product_id" json:"productId"`
	WarehouseID *id.ID `db:"warehouse_id" json:"warehouseId,omitempty"`

	// Movement
	MovementType MovementType `db:"movement_type" json:"movementType"`

	// Quantity is signed: sign(Quantity) == MovementType.Sign(), always.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Costing
	UnitCost  *types.Money `db:"unit_cost" json:"unitCost,omitempty"`
	TotalCost types.Money  `db:"total_cost" json:"totalCost"`

	// RunningBalance is the cumulative signed quantity for the scope as of
	// and including this entry. Computed once on append, never recalculated.
	RunningBalance types.Quantity `db:"running_balance" json:"runningBalance"`

	// Dimensional metadata for traceability, orthogonal to the arithmetic
	BatchNumber       *string    `db:"batch_number" json:"batchNumber,omitempty"`
	LotNumber         *string    `db:"lot_number" json:"lotNumber,omitempty"`
	SerialNumber      *string    `db:"serial_number" json:"serialNumber,omitempty"`
	ManufacturingDate *time.Time `db:"manufacturing_date" json:"manufacturingDate,omitempty"`
	ExpiryDate        *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// Reference points at the originating domain object
	ReferenceType *ReferenceType `db:"reference_type" json:"referenceType,omitempty"`
	ReferenceID   *id.ID         `db:"reference_id" json:"referenceId,omitempty"`

	// Provenance
	CreatedBy *id.ID     `db:"created_by" json:"createdBy,omitempty"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	Metadata  Attributes `db:"metadata" json:"metadata,omitempty"`

	// TransactionDate is business time, distinct from record creation time
	TransactionDate time.Time `db:"transaction_date" json:"transactionDate"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// NewLedgerEntry builds an unpersisted ledger entry from an unsigned
// magnitude. The sign is derived from the movement type here, never trusted
// from the caller. RunningBalance and ID are assigned by the store on append.
func NewLedgerEntry(
	tenantID, productID id.ID,
	warehouseID *id.ID,
	movementType MovementType,
	magnitude types.Quantity,
	unitCost *types.Money,
) (*LedgerEntry, error) {
	if id.IsNil(tenantID) {
		return nil, apperror.NewValidation("tenant id is required")
	}
	if id.IsNil(productID) {
		return nil, apperror.NewValidation("product id is required")
	}
	if !movementType.IsValid() {
		return nil, apperror.NewValidation("unknown movement type").
			WithDetail("movement_type", movementType.String())
	}
	if !magnitude.IsPositive() {
		return nil, apperror.NewInvalidOperation("movement quantity must be positive").
			WithDetail("quantity", magnitude.String())
	}
	if unitCost != nil && unitCost.IsNegative() {
		return nil, apperror.NewInvalidOperation("unit cost cannot be negative").
			WithDetail("unit_cost", unitCost.String())
	}

	totalCost := types.Zero()
	if unitCost != nil {
		totalCost = magnitude.Mul(*unitCost)
	}

	quantity := magnitude
	if movementType.IsDecrease() {
		quantity = magnitude.Neg()
	}

	now := time.Now().UTC()
	return &LedgerEntry{
		EntryUID:        id.New(),
		TenantID:        tenantID,
		ProductID:       productID,
		WarehouseID:     warehouseID,
		MovementType:    movementType,
		Quantity:        quantity,
		UnitCost:        unitCost,
		TotalCost:       totalCost,
		TransactionDate: now,
		CreatedAt:       now,
	}, nil
}

// Scope returns the running-balance scope of the entry.
func (e *LedgerEntry) Scope() Scope {
	return Scope{
		TenantID:    e.TenantID,
		ProductID:   e.ProductID,
		WarehouseID: e.WarehouseID,
	}
}

// Magnitude returns the unsigned quantity.
func (e *LedgerEntry) Magnitude() types.Quantity {
	return e.Quantity.Abs()
}

// SignedTotalCost returns total cost with the movement's sign applied.
func (e *LedgerEntry) SignedTotalCost() types.Money {
	if e.MovementType.IsDecrease() {
		return e.TotalCost.Neg()
	}
	return e.TotalCost
}

// WithBatch sets batch/lot tracking fields.
func (e *LedgerEntry) WithBatch(batchNumber string) *LedgerEntry {
	e.BatchNumber = &batchNumber
	return e
}

// WithLot sets the lot number.
func (e *LedgerEntry) WithLot(lotNumber string) *LedgerEntry {
	e.LotNumber = &lotNumber
	return e
}

// WithSerial sets the serial number.
func (e *LedgerEntry) WithSerial(serialNumber string) *LedgerEntry {
	e.SerialNumber = &serialNumber
	return e
}

// WithDates sets manufacturing and expiry dates (either may be nil).
func (e *LedgerEntry) WithDates(manufactured, expiry *time.Time) *LedgerEntry {
	e.ManufacturingDate = manufactured
	e.ExpiryDate = expiry
	return e
}

// WithReference sets the polymorphic reference pair.
func (e *LedgerEntry) WithReference(refType ReferenceType, refID id.ID) *LedgerEntry {
	e.ReferenceType = &refType
	e.ReferenceID = &refID
	return e
}

// WithCreatedBy sets the acting user.
func (e *LedgerEntry) WithCreatedBy(userID id.ID) *LedgerEntry {
	if !id.IsNil(userID) {
		e.CreatedBy = &userID
	}
	return e
}

// WithNotes sets free-text notes.
func (e *LedgerEntry) WithNotes(notes string) *LedgerEntry {
	if notes != "" {
		e.Notes = &notes
	}
	return e
}

// WithMetadata sets the metadata bag.
func (e *LedgerEntry) WithMetadata(meta Attributes) *LedgerEntry {
	e.Metadata = meta
	return e
}

// WithTransactionDate overrides the business timestamp.
func (e *LedgerEntry) WithTransactionDate(t time.Time) *LedgerEntry {
	if !t.IsZero() {
		e.TransactionDate = t.UTC()
	}
	return e
}

// IsExpired reports whether the entry's stock is past its expiry date at
// the given instant. Entries without an expiry date never expire.
func (e *LedgerEntry) IsExpired(at time.Time) bool {
	return e.ExpiryDate != nil && e.ExpiryDate.Before(at)
}

// ExpiresWithin reports whether the expiry date falls in (at, at+days].
func (e *LedgerEntry) ExpiresWithin(at time.Time, days int) bool {
	if e.ExpiryDate == nil {
		return false
	}
	deadline := at.AddDate(0, 0, days)
	return e.ExpiryDate.After(at) && !e.ExpiryDate.After(deadline)
}

// Validate re-checks the entry's internal invariants (used by tests and by
// the store before persisting).
func (e *LedgerEntry) Validate() error {
	if !e.MovementType.IsValid() {
		return apperror.NewValidation("unknown movement type").
			WithDetail("movement_type", e.MovementType.String())
	}
	if e.Quantity.IsZero() {
		return apperror.NewInvalidOperation("movement quantity must be non-zero")
	}
	if e.MovementType.IsIncrease() && e.Quantity.IsNegative() ||
		e.MovementType.IsDecrease() && e.Quantity.IsPositive() {
		return apperror.NewInvalidOperation("quantity sign does not match movement type").
			WithDetail("movement_type", e.MovementType.String()).
			WithDetail("quantity", e.Quantity.String())
	}
	if e.UnitCost != nil && e.UnitCost.IsNegative() {
		return apperror.NewInvalidOperation("unit cost cannot be negative")
	}
	if e.ReferenceType != nil && !e.ReferenceType.IsValid() {
		return apperror.NewValidation("unknown reference type").
			WithDetail("reference_type", e.ReferenceType.String())
	}
	return nil
}
