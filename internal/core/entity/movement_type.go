package entity

// MovementType classifies the business cause of a ledger entry.
// The set is closed: values arriving from outside the process must pass
// through ParseMovementType, never be cast from free text.
type MovementType string

const (
	// MovementPurchase is goods received from a supplier
	MovementPurchase MovementType = "purchase"
	// MovementSale is goods shipped to a customer
	MovementSale MovementType = "sale"
	// MovementAdjustmentIn is a positive manual correction
	MovementAdjustmentIn MovementType = "adjustment_in"
	// MovementAdjustmentOut is a negative manual correction
	MovementAdjustmentOut MovementType = "adjustment_out"
	// MovementTransferIn is stock arriving from another warehouse
	MovementTransferIn MovementType = "transfer_in"
	// MovementTransferOut is stock leaving for another warehouse
	MovementTransferOut MovementType = "transfer_out"
	// MovementProductionConsume is raw material consumed by production
	MovementProductionConsume MovementType = "production_consume"
	// MovementProductionYield is finished goods produced
	MovementProductionYield MovementType = "production_yield"
	// MovementReversalIn cancels the effect of a prior decrease entry
	MovementReversalIn MovementType = "reversal_in"
	// MovementReversalOut cancels the effect of a prior increase entry
	MovementReversalOut MovementType = "reversal_out"
)

// movementTypes maps each variant to its sign and display label.
// A variant has exactly one sign; reversals are therefore split into
// an increasing and a decreasing kind.
var movementTypes = map[MovementType]struct {
	sign  int
	label string
}{
	MovementPurchase:          {+1, "Purchase"},
	MovementSale:              {-1, "Sale"},
	MovementAdjustmentIn:      {+1, "Adjustment (in)"},
	MovementAdjustmentOut:     {-1, "Adjustment (out)"},
	MovementTransferIn:        {+1, "Transfer (in)"},
	MovementTransferOut:       {-1, "Transfer (out)"},
	MovementProductionConsume: {-1, "Production consumption"},
	MovementProductionYield:   {+1, "Production yield"},
	MovementReversalIn:        {+1, "Reversal (in)"},
	MovementReversalOut:       {-1, "Reversal (out)"},
}

// String returns the wire representation.
func (t MovementType) String() string {
	return string(t)
}

// IsValid reports whether the value belongs to the closed set.
func (t MovementType) IsValid() bool {
	_, ok := movementTypes[t]
	return ok
}

// Sign returns +1 for increase types and -1 for decrease types.
// Returns 0 for unknown types; callers must validate first.
func (t MovementType) Sign() int {
	if m, ok := movementTypes[t]; ok {
		return m.sign
	}
	return 0
}

// Label returns the human-readable name.
func (t MovementType) Label() string {
	if m, ok := movementTypes[t]; ok {
		return m.label
	}
	return string(t)
}

// IsIncrease reports whether the type adds stock.
func (t MovementType) IsIncrease() bool {
	return t.Sign() > 0
}

// IsDecrease reports whether the type removes stock.
func (t MovementType) IsDecrease() bool {
	return t.Sign() < 0
}

// IsReversal reports whether the type corrects a prior entry.
func (t MovementType) IsReversal() bool {
	return t == MovementReversalIn || t == MovementReversalOut
}

// ReversalOf returns the movement type that cancels an entry of type t:
// increases are reversed by ReversalOut, decreases by ReversalIn.
func (t MovementType) ReversalOf() MovementType {
	if t.IsIncrease() {
		return MovementReversalOut
	}
	return MovementReversalIn
}

// ParseMovementType validates a raw string against the closed set.
func ParseMovementType(s string) (MovementType, bool) {
	t := MovementType(s)
	return t, t.IsValid()
}

// MovementTypes returns all known movement types.
// The order is stable for report rendering.
func MovementTypes() []MovementType {
	return []MovementType{
		MovementPurchase,
		MovementSale,
		MovementAdjustmentIn,
		MovementAdjustmentOut,
		MovementTransferIn,
		MovementTransferOut,
		MovementProductionConsume,
		MovementProductionYield,
		MovementReversalIn,
		MovementReversalOut,
	}
}

// ReferenceType identifies the kind of domain object a ledger entry points
// back to. Resolution of the reference is the caller's responsibility.
type ReferenceType string

const (
	ReferencePurchaseOrder    ReferenceType = "purchase_order"
	ReferenceSalesOrder       ReferenceType = "sales_order"
	ReferenceTransfer         ReferenceType = "transfer"
	ReferenceManualAdjustment ReferenceType = "manual_adjustment"
	ReferenceProductionOrder  ReferenceType = "production_order"
	ReferenceStockTaking      ReferenceType = "stock_taking"
	ReferenceInitialStock     ReferenceType = "initial_stock"
	// ReferenceLedgerEntry points at a prior ledger entry (used by reversals)
	ReferenceLedgerEntry ReferenceType = "ledger_entry"
)

// IsValid reports whether the value belongs to the closed set.
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferencePurchaseOrder,
		ReferenceSalesOrder,
		ReferenceTransfer,
		ReferenceManualAdjustment,
		ReferenceProductionOrder,
		ReferenceStockTaking,
		ReferenceInitialStock,
		ReferenceLedgerEntry:
		return true
	}
	return false
}

// String returns the wire representation.
func (r ReferenceType) String() string {
	return string(r)
}
