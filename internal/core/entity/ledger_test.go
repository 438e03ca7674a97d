package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

func TestNewLedgerEntry_DerivesSignFromMovementType(t *testing.T) {
	tenantID := id.New()
	productID := id.New()
	qty := types.MustQuantity("25")

	purchase, err := NewLedgerEntry(tenantID, productID, nil, MovementPurchase, qty, nil)
	require.NoError(t, err)
	assert.True(t, purchase.Quantity.Equal(types.MustQuantity("25")))

	sale, err := NewLedgerEntry(tenantID, productID, nil, MovementSale, qty, nil)
	require.NoError(t, err)
	assert.True(t, sale.Quantity.Equal(types.MustQuantity("-25")))
	assert.True(t, sale.Magnitude().Equal(qty))
}

func TestNewLedgerEntry_ComputesTotalCost(t *testing.T) {
	cost := types.MustMoney("50.00")
	e, err := NewLedgerEntry(id.New(), id.New(), nil, MovementPurchase, types.MustQuantity("100"), &cost)
	require.NoError(t, err)

	assert.True(t, e.TotalCost.Equal(types.MustMoney("5000.00")), "total cost = quantity x unit cost, got %s", e.TotalCost)

	// Total cost of a decrease is stored unsigned; SignedTotalCost applies the sign.
	sale, err := NewLedgerEntry(id.New(), id.New(), nil, MovementSale, types.MustQuantity("3"), &cost)
	require.NoError(t, err)
	assert.True(t, sale.TotalCost.Equal(types.MustMoney("150.00")))
	assert.True(t, sale.SignedTotalCost().Equal(types.MustMoney("-150.00")))
}

func TestNewLedgerEntry_Validation(t *testing.T) {
	tenantID := id.New()
	productID := id.New()
	qty := types.MustQuantity("10")

	_, err := NewLedgerEntry(id.Nil(), productID, nil, MovementPurchase, qty, nil)
	assert.Error(t, err, "nil tenant must be rejected")

	_, err = NewLedgerEntry(tenantID, id.Nil(), nil, MovementPurchase, qty, nil)
	assert.Error(t, err, "nil product must be rejected")

	_, err = NewLedgerEntry(tenantID, productID, nil, MovementType("teleport"), qty, nil)
	assert.Error(t, err, "unknown movement type must be rejected")

	_, err = NewLedgerEntry(tenantID, productID, nil, MovementPurchase, types.Zero(), nil)
	assert.True(t, apperror.IsInvalidOperation(err), "zero quantity must be rejected")

	_, err = NewLedgerEntry(tenantID, productID, nil, MovementPurchase, types.MustQuantity("-5"), nil)
	assert.True(t, apperror.IsInvalidOperation(err), "negative magnitude must be rejected")

	negCost := types.MustMoney("-1")
	_, err = NewLedgerEntry(tenantID, productID, nil, MovementPurchase, qty, &negCost)
	assert.True(t, apperror.IsInvalidOperation(err), "negative unit cost must be rejected")
}

func TestNewLedgerEntry_AssignsEntryUID(t *testing.T) {
	a, err := NewLedgerEntry(id.New(), id.New(), nil, MovementPurchase, types.MustQuantity("1"), nil)
	require.NoError(t, err)
	b, err := NewLedgerEntry(id.New(), id.New(), nil, MovementPurchase, types.MustQuantity("1"), nil)
	require.NoError(t, err)

	assert.False(t, id.IsNil(a.EntryUID))
	assert.NotEqual(t, a.EntryUID, b.EntryUID)
}

func TestLedgerEntry_Validate_SignDiscipline(t *testing.T) {
	e, err := NewLedgerEntry(id.New(), id.New(), nil, MovementSale, types.MustQuantity("5"), nil)
	require.NoError(t, err)
	require.NoError(t, e.Validate())

	// A sale with positive quantity violates the sign invariant.
	e.Quantity = types.MustQuantity("5")
	err = e.Validate()
	assert.True(t, apperror.IsInvalidOperation(err))

	e.Quantity = types.Zero()
	err = e.Validate()
	assert.True(t, apperror.IsInvalidOperation(err))
}

func TestLedgerEntry_Scope(t *testing.T) {
	warehouseID := id.New()
	e, err := NewLedgerEntry(id.New(), id.New(), &warehouseID, MovementPurchase, types.MustQuantity("1"), nil)
	require.NoError(t, err)

	scope := e.Scope()
	assert.Equal(t, e.TenantID, scope.TenantID)
	assert.Equal(t, e.ProductID, scope.ProductID)
	assert.Equal(t, warehouseID, scope.WarehouseOrNil())

	// Without a warehouse the sentinel is the nil UUID.
	unscoped, err := NewLedgerEntry(id.New(), id.New(), nil, MovementPurchase, types.MustQuantity("1"), nil)
	require.NoError(t, err)
	assert.Equal(t, id.Nil(), unscoped.Scope().WarehouseOrNil())
	assert.NotEqual(t, scope.Key(), unscoped.Scope().Key())
}

func TestLedgerEntry_ExpiryPredicates(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	e, err := NewLedgerEntry(id.New(), id.New(), nil, MovementPurchase, types.MustQuantity("1"), nil)
	require.NoError(t, err)

	assert.False(t, e.IsExpired(now), "no expiry date never expires")
	assert.False(t, e.ExpiresWithin(now, 30))

	past := now.AddDate(0, 0, -1)
	e.WithDates(nil, &past)
	assert.True(t, e.IsExpired(now))
	assert.False(t, e.ExpiresWithin(now, 30), "already expired is not near-expiry")

	in10 := now.AddDate(0, 0, 10)
	e.WithDates(nil, &in10)
	assert.False(t, e.IsExpired(now))
	assert.True(t, e.ExpiresWithin(now, 30))
	assert.True(t, e.ExpiresWithin(now, 10), "window end is inclusive")
	assert.False(t, e.ExpiresWithin(now, 9))
}

func TestLedgerEntry_Builders(t *testing.T) {
	userID := id.New()
	refID := id.New()

	e, err := NewLedgerEntry(id.New(), id.New(), nil, MovementPurchase, types.MustQuantity("1"), nil)
	require.NoError(t, err)

	e.WithBatch("BATCH-1").
		WithLot("LOT-9").
		WithSerial("SN-42").
		WithReference(ReferencePurchaseOrder, refID).
		WithCreatedBy(userID).
		WithNotes("receiving dock 3").
		WithMetadata(Attributes{"supplier": "acme"})

	require.NotNil(t, e.BatchNumber)
	assert.Equal(t, "BATCH-1", *e.BatchNumber)
	require.NotNil(t, e.ReferenceType)
	assert.Equal(t, ReferencePurchaseOrder, *e.ReferenceType)
	require.NotNil(t, e.ReferenceID)
	assert.Equal(t, refID, *e.ReferenceID)
	require.NotNil(t, e.CreatedBy)
	assert.Equal(t, userID, *e.CreatedBy)
	require.NotNil(t, e.Notes)
	assert.Equal(t, "acme", e.Metadata["supplier"])

	// Nil user and empty notes leave the fields unset.
	e2, err := NewLedgerEntry(id.New(), id.New(), nil, MovementPurchase, types.MustQuantity("1"), nil)
	require.NoError(t, err)
	e2.WithCreatedBy(id.Nil()).WithNotes("")
	assert.Nil(t, e2.CreatedBy)
	assert.Nil(t, e2.Notes)
}
