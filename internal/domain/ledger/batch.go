package ledger

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
)

// BatchTracker answers batch/lot/expiry questions as pure projections over
// ledger entries. "Expired" and "near expiry" are point-in-time predicates
// evaluated at query time, never stored flags.
type BatchTracker struct {
	repo     Repository
	products ProductReader

	// now is swappable for tests.
	now func() time.Time
}

// NewBatchTracker creates a batch/expiry tracker.
func NewBatchTracker(repo Repository, products ProductReader) *BatchTracker {
	return &BatchTracker{
		repo:     repo,
		products: products,
		now:      time.Now,
	}
}

// ExpiringWithin returns entries whose expiry date falls in (now, now+days].
// Already-expired stock is excluded.
func (t *BatchTracker) ExpiringWithin(ctx context.Context, tenantID, productID id.ID, days int) ([]entity.LedgerEntry, error) {
	if days <= 0 {
		return nil, apperror.NewValidation("days must be positive").WithDetail("days", days)
	}
	if _, err := t.products.GetProduct(ctx, tenantID, productID); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	deadline := now.AddDate(0, 0, days)
	return t.repo.ListEntries(ctx, tenantID, productID, EntryFilter{
		RequireExpiry:    true,
		ExpiryAfter:      &now,
		ExpiryOnOrBefore: &deadline,
	})
}

// Expired returns entries whose expiry date has passed.
func (t *BatchTracker) Expired(ctx context.Context, tenantID, productID id.ID) ([]entity.LedgerEntry, error) {
	if _, err := t.products.GetProduct(ctx, tenantID, productID); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	return t.repo.ListEntries(ctx, tenantID, productID, EntryFilter{
		RequireExpiry: true,
		ExpiryBefore:  &now,
	})
}

// ByBatch returns the entry history of one batch, optionally narrowed to a
// warehouse.
func (t *BatchTracker) ByBatch(ctx context.Context, tenantID, productID id.ID, batchNumber string, warehouseID *id.ID) ([]entity.LedgerEntry, error) {
	if batchNumber == "" {
		return nil, apperror.NewValidation("batch number is required")
	}
	if _, err := t.products.GetProduct(ctx, tenantID, productID); err != nil {
		return nil, err
	}

	return t.repo.ListEntries(ctx, tenantID, productID, EntryFilter{
		BatchNumber: &batchNumber,
		WarehouseID: warehouseID,
	})
}
