package ledger

import (
	"context"
	"fmt"
	"time"

	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// BalanceService answers balance and valuation queries against the ledger.
// All queries are read-only; empty entry sets yield zero, never an error.
// An unknown product yields NotFound.
type BalanceService struct {
	repo     Repository
	products ProductReader
}

// NewBalanceService creates a balance query service.
func NewBalanceService(repo Repository, products ProductReader) *BalanceService {
	return &BalanceService{repo: repo, products: products}
}

// CurrentBalance returns the up-to-date balance for a product. With a
// warehouse given it reads the scope's counter row directly; without one it
// sums counters across all warehouses, since running balances are tracked
// per exact scope.
func (s *BalanceService) CurrentBalance(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID) (types.Quantity, error) {
	if _, err := s.products.GetProduct(ctx, tenantID, productID); err != nil {
		return types.Zero(), err
	}
	if warehouseID != nil {
		return s.repo.ScopeBalance(ctx, entity.Scope{
			TenantID:    tenantID,
			ProductID:   productID,
			WarehouseID: warehouseID,
		})
	}
	return s.repo.ProductBalance(ctx, tenantID, productID)
}

// BalanceAsOf returns the historical balance at a point in business time by
// summing signed quantities of entries dated at or before asOf. The counter
// shortcut never applies to historical queries.
func (s *BalanceService) BalanceAsOf(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID, asOf time.Time) (types.Quantity, error) {
	if _, err := s.products.GetProduct(ctx, tenantID, productID); err != nil {
		return types.Zero(), err
	}
	return s.repo.BalanceAsOf(ctx, tenantID, productID, warehouseID, asOf)
}

// MovementSummary groups a product's entries in [from, to] by movement type.
func (s *BalanceService) MovementSummary(ctx context.Context, tenantID, productID id.ID, from, to time.Time) ([]MovementSummaryRow, error) {
	if _, err := s.products.GetProduct(ctx, tenantID, productID); err != nil {
		return nil, err
	}
	return s.repo.MovementSummary(ctx, tenantID, productID, from, to)
}

// StockValuation sums quantity x unit cost over costed entries, yielding the
// signed value of stock on hand.
func (s *BalanceService) StockValuation(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID) (types.Money, error) {
	if _, err := s.products.GetProduct(ctx, tenantID, productID); err != nil {
		return types.Zero(), err
	}
	return s.repo.StockValuation(ctx, tenantID, productID, warehouseID)
}

// IsBelowReorderLevel compares the current balance against the product's
// reorder threshold. Products without a positive threshold never report low.
func (s *BalanceService) IsBelowReorderLevel(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID) (bool, error) {
	product, err := s.products.GetProduct(ctx, tenantID, productID)
	if err != nil {
		return false, err
	}
	if !product.HasReorderLevel() {
		return false, nil
	}

	var balance types.Quantity
	if warehouseID != nil {
		balance, err = s.repo.ScopeBalance(ctx, entity.Scope{
			TenantID:    tenantID,
			ProductID:   productID,
			WarehouseID: warehouseID,
		})
	} else {
		balance, err = s.repo.ProductBalance(ctx, tenantID, productID)
	}
	if err != nil {
		return false, fmt.Errorf("read balance: %w", err)
	}

	return balance.LessThan(*product.ReorderLevel), nil
}
