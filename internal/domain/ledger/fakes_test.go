package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// memRepo is an in-memory Repository with the same serialization contract as
// the real store: appends update the scope counter and the entry atomically
// under one lock.
type memRepo struct {
	mu       sync.Mutex
	seq      int64
	entries  []entity.LedgerEntry
	balances map[string]types.Quantity
}

func newMemRepo() *memRepo {
	return &memRepo{balances: make(map[string]types.Quantity)}
}

type memSnapshot struct {
	seq      int64
	entries  []entity.LedgerEntry
	balances map[string]types.Quantity
}

func (r *memRepo) snapshot() memSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := memSnapshot{
		seq:      r.seq,
		entries:  append([]entity.LedgerEntry(nil), r.entries...),
		balances: make(map[string]types.Quantity, len(r.balances)),
	}
	for k, v := range r.balances {
		s.balances[k] = v
	}
	return s
}

func (r *memRepo) restore(s memSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq = s.seq
	r.entries = s.entries
	r.balances = s.balances
}

func (r *memRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := e.Scope().Key()
	balance := r.balances[key].Add(e.Quantity)
	r.balances[key] = balance

	r.seq++
	e.ID = r.seq
	e.RunningBalance = balance
	r.entries = append(r.entries, *e)
	return nil
}

func (r *memRepo) Update(ctx context.Context, e *entity.LedgerEntry) error {
	return apperror.NewImmutableRecord("ledger entry", e.ID)
}

func (r *memRepo) Delete(ctx context.Context, entryID int64) error {
	return apperror.NewImmutableRecord("ledger entry", entryID)
}

func (r *memRepo) GetByID(ctx context.Context, tenantID id.ID, entryID int64) (*entity.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == entryID && r.entries[i].TenantID == tenantID {
			e := r.entries[i]
			return &e, nil
		}
	}
	return nil, apperror.NewNotFound("ledger entry", entryID)
}

func (r *memRepo) ListByReference(ctx context.Context, tenantID id.ID, refType entity.ReferenceType, refID id.ID) ([]entity.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.LedgerEntry
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.ReferenceType == nil || e.ReferenceID == nil {
			continue
		}
		if *e.ReferenceType == refType && *e.ReferenceID == refID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) ListEntries(ctx context.Context, tenantID, productID id.ID, filter EntryFilter) ([]entity.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.LedgerEntry
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.ProductID != productID {
			continue
		}
		if !matchesFilter(e, filter) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesFilter(e entity.LedgerEntry, f EntryFilter) bool {
	if f.WarehouseID != nil && (e.WarehouseID == nil || *e.WarehouseID != *f.WarehouseID) {
		return false
	}
	if f.MovementType != nil && e.MovementType != *f.MovementType {
		return false
	}
	if f.BatchNumber != nil && (e.BatchNumber == nil || *e.BatchNumber != *f.BatchNumber) {
		return false
	}
	if f.LotNumber != nil && (e.LotNumber == nil || *e.LotNumber != *f.LotNumber) {
		return false
	}
	if f.SerialNumber != nil && (e.SerialNumber == nil || *e.SerialNumber != *f.SerialNumber) {
		return false
	}
	if f.RequireExpiry && e.ExpiryDate == nil {
		return false
	}
	if f.ExpiryAfter != nil && (e.ExpiryDate == nil || !e.ExpiryDate.After(*f.ExpiryAfter)) {
		return false
	}
	if f.ExpiryOnOrBefore != nil && (e.ExpiryDate == nil || e.ExpiryDate.After(*f.ExpiryOnOrBefore)) {
		return false
	}
	if f.ExpiryBefore != nil && (e.ExpiryDate == nil || !e.ExpiryDate.Before(*f.ExpiryBefore)) {
		return false
	}
	if f.FromDate != nil && e.TransactionDate.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && e.TransactionDate.After(*f.ToDate) {
		return false
	}
	return true
}

func (r *memRepo) ScopeBalance(ctx context.Context, scope entity.Scope) (types.Quantity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[scope.Key()], nil
}

func (r *memRepo) ScopeBalanceForUpdate(ctx context.Context, scope entity.Scope) (types.Quantity, error) {
	return r.ScopeBalance(ctx, scope)
}

func (r *memRepo) ProductBalance(ctx context.Context, tenantID, productID id.ID) (types.Quantity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := types.Zero()
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ProductID == productID {
			total = total.Add(e.Quantity)
		}
	}
	return total, nil
}

func (r *memRepo) BalanceAsOf(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID, asOf time.Time) (types.Quantity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := types.Zero()
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.ProductID != productID {
			continue
		}
		if warehouseID != nil && (e.WarehouseID == nil || *e.WarehouseID != *warehouseID) {
			continue
		}
		if e.TransactionDate.After(asOf) {
			continue
		}
		total = total.Add(e.Quantity)
	}
	return total, nil
}

func (r *memRepo) MovementSummary(ctx context.Context, tenantID, productID id.ID, from, to time.Time) ([]MovementSummaryRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byType := make(map[entity.MovementType]*MovementSummaryRow)
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.ProductID != productID {
			continue
		}
		if e.TransactionDate.Before(from) || e.TransactionDate.After(to) {
			continue
		}
		row, ok := byType[e.MovementType]
		if !ok {
			row = &MovementSummaryRow{MovementType: e.MovementType}
			byType[e.MovementType] = row
		}
		row.TotalQuantity = row.TotalQuantity.Add(e.Quantity.Abs())
		row.TotalCost = row.TotalCost.Add(e.TotalCost)
		row.Count++
	}

	rows := make([]MovementSummaryRow, 0, len(byType))
	for _, row := range byType {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].MovementType < rows[j].MovementType })
	return rows, nil
}

func (r *memRepo) StockValuation(ctx context.Context, tenantID, productID id.ID, warehouseID *id.ID) (types.Money, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := types.Zero()
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.ProductID != productID || e.UnitCost == nil {
			continue
		}
		if warehouseID != nil && (e.WarehouseID == nil || *e.WarehouseID != *warehouseID) {
			continue
		}
		total = total.Add(e.Quantity.Mul(*e.UnitCost))
	}
	return total, nil
}

var _ Repository = (*memRepo)(nil)

// memTxManager serializes transactions and rolls the repo back to a
// snapshot when fn fails, matching the atomicity of real transactions.
type memTxManager struct {
	mu   sync.Mutex
	repo *memRepo
}

type txMarker struct{}

func (m *memTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.repo.snapshot()
	ctx = context.WithValue(ctx, txMarker{}, struct{}{})
	if err := fn(ctx); err != nil {
		m.repo.restore(snap)
		return err
	}
	return nil
}

// memProducts is an in-memory ProductReader.
type memProducts struct {
	mu       sync.Mutex
	products map[id.ID]*entity.Product
}

func newMemProducts() *memProducts {
	return &memProducts{products: make(map[id.ID]*entity.Product)}
}

func (p *memProducts) add(product *entity.Product) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.products[product.ID] = product
}

func (p *memProducts) GetProduct(ctx context.Context, tenantID, productID id.ID) (*entity.Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	product, ok := p.products[productID]
	if !ok || product.TenantID != tenantID {
		return nil, apperror.NewNotFound("product", productID)
	}
	return product, nil
}

var _ ProductReader = (*memProducts)(nil)

// testEnv bundles the fakes behind a ready-to-use service.
type testEnv struct {
	repo     *memRepo
	products *memProducts
	txm      *memTxManager
	svc      *Service

	tenantID id.ID
}

func newTestEnv(cfg Config) *testEnv {
	repo := newMemRepo()
	products := newMemProducts()
	txm := &memTxManager{repo: repo}
	return &testEnv{
		repo:     repo,
		products: products,
		txm:      txm,
		svc:      NewService(repo, products, txm, cfg),
		tenantID: id.New(),
	}
}

func (env *testEnv) addTrackedProduct() *entity.Product {
	p := &entity.Product{
		ID:         id.New(),
		TenantID:   env.tenantID,
		Code:       "WIDGET",
		Name:       "Widget",
		Type:       entity.ProductTypeGoods,
		TrackStock: true,
	}
	env.products.add(p)
	return p
}

func (env *testEnv) addServiceProduct() *entity.Product {
	p := &entity.Product{
		ID:       id.New(),
		TenantID: env.tenantID,
		Code:     "SVC",
		Name:     "Installation",
		Type:     entity.ProductTypeService,
	}
	env.products.add(p)
	return p
}
