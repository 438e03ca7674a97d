// Package product_repo provides the PostgreSQL product catalog store.
package product_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

// productColumns follows the field order of entity.Product; Create relies on
// that pairing for its positional values.
var productColumns = postgres.ExtractDBColumns[entity.Product]()

// ProductRepo implements ledger.ProductReader plus the catalog writes the
// seeding and admin paths need.
type ProductRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetProduct retrieves a product within a tenant. Products belonging to
// other tenants are indistinguishable from missing ones.
func (r *ProductRepo) GetProduct(ctx context.Context, tenantID, productID id.ID) (*entity.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p entity.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// GetByCode retrieves a product by its tenant-unique code.
func (r *ProductRepo) GetByCode(ctx context.Context, tenantID id.ID, code string) (*entity.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "code": code}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p entity.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", code)
		}
		return nil, fmt.Errorf("get product by code: %w", err)
	}

	return &p, nil
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	q := r.builder.Insert(productsTable).
		Columns(productColumns...).
		Values(
			p.ID, p.TenantID, p.Code, p.Name, p.Type,
			p.TrackStock, p.TrackBatch, p.TrackSerial,
			p.ReorderLevel, p.MinStock, p.MaxStock,
			p.CreatedAt, p.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert product: %w", err))
	}

	return nil
}

// Update rewrites the mutable product fields. The catalog, unlike the
// ledger, is not append-only.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	q := r.builder.Update(productsTable).
		Set("code", p.Code).
		Set("name", p.Name).
		Set("type", p.Type).
		Set("track_stock", p.TrackStock).
		Set("track_batch", p.TrackBatch).
		Set("track_serial", p.TrackSerial).
		Set("reorder_level", p.ReorderLevel).
		Set("min_stock", p.MinStock).
		Set("max_stock", p.MaxStock).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"tenant_id": p.TenantID, "id": p.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update product: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", p.ID)
	}

	return nil
}

// List retrieves all products for a tenant ordered by code.
func (r *ProductRepo) List(ctx context.Context, tenantID id.ID) ([]entity.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []entity.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &products, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	return products, nil
}

// Ensure interface compliance.
var _ ledger.ProductReader = (*ProductRepo)(nil)
