package ledger

import (
	"context"
	"fmt"
	"time"

	"stockbook/internal/core/apperror"
	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/pkg/logger"
)

// Metrics receives business events from the service. Implemented by
// telemetry.LedgerMetrics; a nil implementation is a no-op.
type Metrics interface {
	ObserveAppend(movementType string, took time.Duration)
	ObserveRetry()
	ObserveConflict()
	ObserveTransfer()
}

// Config controls service policy.
type Config struct {
	// MaxRetries bounds internal retries of transient concurrency
	// conflicts before the failure is surfaced to the caller.
	MaxRetries int

	// EnforceNonNegative rejects decrease movements that would drive a
	// scope's balance below zero. Off by default: oversell is a valid,
	// detectable state, and negative balances are reported rather than
	// prevented.
	EnforceNonNegative bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:         3,
		EnforceNonNegative: false,
	}
}

// Service is the stock movement service: the single write path into the
// ledger for all callers (purchase receipt, sale confirmation, manual
// adjustment, transfers, production, reversals).
type Service struct {
	repo      Repository
	products  ProductReader
	txManager tx.Manager
	cfg       Config
	metrics   Metrics
}

// NewService creates a stock movement service.
func NewService(repo Repository, products ProductReader, txManager tx.Manager, cfg Config) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	return &Service{
		repo:      repo,
		products:  products,
		txManager: txManager,
		cfg:       cfg,
	}
}

// WithMetrics attaches business metrics to the service.
func (s *Service) WithMetrics(m Metrics) *Service {
	s.metrics = m
	return s
}

// MovementRequest describes a single stock movement. Quantity is an
// unsigned magnitude; the sign is derived from MovementType.
type MovementRequest struct {
	TenantID     id.ID
	ProductID    id.ID
	WarehouseID  *id.ID
	MovementType entity.MovementType
	Quantity     types.Quantity
	UnitCost     *types.Money

	BatchNumber       *string
	LotNumber         *string
	SerialNumber      *string
	ManufacturingDate *time.Time
	ExpiryDate        *time.Time

	ReferenceType *entity.ReferenceType
	ReferenceID   *id.ID

	CreatedBy       *id.ID
	Notes           string
	Metadata        entity.Attributes
	TransactionDate *time.Time
}

// TransferRequest describes a two-leg warehouse transfer.
type TransferRequest struct {
	TenantID        id.ID
	ProductID       id.ID
	FromWarehouseID id.ID
	ToWarehouseID   id.ID
	Quantity        types.Quantity
	UnitCost        *types.Money

	BatchNumber *string
	LotNumber   *string
	ExpiryDate  *time.Time

	// TransferID links both legs; generated when absent.
	TransferID *id.ID

	CreatedBy       *id.ID
	Notes           string
	TransactionDate *time.Time
}

// TransferResult holds the two linked legs of a completed transfer.
type TransferResult struct {
	TransferID id.ID
	Out        *entity.LedgerEntry
	In         *entity.LedgerEntry
}

// RecordMovement validates the request and appends one ledger entry.
// Transient concurrency conflicts are retried up to Config.MaxRetries.
func (s *Service) RecordMovement(ctx context.Context, req MovementRequest) (*entity.LedgerEntry, error) {
	start := time.Now()

	e, err := s.buildEntry(ctx, req)
	if err != nil {
		return nil, err
	}

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.checkStockPolicy(ctx, e); err != nil {
				return err
			}
			return s.repo.Append(ctx, e)
		})
	})
	if err != nil {
		return nil, err
	}

	s.metricsObserveAppend(e.MovementType, time.Since(start))
	logger.Info(ctx, "stock movement recorded",
		"entry_id", e.ID,
		"movement_type", e.MovementType,
		"product_id", e.ProductID,
		"quantity", e.Quantity,
		"running_balance", e.RunningBalance,
	)
	return e, nil
}

// RecordTransfer moves stock between two warehouses as exactly two linked
// entries committed in one transaction. If either leg fails validation,
// neither is persisted.
func (s *Service) RecordTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if id.IsNil(req.FromWarehouseID) || id.IsNil(req.ToWarehouseID) {
		return nil, apperror.NewValidation("both source and destination warehouses are required")
	}
	if req.FromWarehouseID == req.ToWarehouseID {
		return nil, apperror.NewInvalidOperation("source and destination warehouse must differ").
			WithDetail("warehouse_id", req.FromWarehouseID)
	}

	transferID := id.New()
	if req.TransferID != nil && !id.IsNil(*req.TransferID) {
		transferID = *req.TransferID
	}
	refType := entity.ReferenceTransfer

	from := req.FromWarehouseID
	to := req.ToWarehouseID
	out, err := s.buildEntry(ctx, MovementRequest{
		TenantID:        req.TenantID,
		ProductID:       req.ProductID,
		WarehouseID:     &from,
		MovementType:    entity.MovementTransferOut,
		Quantity:        req.Quantity,
		UnitCost:        req.UnitCost,
		BatchNumber:     req.BatchNumber,
		LotNumber:       req.LotNumber,
		ExpiryDate:      req.ExpiryDate,
		ReferenceType:   &refType,
		ReferenceID:     &transferID,
		CreatedBy:       req.CreatedBy,
		Notes:           req.Notes,
		TransactionDate: req.TransactionDate,
	})
	if err != nil {
		return nil, err
	}
	in, err := s.buildEntry(ctx, MovementRequest{
		TenantID:        req.TenantID,
		ProductID:       req.ProductID,
		WarehouseID:     &to,
		MovementType:    entity.MovementTransferIn,
		Quantity:        req.Quantity,
		UnitCost:        req.UnitCost,
		BatchNumber:     req.BatchNumber,
		LotNumber:       req.LotNumber,
		ExpiryDate:      req.ExpiryDate,
		ReferenceType:   &refType,
		ReferenceID:     &transferID,
		CreatedBy:       req.CreatedBy,
		Notes:           req.Notes,
		TransactionDate: req.TransactionDate,
	})
	if err != nil {
		return nil, err
	}

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.checkStockPolicy(ctx, out); err != nil {
				return err
			}
			if err := s.repo.Append(ctx, out); err != nil {
				return fmt.Errorf("append transfer-out leg: %w", err)
			}
			if err := s.repo.Append(ctx, in); err != nil {
				return fmt.Errorf("append transfer-in leg: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveTransfer()
	}
	logger.Info(ctx, "warehouse transfer recorded",
		"transfer_id", transferID,
		"product_id", req.ProductID,
		"from_warehouse", req.FromWarehouseID,
		"to_warehouse", req.ToWarehouseID,
		"quantity", req.Quantity,
	)
	return &TransferResult{TransferID: transferID, Out: out, In: in}, nil
}

// RecordReversal cancels a prior entry's effect with a new entry of the
// opposite sign referencing the original. The original is never touched.
func (s *Service) RecordReversal(ctx context.Context, tenantID id.ID, entryID int64, notes string) (*entity.LedgerEntry, error) {
	orig, err := s.repo.GetByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if orig.MovementType.IsReversal() {
		return nil, apperror.NewInvalidOperation("reversal entries cannot be reversed").
			WithDetail("entry_id", entryID)
	}

	refType := entity.ReferenceLedgerEntry
	refID := orig.EntryUID

	req := MovementRequest{
		TenantID:          orig.TenantID,
		ProductID:         orig.ProductID,
		WarehouseID:       orig.WarehouseID,
		MovementType:      orig.MovementType.ReversalOf(),
		Quantity:          orig.Magnitude(),
		UnitCost:          orig.UnitCost,
		BatchNumber:       orig.BatchNumber,
		LotNumber:         orig.LotNumber,
		SerialNumber:      orig.SerialNumber,
		ManufacturingDate: orig.ManufacturingDate,
		ExpiryDate:        orig.ExpiryDate,
		ReferenceType:     &refType,
		ReferenceID:       &refID,
		Notes:             notes,
		Metadata:          entity.Attributes{"reversed_entry_id": orig.ID},
	}
	return s.RecordMovement(ctx, req)
}

// buildEntry validates a request against the product catalog and constructs
// an unpersisted entry. All failures happen here, before any persistence.
func (s *Service) buildEntry(ctx context.Context, req MovementRequest) (*entity.LedgerEntry, error) {
	product, err := s.products.GetProduct(ctx, req.TenantID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.RequiresStockTracking() {
		return nil, apperror.NewInvalidOperation("product does not require stock tracking").
			WithDetail("product_id", req.ProductID).
			WithDetail("product_type", string(product.Type))
	}

	e, err := entity.NewLedgerEntry(
		req.TenantID, req.ProductID, req.WarehouseID,
		req.MovementType, req.Quantity, req.UnitCost,
	)
	if err != nil {
		return nil, err
	}

	e.BatchNumber = req.BatchNumber
	e.LotNumber = req.LotNumber
	e.SerialNumber = req.SerialNumber
	e.WithDates(req.ManufacturingDate, req.ExpiryDate)
	if req.ReferenceType != nil {
		if !req.ReferenceType.IsValid() {
			return nil, apperror.NewValidation("unknown reference type").
				WithDetail("reference_type", req.ReferenceType.String())
		}
		if req.ReferenceID == nil || id.IsNil(*req.ReferenceID) {
			return nil, apperror.NewValidation("reference id is required when reference type is set")
		}
		e.WithReference(*req.ReferenceType, *req.ReferenceID)
	}
	if req.CreatedBy != nil {
		e.WithCreatedBy(*req.CreatedBy)
	} else {
		e.WithCreatedBy(appctx.GetUserID(ctx))
	}
	e.WithNotes(req.Notes)
	e.WithMetadata(req.Metadata)
	if req.TransactionDate != nil {
		e.WithTransactionDate(*req.TransactionDate)
	}
	return e, nil
}

// checkStockPolicy applies the optional non-negative balance policy to a
// decrease entry. Runs inside the append transaction so the locked balance
// cannot change before the insert commits.
func (s *Service) checkStockPolicy(ctx context.Context, e *entity.LedgerEntry) error {
	if !s.cfg.EnforceNonNegative || !e.MovementType.IsDecrease() {
		return nil
	}
	available, err := s.repo.ScopeBalanceForUpdate(ctx, e.Scope())
	if err != nil {
		return fmt.Errorf("read balance for stock check: %w", err)
	}
	needed := e.Magnitude()
	if available.LessThan(needed) {
		return apperror.NewInsufficientStock(e.ProductID.String(), needed.String(), available.String())
	}
	return nil
}

// withRetry runs fn, retrying bounded times on transient conflicts.
func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if s.metrics != nil {
				s.metrics.ObserveRetry()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}
		err = fn(ctx)
		if err == nil || !apperror.IsConcurrencyConflict(err) {
			return err
		}
		logger.Warn(ctx, "ledger append hit concurrency conflict, retrying",
			"attempt", attempt+1, "max", s.cfg.MaxRetries)
	}
	if s.metrics != nil {
		s.metrics.ObserveConflict()
	}
	return err
}

func (s *Service) metricsObserveAppend(t entity.MovementType, took time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveAppend(t.String(), took)
	}
}
