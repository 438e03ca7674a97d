// Package main seeds the database with demo catalog data and opening stock.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stockbook/internal/core/config"
	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/postgres/ledger_repo"
	"stockbook/internal/infrastructure/storage/postgres/product_repo"
	"stockbook/internal/infrastructure/telemetry"
	"stockbook/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Fixed demo identifiers so the seed is idempotent per database.
var (
	demoTenantID    = id.MustParse("018f0000-0000-7000-8000-000000000001")
	demoUserID      = id.MustParse("018f0000-0000-7000-8000-000000000002")
	demoWarehouseID = id.MustParse("018f0000-0000-7000-8000-000000000010")
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	ctx = appctx.WithActor(ctx, &appctx.ActorContext{UserID: demoUserID, TenantID: demoTenantID})

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Postgres.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txm := postgres.NewTxManager(pool)
	products := product_repo.NewProductRepo(txm)
	entries := ledger_repo.NewLedgerRepo(txm)
	svc := ledger.NewService(entries, products, txm, ledger.Config{
		MaxRetries:         cfg.Ledger.MaxRetries,
		EnforceNonNegative: cfg.Ledger.EnforceNonNegative,
	})
	if cfg.Metrics.Enabled {
		svc = svc.WithMetrics(telemetry.NewLedgerMetrics(prometheus.DefaultRegisterer))
	}

	seeded, err := seedProducts(ctx, products)
	if err != nil {
		log.Fatalw("failed to seed products", "error", err)
	}

	if err := seedOpeningStock(ctx, svc, seeded); err != nil {
		log.Fatalw("failed to seed opening stock", "error", err)
	}

	log.Infow("seed complete", "tenant_id", demoTenantID, "products", len(seeded))
}

func loadConfig() (config.Config, error) {
	if path := os.Getenv("STOCKBOOK_CONFIG"); path != "" {
		return config.Load(path)
	}
	return config.Default()
}

type demoProduct struct {
	product entity.Product
	opening string // opening quantity, empty to skip
	cost    string
}

func demoCatalog(now time.Time) []demoProduct {
	reorder := types.MustQuantity("20")
	return []demoProduct{
		{
			product: entity.Product{
				ID:           id.New(),
				TenantID:     demoTenantID,
				Code:         "WIDGET-STD",
				Name:         "Standard Widget",
				Type:         entity.ProductTypeGoods,
				TrackStock:   true,
				ReorderLevel: &reorder,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
			opening: "100",
			cost:    "50.00",
		},
		{
			product: entity.Product{
				ID:         id.New(),
				TenantID:   demoTenantID,
				Code:       "RESIN-5KG",
				Name:       "Casting Resin 5kg",
				Type:       entity.ProductTypeMaterial,
				TrackStock: true,
				TrackBatch: true,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
			opening: "40",
			cost:    "12.50",
		},
		{
			product: entity.Product{
				ID:         id.New(),
				TenantID:   demoTenantID,
				Code:       "SVC-ASSEMBLY",
				Name:       "Assembly Service",
				Type:       entity.ProductTypeService,
				TrackStock: false,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		},
	}
}

func seedProducts(ctx context.Context, repo *product_repo.ProductRepo) ([]demoProduct, error) {
	catalog := demoCatalog(time.Now().UTC())
	seeded := make([]demoProduct, 0, len(catalog))

	for _, d := range catalog {
		existing, err := repo.GetByCode(ctx, demoTenantID, d.product.Code)
		if err == nil {
			logger.Info(ctx, "product already seeded", "code", existing.Code)
			continue
		}
		if err := repo.Create(ctx, &d.product); err != nil {
			return nil, fmt.Errorf("create product %s: %w", d.product.Code, err)
		}
		logger.Info(ctx, "product seeded", "code", d.product.Code, "id", d.product.ID)
		seeded = append(seeded, d)
	}

	return seeded, nil
}

func seedOpeningStock(ctx context.Context, svc *ledger.Service, seeded []demoProduct) error {
	refType := entity.ReferenceInitialStock

	for _, d := range seeded {
		if d.opening == "" {
			continue
		}

		warehouseID := demoWarehouseID
		refID := id.New()
		cost := types.MustMoney(d.cost)
		entry, err := svc.RecordMovement(ctx, ledger.MovementRequest{
			TenantID:      demoTenantID,
			ProductID:     d.product.ID,
			WarehouseID:   &warehouseID,
			MovementType:  entity.MovementAdjustmentIn,
			Quantity:      types.MustQuantity(d.opening),
			UnitCost:      &cost,
			ReferenceType: &refType,
			ReferenceID:   &refID,
			Notes:         "opening stock",
		})
		if err != nil {
			return fmt.Errorf("opening stock for %s: %w", d.product.Code, err)
		}
		logger.Info(ctx, "opening stock recorded",
			"code", d.product.Code,
			"entry_id", entry.ID,
			"balance", entry.RunningBalance,
		)
	}

	return nil
}
