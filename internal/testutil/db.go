// Package testutil holds fixtures shared by repository and service tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AllModels lists every table the services touch, in dependency order.
var AllModels = []any{
	&models.Product{},
	&models.StockAdjustment{},
	&models.Client{},
	&models.Deal{},
	&models.DealTier{},
	&models.Order{},
	&models.OrderItem{},
	&models.OrderStatusHistory{},
	&models.Payment{},
	&models.Return{},
	&models.Alert{},
	&models.OutboxEvent{},
	&models.OutboxDLQ{},
}

// NewDB opens a private shared-cache in-memory SQLite database and migrates
// every model into it.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(AllModels...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// ProductOpts tweaks the seeded product.
type ProductOpts struct {
	SKU       string
	Price     int
	Total     int
	Reserved  int
	Threshold int
	Inactive  bool
}

// SeedProduct inserts a product for the tenant.
func SeedProduct(t *testing.T, conn *gorm.DB, tenantID uuid.UUID, opts ProductOpts) *models.Product {
	t.Helper()
	if opts.SKU == "" {
		opts.SKU = "SKU-" + uuid.NewString()[:8]
	}
	if opts.Price == 0 {
		opts.Price = 1000
	}
	product := &models.Product{
		TenantID:          tenantID,
		SKU:               opts.SKU,
		Name:              "Product " + opts.SKU,
		Condition:         enums.ProductConditionNew,
		PriceCents:        opts.Price,
		TotalStock:        opts.Total,
		ReservedStock:     opts.Reserved,
		LowStockThreshold: opts.Threshold,
		IsActive:          true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if opts.Inactive {
		if err := conn.Model(product).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate product: %v", err)
		}
		product.IsActive = false
	}
	return product
}

// SeedClient inserts a client for the tenant.
func SeedClient(t *testing.T, conn *gorm.DB, tenantID uuid.UUID) *models.Client {
	t.Helper()
	client := &models.Client{TenantID: tenantID, Name: "Client " + uuid.NewString()[:6]}
	if err := conn.Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

// ReloadProduct reads the current counters of a product.
func ReloadProduct(t *testing.T, conn *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product
}
