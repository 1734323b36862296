//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.UserDiscountUsage{},
		&models.DiscountCode{},
		&models.FlashSale{},
		&models.Product{},
		&models.Store{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresFlashSaleReserveUnderContention(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewFlashSaleRepository(db)
	now := time.Now().UTC()

	store := createTestStore(t, db, constants.StoreStatusActive)
	product := createTestProduct(t, db, store.ID, true)
	sale := createTestFlashSale(t, db, product.ID, 5, 0, now.Add(-time.Hour), now.Add(time.Hour))

	var (
		wg      sync.WaitGroup
		success int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.Reserve(sale.ID, 1, now)
			if err != nil {
				t.Errorf("reserve failed: %v", err)
				return
			}
			atomic.AddInt64(&success, affected)
		}()
	}
	wg.Wait()

	if success != 5 {
		t.Fatalf("successful reservations want 5 got %d", success)
	}
	got, err := repo.GetByID(sale.ID)
	if err != nil || got == nil {
		t.Fatalf("reload flash sale failed: %v", err)
	}
	if got.Consumed != got.Capacity {
		t.Fatalf("consumed want %d got %d", got.Capacity, got.Consumed)
	}
}

func TestPostgresDiscountCodeConsumeUnderContention(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewDiscountCodeRepository(db)

	store := createTestStore(t, db, constants.StoreStatusActive)
	code := createTestDiscountCode(t, db, store.ID, "PGRUSH", func(d *models.DiscountCode) { d.Quantity = 3 })

	var (
		wg      sync.WaitGroup
		success int64
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.ConsumeOne(code.ID)
			if err != nil {
				t.Errorf("consume failed: %v", err)
				return
			}
			atomic.AddInt64(&success, affected)
		}()
	}
	wg.Wait()

	if success != 3 {
		t.Fatalf("successful consumes want 3 got %d", success)
	}
}

func TestPostgresDiscountCodeListKeywordAndProduct(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewDiscountCodeRepository(db)

	store := createTestStore(t, db, constants.StoreStatusActive)
	createTestDiscountCode(t, db, store.ID, "SUMMER10", func(d *models.DiscountCode) {
		d.Name = "Summer Sale"
		d.AppliesTo = constants.DiscountAppliesToProducts
		d.ProductIDs = models.UintArray{3, 15}
	})
	createTestDiscountCode(t, db, store.ID, "WINTER5", func(d *models.DiscountCode) {
		d.Name = "Winter"
	})

	rows, total, err := repo.List(DiscountCodeListFilter{StoreID: store.ID, Keyword: "summer", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list by keyword failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Code != "SUMMER10" {
		t.Fatalf("case-insensitive keyword should match SUMMER10 only, total=%d rows=%+v", total, rows)
	}

	rows, total, err = repo.List(DiscountCodeListFilter{StoreID: store.ID, ProductID: 15, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list by product failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Code != "SUMMER10" {
		t.Fatalf("product filter should match SUMMER10 only, total=%d", total)
	}

	_, total, err = repo.List(DiscountCodeListFilter{StoreID: store.ID, ProductID: 5, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list by missing product failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("product 5 must not match [3,15], total=%d", total)
	}
}
