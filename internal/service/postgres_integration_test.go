//go:build integration
// +build integration

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/khatmdev/quadramall-promo/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresServiceDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresServiceDB(t *testing.T) *gorm.DB {
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

func TestPostgresConcurrentConfirmHonorsPerCustomerLimit(t *testing.T) {
	svc := newTestServicesWithDB(t, setupPostgresServiceDB(t), testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 50000)
	code := createDiscountCode(t, svc.db, store.ID, "ONEPER", func(d *models.DiscountCode) {
		d.Quantity = 20
		d.UsagePerCustomer = 1
	})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.checkout.Confirm(context.Background(), CheckoutRequest{
				UserID:  42,
				OrderID: fmt.Sprintf("PG-ORD-%d", i),
				Lines:   []CheckoutLine{{ProductID: product.ID, Quantity: 1}},
				Codes:   map[uint]string{store.ID: "ONEPER"},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrDiscountUsageLimitExceeded):
				rejected++
			default:
				t.Errorf("unexpected confirm error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if success != 1 || rejected != 9 {
		t.Fatalf("want 1 success and 9 rejections, got success=%d rejected=%d", success, rejected)
	}
	if got := reloadDiscountCode(t, svc.db, code.ID).UsedCount; got != 1 {
		t.Fatalf("used count want 1 got %d", got)
	}
	var usages int64
	if err := svc.db.Model(&models.UserDiscountUsage{}).Where("user_id = ? AND discount_id = ?", 42, code.ID).Count(&usages).Error; err != nil {
		t.Fatalf("count usages failed: %v", err)
	}
	if usages != 1 {
		t.Fatalf("usage rows want 1 got %d", usages)
	}
}
