package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func createTestStore(t *testing.T, db *gorm.DB, status string) *models.Store {
	t.Helper()
	store := &models.Store{Name: "store", Status: status}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("create store failed: %v", err)
	}
	return store
}

func createTestProduct(t *testing.T, db *gorm.DB, storeID uint, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		StoreID:     storeID,
		Name:        "product",
		PriceAmount: models.NewMoney(100000),
		IsActive:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if !active {
		if err := db.Model(product).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate product failed: %v", err)
		}
	}
	return product
}

func createTestFlashSale(t *testing.T, db *gorm.DB, productID uint, capacity, consumed int, start, end time.Time) *models.FlashSale {
	t.Helper()
	sale := &models.FlashSale{
		ProductID:          productID,
		PercentageDiscount: 15,
		Capacity:           capacity,
		Consumed:           consumed,
		StartTime:          start.UTC(),
		EndTime:            end.UTC(),
	}
	if err := db.Create(sale).Error; err != nil {
		t.Fatalf("create flash sale failed: %v", err)
	}
	return sale
}

func createTestDiscountCode(t *testing.T, db *gorm.DB, storeID uint, code string, mutate func(*models.DiscountCode)) *models.DiscountCode {
	t.Helper()
	now := time.Now().UTC()
	discount := &models.DiscountCode{
		StoreID:       storeID,
		Code:          code,
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		Quantity:      10,
		AppliesTo:     constants.DiscountAppliesToShop,
		ProductIDs:    models.UintArray{},
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(24 * time.Hour),
		IsActive:      true,
	}
	if mutate != nil {
		mutate(discount)
	}
	isActive := discount.IsActive
	if err := db.Create(discount).Error; err != nil {
		t.Fatalf("create discount code failed: %v", err)
	}
	if !isActive {
		if err := db.Model(discount).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate discount code failed: %v", err)
		}
	}
	return discount
}
