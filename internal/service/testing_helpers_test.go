package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/notify"
	"github.com/khatmdev/quadramall-promo/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(now time.Time) Clock {
	return func() time.Time { return now }
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
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

type testServices struct {
	db             *gorm.DB
	flashSales     *FlashSaleService
	inventory      *InventoryService
	discounts      *DiscountService
	checkout       *CheckoutService
	flashSaleAdmin *FlashSaleAdminService
	discountAdmin  *DiscountCodeAdminService
	sweeper        *SweeperService
	notifier       *recordingNotifier
}

func newTestServices(t *testing.T, now time.Time) *testServices {
	t.Helper()
	return newTestServicesWithDB(t, setupServiceTestDB(t), now)
}

func newTestServicesWithDB(t *testing.T, db *gorm.DB, now time.Time) *testServices {
	t.Helper()
	flashSaleRepo := repository.NewFlashSaleRepository(db)
	codeRepo := repository.NewDiscountCodeRepository(db)
	usageRepo := repository.NewUserDiscountUsageRepository(db)
	productRepo := repository.NewProductRepository(db)

	clock := fixedClock(now)
	svc := &testServices{
		db:         db,
		flashSales: NewFlashSaleService(flashSaleRepo),
		inventory:  NewInventoryService(flashSaleRepo),
		discounts:  NewDiscountService(codeRepo, usageRepo),
		notifier:   &recordingNotifier{},
	}
	svc.checkout = NewCheckoutService(db, productRepo, flashSaleRepo, codeRepo, usageRepo, svc.discounts)
	svc.flashSaleAdmin = NewFlashSaleAdminService(flashSaleRepo, productRepo, svc.flashSales, svc.inventory)
	svc.discountAdmin = NewDiscountCodeAdminService(codeRepo, productRepo)
	svc.sweeper = NewSweeperService(codeRepo, flashSaleRepo, svc.notifier, nil, SweeperOptions{ExpiringWindow: 72 * time.Hour})

	svc.flashSales.SetClock(clock)
	svc.inventory.SetClock(clock)
	svc.checkout.SetClock(clock)
	svc.flashSaleAdmin.SetClock(clock)
	svc.discountAdmin.SetClock(clock)
	svc.sweeper.SetClock(clock)
	return svc
}

func createStore(t *testing.T, db *gorm.DB) *models.Store {
	t.Helper()
	store := &models.Store{Name: "store", Status: constants.StoreStatusActive}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("create store failed: %v", err)
	}
	return store
}

func createProduct(t *testing.T, db *gorm.DB, storeID uint, price int64) *models.Product {
	t.Helper()
	product := &models.Product{
		StoreID:     storeID,
		Name:        "product",
		PriceAmount: models.NewMoney(price),
		IsActive:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func createFlashSale(t *testing.T, db *gorm.DB, productID uint, pct, capacity, consumed int, start, end time.Time) *models.FlashSale {
	t.Helper()
	sale := &models.FlashSale{
		ProductID:          productID,
		PercentageDiscount: pct,
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

func createDiscountCode(t *testing.T, db *gorm.DB, storeID uint, code string, mutate func(*models.DiscountCode)) *models.DiscountCode {
	t.Helper()
	discount := &models.DiscountCode{
		StoreID:       storeID,
		Code:          code,
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		Quantity:      10,
		AppliesTo:     constants.DiscountAppliesToShop,
		ProductIDs:    models.UintArray{},
		StartDate:     testNow.Add(-24 * time.Hour),
		EndDate:       testNow.Add(24 * time.Hour),
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

func reloadFlashSale(t *testing.T, db *gorm.DB, id uint) *models.FlashSale {
	t.Helper()
	var sale models.FlashSale
	if err := db.First(&sale, id).Error; err != nil {
		t.Fatalf("reload flash sale failed: %v", err)
	}
	return &sale
}

func reloadDiscountCode(t *testing.T, db *gorm.DB, id uint) *models.DiscountCode {
	t.Helper()
	var code models.DiscountCode
	if err := db.First(&code, id).Error; err != nil {
		t.Fatalf("reload discount code failed: %v", err)
	}
	return &code
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []notify.ExpiringItem
	err   error
}

func (n *recordingNotifier) NotifyExpiring(_ context.Context, item notify.ExpiringItem) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.items = append(n.items, item)
	return nil
}

func (n *recordingNotifier) Items() []notify.ExpiringItem {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.ExpiringItem(nil), n.items...)
}

type recordingViews struct {
	mu         sync.Mutex
	productIDs []uint
}

func (v *recordingViews) InvalidateView(_ context.Context, productIDs ...uint) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.productIDs = append(v.productIDs, productIDs...)
}

func (v *recordingViews) ProductIDs() []uint {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]uint(nil), v.productIDs...)
}
