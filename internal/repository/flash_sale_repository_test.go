package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
)

func TestFlashSaleFindActiveAppliesFullPredicate(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewFlashSaleRepository(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	store := createTestStore(t, db, constants.StoreStatusActive)
	bannedStore := createTestStore(t, db, constants.StoreStatusBanned)

	live := createTestProduct(t, db, store.ID, true)
	inactive := createTestProduct(t, db, store.ID, false)
	banned := createTestProduct(t, db, bannedStore.ID, true)
	soldOut := createTestProduct(t, db, store.ID, true)
	future := createTestProduct(t, db, store.ID, true)

	sale := createTestFlashSale(t, db, live.ID, 10, 3, now.Add(-time.Hour), now.Add(time.Hour))
	createTestFlashSale(t, db, inactive.ID, 10, 0, now.Add(-time.Hour), now.Add(time.Hour))
	createTestFlashSale(t, db, banned.ID, 10, 0, now.Add(-time.Hour), now.Add(time.Hour))
	createTestFlashSale(t, db, soldOut.ID, 5, 5, now.Add(-time.Hour), now.Add(time.Hour))
	createTestFlashSale(t, db, future.ID, 5, 0, now.Add(time.Hour), now.Add(2*time.Hour))

	got, err := repo.FindActiveByProduct(live.ID, now)
	if err != nil {
		t.Fatalf("find active failed: %v", err)
	}
	if got == nil || got.ID != sale.ID {
		t.Fatalf("expected active sale %d, got %+v", sale.ID, got)
	}

	for _, productID := range []uint{inactive.ID, banned.ID, soldOut.ID, future.ID, 9999} {
		got, err := repo.FindActiveByProduct(productID, now)
		if err != nil {
			t.Fatalf("find active for product %d failed: %v", productID, err)
		}
		if got != nil {
			t.Fatalf("product %d should have no active sale, got %d", productID, got.ID)
		}
	}

	many, err := repo.FindActiveByProducts([]uint{live.ID, inactive.ID, banned.ID, soldOut.ID, future.ID}, now)
	if err != nil {
		t.Fatalf("find active many failed: %v", err)
	}
	if len(many) != 1 || many[0].ID != sale.ID {
		t.Fatalf("expected only sale %d, got %+v", sale.ID, many)
	}
}

func TestFlashSaleFindActiveSkipsOutOfRangePercentage(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewFlashSaleRepository(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	store := createTestStore(t, db, constants.StoreStatusActive)
	product := createTestProduct(t, db, store.ID, true)
	sale := createTestFlashSale(t, db, product.ID, 10, 0, now.Add(-time.Hour), now.Add(time.Hour))

	for _, pct := range []int{0, 120} {
		if err := db.Model(sale).Update("percentage_discount", pct).Error; err != nil {
			t.Fatalf("update pct failed: %v", err)
		}
		got, err := repo.FindActiveByProduct(product.ID, now)
		if err != nil {
			t.Fatalf("find active failed: %v", err)
		}
		if got != nil {
			t.Fatalf("sale with pct %d should not be active", pct)
		}
	}
}

func TestFlashSaleReserveRespectsCapacityAndWindow(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewFlashSaleRepository(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	store := createTestStore(t, db, constants.StoreStatusActive)
	product := createTestProduct(t, db, store.ID, true)
	sale := createTestFlashSale(t, db, product.ID, 5, 0, now.Add(-time.Hour), now)

	affected, err := repo.Reserve(sale.ID, 3, now.Add(-time.Minute))
	if err != nil || affected != 1 {
		t.Fatalf("reserve 3 want affected=1, got %d err=%v", affected, err)
	}
	affected, err = repo.Reserve(sale.ID, 3, now.Add(-time.Minute))
	if err != nil || affected != 0 {
		t.Fatalf("reserve beyond capacity want affected=0, got %d err=%v", affected, err)
	}
	affected, err = repo.Reserve(sale.ID, 2, now)
	if err != nil || affected != 1 {
		t.Fatalf("reserve at end boundary want affected=1, got %d err=%v", affected, err)
	}
	affected, err = repo.Reserve(sale.ID, 1, now.Add(time.Millisecond))
	if err != nil || affected != 0 {
		t.Fatalf("reserve after end want affected=0, got %d err=%v", affected, err)
	}

	got, err := repo.GetByID(sale.ID)
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if got.Consumed != 5 {
		t.Fatalf("consumed want 5 got %d", got.Consumed)
	}
}

func TestFlashSaleReserveConcurrentNeverOversells(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewFlashSaleRepository(db)
	now := time.Now().UTC()

	store := createTestStore(t, db, constants.StoreStatusActive)
	product := createTestProduct(t, db, store.ID, true)
	sale := createTestFlashSale(t, db, product.ID, 7, 0, now.Add(-time.Hour), now.Add(time.Hour))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.Reserve(sale.ID, 1, now)
			if err != nil {
				t.Errorf("reserve failed: %v", err)
				return
			}
			if affected == 1 {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 7 {
		t.Fatalf("successful reservations want 7 got %d", success)
	}
	got, _ := repo.GetByID(sale.ID)
	if got.Consumed != 7 {
		t.Fatalf("consumed want 7 got %d", got.Consumed)
	}
}

func TestFlashSaleReleaseFloorsAtZero(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewFlashSaleRepository(db)
	now := time.Now().UTC()

	store := createTestStore(t, db, constants.StoreStatusActive)
	product := createTestProduct(t, db, store.ID, true)
	sale := createTestFlashSale(t, db, product.ID, 10, 4, now.Add(-time.Hour), now.Add(time.Hour))

	if affected, err := repo.Release(sale.ID, 3); err != nil || affected != 1 {
		t.Fatalf("release want affected=1, got %d err=%v", affected, err)
	}
	got, _ := repo.GetByID(sale.ID)
	if got.Consumed != 1 {
		t.Fatalf("consumed want 1 got %d", got.Consumed)
	}

	if affected, err := repo.Release(sale.ID, 5); err != nil || affected != 1 {
		t.Fatalf("release past zero want affected=1, got %d err=%v", affected, err)
	}
	got, _ = repo.GetByID(sale.ID)
	if got.Consumed != 0 {
		t.Fatalf("consumed want 0 got %d", got.Consumed)
	}

	if affected, err := repo.Release(9999, 1); err != nil || affected != 0 {
		t.Fatalf("release unknown want affected=0, got %d err=%v", affected, err)
	}
}

func TestFlashSaleHasOverlapAndUpdateSettings(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewFlashSaleRepository(db)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	store := createTestStore(t, db, constants.StoreStatusActive)
	product := createTestProduct(t, db, store.ID, true)
	sale := createTestFlashSale(t, db, product.ID, 10, 6, base, base.Add(2*time.Hour))

	overlap, err := repo.HasOverlap(product.ID, base.Add(time.Hour), base.Add(3*time.Hour), 0)
	if err != nil || !overlap {
		t.Fatalf("expected overlap, got %v err=%v", overlap, err)
	}
	overlap, err = repo.HasOverlap(product.ID, base.Add(time.Hour), base.Add(3*time.Hour), sale.ID)
	if err != nil || overlap {
		t.Fatalf("expected no overlap when excluding self, got %v err=%v", overlap, err)
	}
	overlap, err = repo.HasOverlap(product.ID, base.Add(3*time.Hour), base.Add(4*time.Hour), 0)
	if err != nil || overlap {
		t.Fatalf("expected no overlap for later window, got %v err=%v", overlap, err)
	}

	sale.Capacity = 5
	affected, err := repo.UpdateSettings(sale)
	if err != nil || affected != 0 {
		t.Fatalf("shrinking capacity below consumed must not update, got %d err=%v", affected, err)
	}
	sale.Capacity = 8
	sale.PercentageDiscount = 30
	affected, err = repo.UpdateSettings(sale)
	if err != nil || affected != 1 {
		t.Fatalf("update settings want affected=1, got %d err=%v", affected, err)
	}
	got, _ := repo.GetByID(sale.ID)
	if got.Capacity != 8 || got.PercentageDiscount != 30 || got.Consumed != 6 {
		t.Fatalf("unexpected sale after update: %+v", got)
	}
}

func TestFlashSaleListEndingBetween(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewFlashSaleRepository(db)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	store := createTestStore(t, db, constants.StoreStatusActive)
	p1 := createTestProduct(t, db, store.ID, true)
	p2 := createTestProduct(t, db, store.ID, true)
	p3 := createTestProduct(t, db, store.ID, true)

	soon := createTestFlashSale(t, db, p1.ID, 10, 2, now.Add(-time.Hour), now.Add(24*time.Hour))
	createTestFlashSale(t, db, p2.ID, 10, 10, now.Add(-time.Hour), now.Add(24*time.Hour))
	createTestFlashSale(t, db, p3.ID, 10, 0, now.Add(-time.Hour), now.Add(10*24*time.Hour))

	sales, err := repo.ListEndingBetween(now, now.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("list ending failed: %v", err)
	}
	if len(sales) != 1 || sales[0].ID != soon.ID {
		t.Fatalf("expected only sale %d, got %+v", soon.ID, sales)
	}
}
