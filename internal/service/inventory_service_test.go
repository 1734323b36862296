package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestReserveConcurrentSingleUnitHasOneWinner(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	sale := createFlashSale(t, svc.db, product.ID, 15, 1, 0, testNow.Add(-time.Hour), testNow.Add(time.Hour))

	const workers = 100
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		soldOut int
		other   []error
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := svc.inventory.Reserve(context.Background(), sale.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrFlashSaleSoldOut):
				soldOut++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if success != 1 || soldOut != workers-1 || len(other) != 0 {
		t.Fatalf("want 1 success and %d sold out, got success=%d soldOut=%d other=%v", workers-1, success, soldOut, other)
	}
	if got := reloadFlashSale(t, svc.db, sale.ID).Consumed; got != 1 {
		t.Fatalf("consumed should equal capacity, got %d", got)
	}
}

func TestReserveWindowBoundary(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	sale := createFlashSale(t, svc.db, product.ID, 15, 10, 0, testNow.Add(-time.Hour), testNow)

	if err := svc.inventory.Reserve(context.Background(), sale.ID, 1); err != nil {
		t.Fatalf("reserve at end time should succeed: %v", err)
	}

	svc.inventory.SetClock(fixedClock(testNow.Add(time.Millisecond)))
	err := svc.inventory.Reserve(context.Background(), sale.ID, 1)
	if !errors.Is(err, ErrFlashSaleExpired) {
		t.Fatalf("reserve after end should be expired, got %v", err)
	}
	if code := ErrorCode(err); code != "EXPIRED" {
		t.Fatalf("unexpected error code: %s", code)
	}
	if got := reloadFlashSale(t, svc.db, sale.ID).Consumed; got != 1 {
		t.Fatalf("expired reservation must not consume, got %d", got)
	}
}

func TestReserveRejections(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	sale := createFlashSale(t, svc.db, product.ID, 15, 3, 2, testNow.Add(-time.Hour), testNow.Add(time.Hour))
	upcoming := createFlashSale(t, svc.db, product.ID, 15, 3, 0, testNow.Add(2*time.Hour), testNow.Add(3*time.Hour))
	ctx := context.Background()

	if err := svc.inventory.Reserve(ctx, sale.ID, 2); !errors.Is(err, ErrFlashSaleSoldOut) {
		t.Fatalf("over capacity should be sold out, got %v", err)
	}
	if err := svc.inventory.Reserve(ctx, 9999, 1); !errors.Is(err, ErrFlashSaleNotFound) {
		t.Fatalf("missing sale should be not found, got %v", err)
	}
	if err := svc.inventory.Reserve(ctx, upcoming.ID, 1); !errors.Is(err, ErrFlashSaleExpired) {
		t.Fatalf("not started sale should be expired, got %v", err)
	}
	if err := svc.inventory.Reserve(ctx, sale.ID, 0); !errors.Is(err, ErrReserveUnitsInvalid) {
		t.Fatalf("zero units should be invalid, got %v", err)
	}
	if err := svc.inventory.Reserve(ctx, sale.ID, 1); err != nil {
		t.Fatalf("last unit should be reservable: %v", err)
	}
	if got := reloadFlashSale(t, svc.db, sale.ID).Consumed; got != 3 {
		t.Fatalf("consumed should be 3, got %d", got)
	}
}

func TestReserveCanceledContext(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	sale := createFlashSale(t, svc.db, product.ID, 15, 3, 0, testNow.Add(-time.Hour), testNow.Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.inventory.Reserve(ctx, sale.ID, 1); !errors.Is(err, ErrReserveTimeout) {
		t.Fatalf("canceled reservation should time out, got %v", err)
	}
	if got := reloadFlashSale(t, svc.db, sale.ID).Consumed; got != 0 {
		t.Fatalf("canceled reservation must not consume, got %d", got)
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	sale := createFlashSale(t, svc.db, product.ID, 15, 5, 2, testNow.Add(-time.Hour), testNow.Add(time.Hour))
	ctx := context.Background()

	if err := svc.inventory.Release(ctx, sale.ID, 5); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if got := reloadFlashSale(t, svc.db, sale.ID).Consumed; got != 0 {
		t.Fatalf("release should floor at zero, got %d", got)
	}
	if err := svc.inventory.Release(ctx, 9999, 1); !errors.Is(err, ErrFlashSaleNotFound) {
		t.Fatalf("release missing sale should be not found, got %v", err)
	}
}

func TestReserveInvalidatesCachedView(t *testing.T) {
	svc := newTestServices(t, testNow)
	views := &recordingViews{}
	svc.inventory.SetViewInvalidator(views)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	sale := createFlashSale(t, svc.db, product.ID, 15, 1, 0, testNow.Add(-time.Hour), testNow.Add(time.Hour))

	if err := svc.inventory.Reserve(context.Background(), sale.ID, 1); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	got := views.ProductIDs()
	if len(got) != 1 || got[0] != product.ID {
		t.Fatalf("want view of product %d invalidated, got %v", product.ID, got)
	}

	if err := svc.inventory.Reserve(context.Background(), sale.ID, 1); !errors.Is(err, ErrFlashSaleSoldOut) {
		t.Fatalf("expected sold out, got %v", err)
	}
	if got := views.ProductIDs(); len(got) != 1 {
		t.Fatalf("failed reserve must not invalidate again, got %v", got)
	}
}
