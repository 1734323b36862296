package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/models"
)

func TestDeactivatePassIsIdempotent(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	expired := createDiscountCode(t, svc.db, store.ID, "OLD", func(d *models.DiscountCode) {
		d.StartDate = testNow.Add(-72 * time.Hour)
		d.EndDate = testNow.Add(-time.Hour)
	})
	live := createDiscountCode(t, svc.db, store.ID, "LIVE", nil)

	first, err := svc.sweeper.RunDeactivatePass(context.Background())
	if err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if first.Deactivated != 1 {
		t.Fatalf("first pass should deactivate one code, got %d", first.Deactivated)
	}
	second, err := svc.sweeper.RunDeactivatePass(context.Background())
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if second.Deactivated != 0 {
		t.Fatalf("second pass should be a no-op, got %d", second.Deactivated)
	}
	if reloadDiscountCode(t, svc.db, expired.ID).IsActive {
		t.Fatalf("expired code should be inactive")
	}
	if !reloadDiscountCode(t, svc.db, live.ID).IsActive {
		t.Fatalf("live code should stay active")
	}

	// 停用后再校验仍报告过期
	_, err = svc.discounts.Validate(context.Background(), "OLD", DiscountContext{
		StoreID: store.ID,
		Lines:   []PricedLine{pricedLine(store.ID, 1, 100000)},
	})
	if !errors.Is(err, ErrDiscountExpired) {
		t.Fatalf("deactivated expired code should report expired, got %v", err)
	}
}

func TestExpiringPassNotifiesCodesAndFlashSales(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)

	soon := createDiscountCode(t, svc.db, store.ID, "SOON", func(d *models.DiscountCode) {
		d.EndDate = testNow.Add(10 * time.Hour)
	})
	createDiscountCode(t, svc.db, store.ID, "LATER", func(d *models.DiscountCode) {
		d.EndDate = testNow.Add(30 * 24 * time.Hour)
	})
	createDiscountCode(t, svc.db, store.ID, "DISABLED", func(d *models.DiscountCode) {
		d.EndDate = testNow.Add(5 * time.Hour)
		d.IsActive = false
	})
	sale := createFlashSale(t, svc.db, product.ID, 10, 5, 1, testNow.Add(-time.Hour), testNow.Add(2*time.Hour))
	other := createProduct(t, svc.db, store.ID, 100000)
	createFlashSale(t, svc.db, other.ID, 10, 5, 5, testNow.Add(-time.Hour), testNow.Add(2*time.Hour))

	report, err := svc.sweeper.RunExpiringPass(context.Background())
	if err != nil {
		t.Fatalf("expiring pass failed: %v", err)
	}
	if report.DiscountCodes != 1 || report.FlashSales != 1 || report.Notified != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	items := svc.notifier.Items()
	if len(items) != 2 {
		t.Fatalf("expected two notifications, got %d", len(items))
	}
	if items[0].Kind != constants.ExpiringKindDiscountCode || items[0].ID != soon.ID || items[0].Code != "SOON" {
		t.Fatalf("unexpected code notification: %+v", items[0])
	}
	if items[1].Kind != constants.ExpiringKindFlashSale || items[1].ID != sale.ID || items[1].Remaining != 4 {
		t.Fatalf("unexpected flash sale notification: %+v", items[1])
	}
}

func TestExpiringPassCountsNotifierFailures(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	createDiscountCode(t, svc.db, store.ID, "SOON", func(d *models.DiscountCode) {
		d.EndDate = testNow.Add(time.Hour)
	})
	svc.notifier.err = errors.New("webhook down")

	report, err := svc.sweeper.RunExpiringPass(context.Background())
	if err != nil {
		t.Fatalf("notifier failures should not fail the pass: %v", err)
	}
	if report.Failed != 1 || report.Notified != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSweeperRunUnknownPass(t *testing.T) {
	svc := newTestServices(t, testNow)
	if _, err := svc.sweeper.Run(context.Background(), "bogus"); err == nil {
		t.Fatalf("unknown pass should fail")
	}
	report, err := svc.sweeper.Run(context.Background(), constants.SweepPassDeactivate)
	if err != nil || report.Pass != constants.SweepPassDeactivate {
		t.Fatalf("unexpected run result: %+v %v", report, err)
	}
}
