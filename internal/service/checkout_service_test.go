package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/repository"

	"gorm.io/gorm"
)

func TestQuoteAppliesFlashSaleThenCode(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	plain := createProduct(t, svc.db, store.ID, 60000)
	sale := createFlashSale(t, svc.db, product.ID, 15, 10, 0, testNow.Add(-time.Hour), testNow.Add(time.Hour))
	createDiscountCode(t, svc.db, store.ID, "SAVE10", nil)

	quote, err := svc.checkout.Quote(context.Background(), CheckoutRequest{
		UserID: 1,
		Lines: []CheckoutLine{
			{ProductID: product.ID, Quantity: 1},
			{ProductID: plain.ID, Quantity: 1},
		},
		Codes: map[uint]string{store.ID: "save10"},
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if len(quote.Lines) != 2 || quote.Lines[0].UnitPrice.String() != "85000" || quote.Lines[0].FlashSaleID != sale.ID {
		t.Fatalf("unexpected flash line: %+v", quote.Lines)
	}
	if quote.Lines[1].UnitPrice.String() != "60000" || quote.Lines[1].FlashSaleID != 0 {
		t.Fatalf("plain line should keep origin price: %+v", quote.Lines[1])
	}
	if len(quote.Stores) != 1 {
		t.Fatalf("expected one store quote, got %d", len(quote.Stores))
	}
	storeQuote := quote.Stores[0]
	if storeQuote.Subtotal.String() != "145000" || storeQuote.Discount.DiscountAmount.String() != "14500" {
		t.Fatalf("unexpected store quote: %+v discount=%+v", storeQuote, storeQuote.Discount)
	}
	if quote.Total.String() != "130500" || quote.DiscountTotal.String() != "14500" {
		t.Fatalf("unexpected totals: total=%s discount=%s", quote.Total.String(), quote.DiscountTotal.String())
	}
	if got := reloadFlashSale(t, svc.db, sale.ID).Consumed; got != 0 {
		t.Fatalf("quote must not reserve, consumed=%d", got)
	}
}

func TestConfirmReservesAndRedeems(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	sale := createFlashSale(t, svc.db, product.ID, 20, 5, 0, testNow.Add(-time.Hour), testNow.Add(time.Hour))
	code := createDiscountCode(t, svc.db, store.ID, "SAVE10", nil)

	quote, err := svc.checkout.Confirm(context.Background(), CheckoutRequest{
		UserID:  7,
		OrderID: "ORDER-100",
		Lines:   []CheckoutLine{{ProductID: product.ID, Quantity: 2}},
		Codes:   map[uint]string{store.ID: "SAVE10"},
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if quote.OrderID != "ORDER-100" || quote.Total.String() != "144000" {
		t.Fatalf("unexpected quote: order=%s total=%s", quote.OrderID, quote.Total.String())
	}
	if got := reloadFlashSale(t, svc.db, sale.ID).Consumed; got != 2 {
		t.Fatalf("consumed should be 2, got %d", got)
	}
	if got := reloadDiscountCode(t, svc.db, code.ID).UsedCount; got != 1 {
		t.Fatalf("used count should be 1, got %d", got)
	}
	var usages []models.UserDiscountUsage
	if err := svc.db.Where("order_id = ?", "ORDER-100").Find(&usages).Error; err != nil {
		t.Fatalf("load usages failed: %v", err)
	}
	if len(usages) != 1 || usages[0].UserID != 7 || usages[0].DiscountAmount.String() != "16000" {
		t.Fatalf("unexpected usages: %+v", usages)
	}

	_, err = svc.checkout.Confirm(context.Background(), CheckoutRequest{
		UserID:  7,
		OrderID: "ORDER-100",
		Lines:   []CheckoutLine{{ProductID: product.ID, Quantity: 1}},
		Codes:   map[uint]string{store.ID: "SAVE10"},
	})
	if !errors.Is(err, ErrOrderAlreadyConfirmed) {
		t.Fatalf("second confirm should be rejected, got %v", err)
	}
	if got := reloadFlashSale(t, svc.db, sale.ID).Consumed; got != 2 {
		t.Fatalf("rejected confirm must not reserve, consumed=%d", got)
	}
}

func TestConfirmRollsBackReservationWhenCodeFails(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	sale := createFlashSale(t, svc.db, product.ID, 15, 5, 0, testNow.Add(-time.Hour), testNow.Add(time.Hour))
	code := createDiscountCode(t, svc.db, store.ID, "GONE", func(d *models.DiscountCode) {
		d.Quantity = 1
		d.UsedCount = 1
	})

	_, err := svc.checkout.Confirm(context.Background(), CheckoutRequest{
		UserID: 3,
		Lines:  []CheckoutLine{{ProductID: product.ID, Quantity: 2}},
		Codes:  map[uint]string{store.ID: "GONE"},
	})
	if !errors.Is(err, ErrDiscountCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	if got := reloadFlashSale(t, svc.db, sale.ID).Consumed; got != 0 {
		t.Fatalf("reservation should roll back, consumed=%d", got)
	}
	if got := reloadDiscountCode(t, svc.db, code.ID).UsedCount; got != 1 {
		t.Fatalf("used count should stay 1, got %d", got)
	}
}

func TestConfirmSoldOutLeavesCodeUntouched(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	createFlashSale(t, svc.db, product.ID, 15, 1, 0, testNow.Add(-time.Hour), testNow.Add(time.Hour))
	code := createDiscountCode(t, svc.db, store.ID, "SAVE10", nil)

	_, err := svc.checkout.Confirm(context.Background(), CheckoutRequest{
		UserID: 3,
		Lines:  []CheckoutLine{{ProductID: product.ID, Quantity: 2}},
		Codes:  map[uint]string{store.ID: "SAVE10"},
	})
	if !errors.Is(err, ErrFlashSaleSoldOut) {
		t.Fatalf("expected sold out, got %v", err)
	}
	if got := reloadDiscountCode(t, svc.db, code.ID).UsedCount; got != 0 {
		t.Fatalf("used count should stay 0, got %d", got)
	}
}

func TestRevertOrderDiscounts(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 50000)
	code := createDiscountCode(t, svc.db, store.ID, "AUTO", func(d *models.DiscountCode) {
		d.AutoApply = true
	})

	quote, err := svc.checkout.Confirm(context.Background(), CheckoutRequest{
		UserID:    9,
		Lines:     []CheckoutLine{{ProductID: product.ID, Quantity: 1}},
		AutoApply: true,
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if quote.OrderID == "" || !quote.Stores[0].Discount.AutoApplied {
		t.Fatalf("expected generated order id and auto applied code: %+v", quote.Stores[0].Discount)
	}

	reverted, err := svc.checkout.RevertOrderDiscounts(context.Background(), quote.OrderID)
	if err != nil {
		t.Fatalf("revert failed: %v", err)
	}
	if reverted != 1 {
		t.Fatalf("expected one reverted usage, got %d", reverted)
	}
	if got := reloadDiscountCode(t, svc.db, code.ID).UsedCount; got != 0 {
		t.Fatalf("used count should be restored, got %d", got)
	}
	reverted, err = svc.checkout.RevertOrderDiscounts(context.Background(), quote.OrderID)
	if err != nil || reverted != 0 {
		t.Fatalf("second revert should be a no-op, got %d %v", reverted, err)
	}
}

func TestCheckoutRejectsUnknownProduct(t *testing.T) {
	svc := newTestServices(t, testNow)
	_, err := svc.checkout.Quote(context.Background(), CheckoutRequest{
		Lines: []CheckoutLine{{ProductID: 4242, Quantity: 1}},
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
	if _, err := svc.checkout.Confirm(context.Background(), CheckoutRequest{Lines: []CheckoutLine{{ProductID: 1, Quantity: 1}}}); !errors.Is(err, ErrCheckoutInvalid) {
		t.Fatalf("confirm without user should be invalid, got %v", err)
	}
}

func TestRedeemRechecksPerCustomerLimitUnderLock(t *testing.T) {
	svc := newTestServices(t, testNow)
	store := createStore(t, svc.db)
	code := createDiscountCode(t, svc.db, store.ID, "ONCE", func(d *models.DiscountCode) {
		d.Quantity = 5
		d.UsagePerCustomer = 1
	})
	// 另一笔订单已在本次校验之后提交
	committed := &models.UserDiscountUsage{
		UserID:         7,
		DiscountID:     code.ID,
		OrderID:        "ORD-A",
		DiscountAmount: models.NewMoney(5000),
		UsedAt:         testNow,
	}
	if err := svc.db.Create(committed).Error; err != nil {
		t.Fatalf("create usage failed: %v", err)
	}
	if err := svc.db.Model(code).Update("used_count", 1).Error; err != nil {
		t.Fatalf("bump used count failed: %v", err)
	}

	candidate := &DiscountCandidate{Code: code, ApplicableSubtotal: models.NewMoney(50000)}
	redeemIn := func(userID uint, orderID string) error {
		return svc.db.Transaction(func(tx *gorm.DB) error {
			_, err := redeem(repository.NewDiscountCodeRepository(tx), repository.NewUserDiscountUsageRepository(tx), candidate, userID, orderID, testNow)
			return err
		})
	}

	if err := redeemIn(7, "ORD-B"); !errors.Is(err, ErrDiscountUsageLimitExceeded) {
		t.Fatalf("expected usage limit exceeded, got %v", err)
	}
	if got := reloadDiscountCode(t, svc.db, code.ID).UsedCount; got != 1 {
		t.Fatalf("rejected redeem must roll back used count, got %d", got)
	}

	if err := redeemIn(8, "ORD-C"); err != nil {
		t.Fatalf("another customer should redeem, got %v", err)
	}
	if got := reloadDiscountCode(t, svc.db, code.ID).UsedCount; got != 2 {
		t.Fatalf("used count want 2 got %d", got)
	}
}

func TestConfirmInvalidatesFlashSaleViews(t *testing.T) {
	svc := newTestServices(t, testNow)
	views := &recordingViews{}
	svc.checkout.SetViewInvalidator(views)
	store := createStore(t, svc.db)
	product := createProduct(t, svc.db, store.ID, 100000)
	plain := createProduct(t, svc.db, store.ID, 60000)
	createFlashSale(t, svc.db, product.ID, 15, 10, 0, testNow.Add(-time.Hour), testNow.Add(time.Hour))

	_, err := svc.checkout.Confirm(context.Background(), CheckoutRequest{
		UserID: 5,
		Lines: []CheckoutLine{
			{ProductID: product.ID, Quantity: 1},
			{ProductID: plain.ID, Quantity: 1},
			{ProductID: product.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	got := views.ProductIDs()
	if len(got) != 1 || got[0] != product.ID {
		t.Fatalf("only the flash-sale product should be invalidated, got %v", got)
	}
}
