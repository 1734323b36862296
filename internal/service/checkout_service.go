package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/monitor"
	"github.com/khatmdev/quadramall-promo/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckoutLine 结算行输入
type CheckoutLine struct {
	ProductID uint `json:"product_id"`
	VariantID uint `json:"variant_id,omitempty"`
	Quantity  int  `json:"quantity"`
}

// CheckoutRequest 结算请求，Codes 为 storeID -> 优惠码
type CheckoutRequest struct {
	UserID    uint
	OrderID   string
	Lines     []CheckoutLine
	Codes     map[uint]string
	AutoApply bool
}

// LineQuote 行定价结果
type LineQuote struct {
	ProductID          uint         `json:"product_id"`
	VariantID          uint         `json:"variant_id,omitempty"`
	StoreID            uint         `json:"store_id"`
	Quantity           int          `json:"quantity"`
	OriginPrice        models.Money `json:"origin_price"`
	UnitPrice          models.Money `json:"unit_price"`
	Subtotal           models.Money `json:"subtotal"`
	FlashSaleID        uint         `json:"flash_sale_id,omitempty"`
	PercentageDiscount int          `json:"percentage_discount,omitempty"`
}

// StoreQuote 店铺维度结果
type StoreQuote struct {
	StoreID  uint            `json:"store_id"`
	Subtotal models.Money    `json:"subtotal"`
	Discount *DiscountResult `json:"discount"`
	Total    models.Money    `json:"total"`
}

// Quote 结算结果
type Quote struct {
	OrderID       string       `json:"order_id,omitempty"`
	Lines         []LineQuote  `json:"lines"`
	Stores        []StoreQuote `json:"stores"`
	Subtotal      models.Money `json:"subtotal"`
	DiscountTotal models.Money `json:"discount_total"`
	Total         models.Money `json:"total"`
}

// CheckoutService 结算计价与确认
type CheckoutService struct {
	db            *gorm.DB
	productRepo   repository.ProductRepository
	flashSaleRepo repository.FlashSaleRepository
	codeRepo      repository.DiscountCodeRepository
	usageRepo     repository.UserDiscountUsageRepository
	discounts     *DiscountService
	views         ViewInvalidator
	clock         Clock
}

// NewCheckoutService 创建结算服务
func NewCheckoutService(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	flashSaleRepo repository.FlashSaleRepository,
	codeRepo repository.DiscountCodeRepository,
	usageRepo repository.UserDiscountUsageRepository,
	discounts *DiscountService,
) *CheckoutService {
	return &CheckoutService{
		db:            db,
		productRepo:   productRepo,
		flashSaleRepo: flashSaleRepo,
		codeRepo:      codeRepo,
		usageRepo:     usageRepo,
		discounts:     discounts,
	}
}

// SetClock 替换时间来源（同时作用于优惠码判定）
func (s *CheckoutService) SetClock(clock Clock) {
	s.clock = clock
	if s.discounts != nil {
		s.discounts.SetClock(clock)
	}
}

// Quote 只读计价：秒杀价 -> 店铺优惠码，不预占库存也不记录使用
func (s *CheckoutService) Quote(ctx context.Context, req CheckoutRequest) (*Quote, error) {
	if err := validateCheckoutRequest(req, false); err != nil {
		return nil, err
	}
	now := s.clock.now()
	lines, err := priceLines(s.productRepo.WithContext(ctx), s.flashSaleRepo.WithContext(ctx), req.Lines, now)
	if err != nil {
		return nil, err
	}
	discounts := s.discounts.withContext(ctx)

	quote := &Quote{OrderID: strings.TrimSpace(req.OrderID), Lines: lines}
	for _, group := range groupByStore(req.UserID, lines) {
		result, err := discounts.calculate(group, req.Codes[group.StoreID], req.AutoApply, now)
		if err != nil {
			return nil, err
		}
		quote.addStore(group, result)
	}
	return quote, nil
}

// PriceContext 按当前秒杀价构建单店铺的优惠码上下文，storeID 为 0 时取订单行所属店铺
func (s *CheckoutService) PriceContext(ctx context.Context, userID, storeID uint, input []CheckoutLine) (DiscountContext, error) {
	if err := validateCheckoutRequest(CheckoutRequest{Lines: input}, false); err != nil {
		return DiscountContext{}, err
	}
	lines, err := priceLines(s.productRepo.WithContext(ctx), s.flashSaleRepo.WithContext(ctx), input, s.clock.now())
	if err != nil {
		return DiscountContext{}, err
	}
	if storeID == 0 {
		storeID = lines[0].StoreID
	}
	dctx := DiscountContext{StoreID: storeID, UserID: userID}
	for _, group := range groupByStore(userID, lines) {
		dctx.Lines = append(dctx.Lines, group.Lines...)
	}
	return dctx, nil
}

// SetViewInvalidator 确认成功后使涉及秒杀的商品视图缓存失效
func (s *CheckoutService) SetViewInvalidator(views ViewInvalidator) {
	s.views = views
}

// Confirm 在同一事务内预占全部秒杀配额、核销店铺优惠码并写入使用记录，任一步失败整体回滚
func (s *CheckoutService) Confirm(ctx context.Context, req CheckoutRequest) (*Quote, error) {
	if err := validateCheckoutRequest(req, true); err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		orderID = "CONF-" + uuid.NewString()
	}
	now := s.clock.now()

	var quote *Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)
		flashSaleRepo := s.flashSaleRepo.WithTx(tx)
		codeRepo := s.codeRepo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)
		discounts := s.discounts.withTx(tx)

		existing, err := usageRepo.ListByOrderID(orderID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrOrderAlreadyConfirmed
		}

		lines, err := priceLines(productRepo, flashSaleRepo, req.Lines, now)
		if err != nil {
			return err
		}
		if err := reserveLines(ctx, flashSaleRepo, lines, now); err != nil {
			return err
		}

		quote = &Quote{OrderID: orderID, Lines: lines}
		for _, group := range groupByStore(req.UserID, lines) {
			candidate, err := pickDiscount(discounts, group, req.Codes[group.StoreID], req.AutoApply, now)
			if err != nil {
				return err
			}
			result := &DiscountResult{
				StoreID:              group.StoreID,
				OriginalAmount:       group.Subtotal(),
				FinalAmount:          group.Subtotal(),
				ApplicableProductIDs: []uint{},
			}
			if candidate != nil {
				amount, err := redeem(codeRepo, usageRepo, candidate, req.UserID, orderID, now)
				if err != nil {
					return err
				}
				result.Success = true
				result.DiscountID = candidate.Code.ID
				result.DiscountCode = candidate.Code.Code
				result.AutoApplied = strings.TrimSpace(req.Codes[group.StoreID]) == ""
				result.OriginalAmount = candidate.ApplicableSubtotal
				result.DiscountAmount = amount
				result.FinalAmount = models.NewMoneyFromDecimal(candidate.ApplicableSubtotal.Decimal.Sub(amount.Decimal))
				result.ApplicableProductIDs = candidate.ApplicableProductIDs
			}
			quote.addStore(group, result)
		}
		return nil
	})
	if err != nil {
		if IsCheckoutRejection(err) {
			logger.Infow("checkout_confirm_rejected", "order_id", orderID, "user_id", req.UserID, "error", err)
		} else {
			logger.Errorw("checkout_confirm_failed", "order_id", orderID, "user_id", req.UserID, "error", err)
			monitor.CaptureError(err, map[string]string{"component": "checkout", "order_id": orderID})
		}
		return nil, err
	}
	if s.views != nil {
		s.views.InvalidateView(ctx, flashSaleProductIDs(quote.Lines)...)
	}
	logger.Infow("checkout_confirmed",
		"order_id", orderID,
		"user_id", req.UserID,
		"total", quote.Total.String(),
		"discount_total", quote.DiscountTotal.String(),
	)
	return quote, nil
}

// RevertOrderDiscounts 撤销订单的优惠码核销：删除使用记录并回退 used_count，返回撤销条数
func (s *CheckoutService) RevertOrderDiscounts(ctx context.Context, orderID string) (int, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return 0, ErrCheckoutInvalid
	}
	reverted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		codeRepo := s.codeRepo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)
		usages, err := usageRepo.ListByOrderID(orderID)
		if err != nil {
			return err
		}
		for _, usage := range usages {
			if _, err := codeRepo.ReleaseOne(usage.DiscountID); err != nil {
				return err
			}
		}
		deleted, err := usageRepo.DeleteByOrderID(orderID)
		if err != nil {
			return err
		}
		reverted = int(deleted)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if reverted > 0 {
		logger.Infow("checkout_discounts_reverted", "order_id", orderID, "count", reverted)
	}
	return reverted, nil
}

func validateCheckoutRequest(req CheckoutRequest, requireUser bool) error {
	if len(req.Lines) == 0 {
		return ErrCheckoutInvalid
	}
	if requireUser && req.UserID == 0 {
		return ErrCheckoutInvalid
	}
	if len(strings.TrimSpace(req.OrderID)) > 64 {
		return ErrCheckoutInvalid
	}
	for _, line := range req.Lines {
		if line.ProductID == 0 || line.Quantity <= 0 {
			return ErrCheckoutInvalid
		}
	}
	return nil
}

// priceLines 加载商品原价并套用当前生效的秒杀
func priceLines(productRepo repository.ProductRepository, flashSaleRepo repository.FlashSaleRepository, input []CheckoutLine, now time.Time) ([]LineQuote, error) {
	ids := make(models.UintArray, 0, len(input))
	for _, line := range input {
		ids = append(ids, line.ProductID)
	}
	ids = ids.Normalize()

	products, err := productRepo.ListByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	productMap := make(map[uint]models.Product, len(products))
	for _, product := range products {
		productMap[product.ID] = product
	}
	sales, err := findActiveForMany(flashSaleRepo, ids, now)
	if err != nil {
		return nil, fmt.Errorf("load flash sales: %w", err)
	}

	lines := make([]LineQuote, 0, len(input))
	for _, line := range input {
		product, ok := productMap[line.ProductID]
		if !ok || !product.IsActive {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, line.ProductID)
		}
		sale := sales[line.ProductID]
		unit := PriceForLineItem(product.PriceAmount, sale)
		quote := LineQuote{
			ProductID:   product.ID,
			VariantID:   line.VariantID,
			StoreID:     product.StoreID,
			Quantity:    line.Quantity,
			OriginPrice: product.PriceAmount,
			UnitPrice:   unit,
			Subtotal:    LineSubtotal(unit, line.Quantity),
		}
		if sale != nil {
			quote.FlashSaleID = sale.ID
			quote.PercentageDiscount = sale.PercentageDiscount
		}
		lines = append(lines, quote)
	}
	return lines, nil
}

// reserveLines 按秒杀汇总数量后依次预占，按 ID 排序保持加锁顺序一致
func reserveLines(ctx context.Context, repo repository.FlashSaleRepository, lines []LineQuote, now time.Time) error {
	units := make(map[uint]int)
	for _, line := range lines {
		if line.FlashSaleID != 0 {
			units[line.FlashSaleID] += line.Quantity
		}
	}
	saleIDs := make([]uint, 0, len(units))
	for id := range units {
		saleIDs = append(saleIDs, id)
	}
	sort.Slice(saleIDs, func(i, j int) bool { return saleIDs[i] < saleIDs[j] })
	for _, id := range saleIDs {
		if err := reserveUnits(ctx, repo, id, units[id], now); err != nil {
			return err
		}
	}
	return nil
}

func flashSaleProductIDs(lines []LineQuote) []uint {
	seen := make(map[uint]struct{})
	ids := make([]uint, 0)
	for _, line := range lines {
		if line.FlashSaleID == 0 {
			continue
		}
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

func groupByStore(userID uint, lines []LineQuote) []DiscountContext {
	index := make(map[uint]int)
	groups := make([]DiscountContext, 0)
	for _, line := range lines {
		pos, ok := index[line.StoreID]
		if !ok {
			pos = len(groups)
			index[line.StoreID] = pos
			groups = append(groups, DiscountContext{StoreID: line.StoreID, UserID: userID})
		}
		groups[pos].Lines = append(groups[pos].Lines, PricedLine{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			StoreID:   line.StoreID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}
	return groups
}

func pickDiscount(discounts *DiscountService, dctx DiscountContext, code string, autoApply bool, now time.Time) (*DiscountCandidate, error) {
	if strings.TrimSpace(code) != "" {
		return discounts.validate(code, dctx, now)
	}
	if autoApply {
		return discounts.selectAuto(dctx, now)
	}
	return nil, nil
}

// redeem 条件自增 used_count 并写入使用记录
func redeem(codeRepo repository.DiscountCodeRepository, usageRepo repository.UserDiscountUsageRepository, candidate *DiscountCandidate, userID uint, orderID string, now time.Time) (models.Money, error) {
	amount, _ := ApplyDiscountCode(candidate.ApplicableSubtotal, candidate.Code)
	affected, err := codeRepo.ConsumeOne(candidate.Code.ID)
	if err != nil {
		return models.Money{}, err
	}
	if affected == 0 {
		return models.Money{}, ErrDiscountCapacityExceeded
	}
	// ConsumeOne 已持有优惠码行锁，此时复核每人上限可避免同一用户并发核销
	if limit := candidate.Code.UsagePerCustomer; limit > 0 && userID != 0 {
		count, err := usageRepo.CountByUser(userID, candidate.Code.ID)
		if err != nil {
			return models.Money{}, err
		}
		if count >= int64(limit) {
			return models.Money{}, ErrDiscountUsageLimitExceeded
		}
	}
	usage := &models.UserDiscountUsage{
		UserID:         userID,
		DiscountID:     candidate.Code.ID,
		OrderID:        orderID,
		DiscountAmount: amount,
		UsedAt:         now,
	}
	if err := usageRepo.Create(usage); err != nil {
		return models.Money{}, err
	}
	return amount, nil
}

func (q *Quote) addStore(group DiscountContext, result *DiscountResult) {
	subtotal := group.Subtotal()
	total := subtotal.Decimal.Sub(result.DiscountAmount.Decimal)
	q.Stores = append(q.Stores, StoreQuote{
		StoreID:  group.StoreID,
		Subtotal: subtotal,
		Discount: result,
		Total:    models.NewMoneyFromDecimal(total),
	})
	q.Subtotal = models.NewMoneyFromDecimal(q.Subtotal.Decimal.Add(subtotal.Decimal))
	q.DiscountTotal = models.NewMoneyFromDecimal(q.DiscountTotal.Decimal.Add(result.DiscountAmount.Decimal))
	q.Total = models.NewMoneyFromDecimal(q.Total.Decimal.Add(total))
}

// IsCheckoutRejection 判断结算是否因业务规则被拒绝
func IsCheckoutRejection(err error) bool {
	return ErrorCode(err) != "" || errors.Is(err, ErrCheckoutInvalid) || errors.Is(err, ErrOrderAlreadyConfirmed)
}
