package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/monitor"
	"github.com/khatmdev/quadramall-promo/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricedLine 已完成秒杀定价的订单行
type PricedLine struct {
	ProductID uint         `json:"product_id"`
	VariantID uint         `json:"variant_id,omitempty"`
	StoreID   uint         `json:"store_id"`
	Quantity  int          `json:"quantity"`
	UnitPrice models.Money `json:"unit_price"`
	Subtotal  models.Money `json:"subtotal"`
}

// DiscountContext 单店铺的优惠码校验上下文
type DiscountContext struct {
	StoreID uint
	UserID  uint
	Lines   []PricedLine
}

// ProductIDs 订单内的商品ID
func (c DiscountContext) ProductIDs() []uint {
	ids := make(models.UintArray, 0, len(c.Lines))
	for _, line := range c.Lines {
		ids = append(ids, line.ProductID)
	}
	return ids.Normalize()
}

// Subtotal 店铺小计
func (c DiscountContext) Subtotal() models.Money {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal.Decimal)
	}
	return models.NewMoneyFromDecimal(total)
}

// DiscountCandidate 通过筛选的候选优惠码
type DiscountCandidate struct {
	Code                 *models.DiscountCode
	ApplicableSubtotal   models.Money
	ApplicableProductIDs []uint
}

// DiscountResult 优惠计算结果
type DiscountResult struct {
	Success              bool         `json:"success"`
	StoreID              uint         `json:"store_id"`
	DiscountID           uint         `json:"discount_id,omitempty"`
	DiscountCode         string       `json:"discount_code,omitempty"`
	AutoApplied          bool         `json:"auto_applied"`
	OriginalAmount       models.Money `json:"original_amount"`
	DiscountAmount       models.Money `json:"discount_amount"`
	FinalAmount          models.Money `json:"final_amount"`
	ApplicableProductIDs []uint       `json:"applicable_product_ids"`
	ErrorCode            string       `json:"error_code,omitempty"`
}

// DiscountService 优惠码资格判定服务
type DiscountService struct {
	codeRepo  repository.DiscountCodeRepository
	usageRepo repository.UserDiscountUsageRepository
	clock     Clock
}

// NewDiscountService 创建优惠码资格判定服务
func NewDiscountService(codeRepo repository.DiscountCodeRepository, usageRepo repository.UserDiscountUsageRepository) *DiscountService {
	return &DiscountService{codeRepo: codeRepo, usageRepo: usageRepo}
}

// SetClock 替换时间来源
func (s *DiscountService) SetClock(clock Clock) {
	s.clock = clock
}

// withContext 绑定请求上下文
func (s *DiscountService) withContext(ctx context.Context) *DiscountService {
	return &DiscountService{codeRepo: s.codeRepo.WithContext(ctx), usageRepo: s.usageRepo.WithContext(ctx), clock: s.clock}
}

// withTx 绑定事务，供结算确认复用同一套校验
func (s *DiscountService) withTx(tx *gorm.DB) *DiscountService {
	return &DiscountService{codeRepo: s.codeRepo.WithTx(tx), usageRepo: s.usageRepo.WithTx(tx), clock: s.clock}
}

// Resolve 收集店铺内可用的候选优惠码：资格、适用范围、门槛、每人次数依次过滤，按优先级排序
func (s *DiscountService) Resolve(ctx context.Context, dctx DiscountContext) ([]DiscountCandidate, error) {
	return s.withContext(ctx).resolve(dctx, s.clock.now())
}

func (s *DiscountService) resolve(dctx DiscountContext, now time.Time) ([]DiscountCandidate, error) {
	if dctx.StoreID == 0 || len(dctx.Lines) == 0 {
		return []DiscountCandidate{}, nil
	}
	if err := ensureSameStore(dctx); err != nil {
		return nil, err
	}
	codes, err := s.codeRepo.ListEligibleByStore(dctx.StoreID, now)
	if err != nil {
		return nil, fmt.Errorf("list eligible discount codes: %w", err)
	}

	candidates := make([]DiscountCandidate, 0, len(codes))
	limited := make([]uint, 0, len(codes))
	for i := range codes {
		code := codes[i]
		if !isEligible(&code, now) {
			continue
		}
		subtotal, productIDs, ok := applicableScope(&code, dctx)
		if !ok {
			continue
		}
		if subtotal.Decimal.LessThan(code.MinOrderAmount.Decimal) {
			continue
		}
		if code.UsagePerCustomer > 0 {
			limited = append(limited, code.ID)
		}
		candidates = append(candidates, DiscountCandidate{
			Code:                 &code,
			ApplicableSubtotal:   subtotal,
			ApplicableProductIDs: productIDs,
		})
	}

	if len(limited) > 0 && dctx.UserID != 0 {
		counts, err := s.usageRepo.CountByUserForDiscounts(dctx.UserID, limited)
		if err != nil {
			return nil, fmt.Errorf("count discount usage: %w", err)
		}
		filtered := candidates[:0]
		for _, candidate := range candidates {
			limit := candidate.Code.UsagePerCustomer
			if limit > 0 && counts[candidate.Code.ID] >= int64(limit) {
				continue
			}
			filtered = append(filtered, candidate)
		}
		candidates = filtered
	}

	sortCandidates(candidates)
	return candidates, nil
}

// Validate 校验调用方显式提供的优惠码
func (s *DiscountService) Validate(ctx context.Context, code string, dctx DiscountContext) (*DiscountCandidate, error) {
	candidate, err := s.withContext(ctx).validate(code, dctx, s.clock.now())
	monitor.ObserveDiscountValidation(ErrorCode(err))
	return candidate, err
}

func (s *DiscountService) validate(code string, dctx DiscountContext, now time.Time) (*DiscountCandidate, error) {
	normalized := repository.NormalizeCode(code)
	if normalized == "" || dctx.StoreID == 0 {
		return nil, ErrDiscountNotFound
	}
	if err := ensureSameStore(dctx); err != nil {
		return nil, err
	}

	discount, err := s.codeRepo.GetByStoreAndCode(dctx.StoreID, normalized)
	if err != nil {
		return nil, fmt.Errorf("load discount code: %w", err)
	}
	if discount == nil {
		// 其他店铺的优惠码属于范围不匹配，不做自动纠正
		elsewhere, err := s.codeRepo.ExistsInOtherStore(dctx.StoreID, normalized)
		if err != nil {
			return nil, fmt.Errorf("check discount code owner: %w", err)
		}
		if elsewhere {
			return nil, ErrDiscountScopeMismatch
		}
		return nil, ErrDiscountNotFound
	}

	if !discount.InWindow(now) {
		return nil, ErrDiscountExpired
	}
	if !discount.IsActive {
		return nil, ErrDiscountInactive
	}
	if discount.UsedCount >= discount.Quantity {
		return nil, ErrDiscountCapacityExceeded
	}
	subtotal, productIDs, ok := applicableScope(discount, dctx)
	if !ok {
		return nil, ErrDiscountScopeMismatch
	}
	if subtotal.Decimal.LessThan(discount.MinOrderAmount.Decimal) {
		return nil, ErrDiscountMinOrderNotMet
	}
	if discount.UsagePerCustomer > 0 && dctx.UserID != 0 {
		count, err := s.usageRepo.CountByUser(dctx.UserID, discount.ID)
		if err != nil {
			return nil, fmt.Errorf("count discount usage: %w", err)
		}
		if count >= int64(discount.UsagePerCustomer) {
			return nil, ErrDiscountUsageLimitExceeded
		}
	}
	return &DiscountCandidate{
		Code:                 discount,
		ApplicableSubtotal:   subtotal,
		ApplicableProductIDs: productIDs,
	}, nil
}

// SelectAuto 在自动应用的候选中选出一张：priority 最小，其次 endDate 最早
func (s *DiscountService) SelectAuto(ctx context.Context, dctx DiscountContext) (*DiscountCandidate, error) {
	return s.withContext(ctx).selectAuto(dctx, s.clock.now())
}

func (s *DiscountService) selectAuto(dctx DiscountContext, now time.Time) (*DiscountCandidate, error) {
	candidates, err := s.resolve(dctx, now)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].Code.AutoApply {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// Calculate 计算单店铺的优惠结果：显式优惠码优先，否则按 autoApply 自动选择
// 校验失败以 Success=false + ErrorCode 返回，只有基础设施错误才返回 error
func (s *DiscountService) Calculate(ctx context.Context, dctx DiscountContext, explicitCode string, autoApply bool) (*DiscountResult, error) {
	return s.withContext(ctx).calculate(dctx, explicitCode, autoApply, s.clock.now())
}

func (s *DiscountService) calculate(dctx DiscountContext, explicitCode string, autoApply bool, now time.Time) (*DiscountResult, error) {
	subtotal := dctx.Subtotal()
	result := &DiscountResult{
		StoreID:              dctx.StoreID,
		OriginalAmount:       subtotal,
		FinalAmount:          subtotal,
		ApplicableProductIDs: []uint{},
	}

	var (
		candidate *DiscountCandidate
		err       error
	)
	if strings.TrimSpace(explicitCode) != "" {
		result.DiscountCode = repository.NormalizeCode(explicitCode)
		candidate, err = s.validate(explicitCode, dctx, now)
		monitor.ObserveDiscountValidation(ErrorCode(err))
	} else if autoApply {
		candidate, err = s.selectAuto(dctx, now)
		result.AutoApplied = candidate != nil
	}
	if err != nil {
		if code := ErrorCode(err); code != "" {
			result.ErrorCode = code
			return result, nil
		}
		return nil, err
	}
	if candidate == nil {
		return result, nil
	}

	discount, final := ApplyDiscountCode(candidate.ApplicableSubtotal, candidate.Code)
	result.Success = true
	result.DiscountID = candidate.Code.ID
	result.DiscountCode = candidate.Code.Code
	result.OriginalAmount = candidate.ApplicableSubtotal
	result.DiscountAmount = discount
	result.FinalAmount = final
	result.ApplicableProductIDs = candidate.ApplicableProductIDs
	return result, nil
}

func isEligible(code *models.DiscountCode, now time.Time) bool {
	return code.IsActive && code.InWindow(now) && code.UsedCount < code.Quantity
}

// applicableScope 计算优惠码的可用小计与命中商品；PRODUCTS 范围只累加交集内的订单行
func applicableScope(code *models.DiscountCode, dctx DiscountContext) (models.Money, []uint, bool) {
	if strings.EqualFold(strings.TrimSpace(code.AppliesTo), constants.DiscountAppliesToProducts) {
		scope := code.ProductIDs.Set()
		total := decimal.Zero
		matched := make(models.UintArray, 0, len(dctx.Lines))
		for _, line := range dctx.Lines {
			if _, ok := scope[line.ProductID]; !ok {
				continue
			}
			total = total.Add(line.Subtotal.Decimal)
			matched = append(matched, line.ProductID)
		}
		if len(matched) == 0 {
			return models.Money{}, nil, false
		}
		return models.NewMoneyFromDecimal(total), []uint(matched.Normalize()), true
	}
	return dctx.Subtotal(), dctx.ProductIDs(), true
}

func ensureSameStore(dctx DiscountContext) error {
	for _, line := range dctx.Lines {
		if line.StoreID != 0 && line.StoreID != dctx.StoreID {
			return ErrDiscountScopeMismatch
		}
	}
	return nil
}

func sortCandidates(candidates []DiscountCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Code, candidates[j].Code
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.EndDate.Equal(b.EndDate) {
			return a.EndDate.Before(b.EndDate)
		}
		return a.ID < b.ID
	})
}
