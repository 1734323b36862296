package service

import (
	"context"
	"strings"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/repository"

	"github.com/shopspring/decimal"
)

// DiscountCodeAdminService 优惠码管理服务
type DiscountCodeAdminService struct {
	repo        repository.DiscountCodeRepository
	productRepo repository.ProductRepository
	clock       Clock
}

// NewDiscountCodeAdminService 创建优惠码管理服务
func NewDiscountCodeAdminService(repo repository.DiscountCodeRepository, productRepo repository.ProductRepository) *DiscountCodeAdminService {
	return &DiscountCodeAdminService{repo: repo, productRepo: productRepo}
}

// SetClock 替换时间来源
func (s *DiscountCodeAdminService) SetClock(clock Clock) {
	s.clock = clock
}

// DiscountCodeInput 创建/更新优惠码输入（used_count 不可写）
type DiscountCodeInput struct {
	StoreID          uint
	Code             string
	Name             string
	DiscountType     string
	DiscountValue    decimal.Decimal
	MinOrderAmount   models.Money
	MaxDiscountValue models.Money
	Quantity         int
	UsagePerCustomer int
	AppliesTo        string
	ProductIDs       []uint
	AutoApply        bool
	Priority         int
	StartDate        time.Time
	EndDate          time.Time
	IsActive         *bool
}

// DiscountCodeListInput 优惠码列表查询
type DiscountCodeListInput struct {
	StoreID   uint
	Keyword   string
	ProductID uint
	IsActive  *bool
	AutoApply *bool
	Page      int
	PageSize  int
}

// Create 创建优惠码
func (s *DiscountCodeAdminService) Create(ctx context.Context, input DiscountCodeInput) (*models.DiscountCode, error) {
	code, err := s.buildDiscountCode(ctx, input)
	if err != nil {
		return nil, err
	}
	repo := s.repo.WithContext(ctx)
	exist, err := repo.GetByStoreAndCode(code.StoreID, code.Code)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrDiscountCodeExists
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	code.IsActive = true
	if err := repo.Create(code); err != nil {
		return nil, err
	}
	// is_active 默认值为 true，零值写入会被忽略，显式关闭时需要再更新一次
	if !active {
		code.IsActive = false
		if _, err := repo.UpdateSettings(code); err != nil {
			return nil, err
		}
	}
	logger.Infow("discount_code_created", "discount_id", code.ID, "store_id", code.StoreID, "code", code.Code)
	return code, nil
}

// Update 更新优惠码，总量不得低于已使用次数
func (s *DiscountCodeAdminService) Update(ctx context.Context, id uint, input DiscountCodeInput) (*models.DiscountCode, error) {
	if id == 0 {
		return nil, ErrDiscountInvalid
	}
	repo := s.repo.WithContext(ctx)
	existing, err := repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrDiscountNotFound
	}
	if input.StoreID == 0 {
		input.StoreID = existing.StoreID
	}
	if input.StoreID != existing.StoreID {
		return nil, ErrDiscountInvalid
	}
	code, err := s.buildDiscountCode(ctx, input)
	if err != nil {
		return nil, err
	}
	if code.Code != existing.Code {
		dup, err := repo.GetByStoreAndCode(code.StoreID, code.Code)
		if err != nil {
			return nil, err
		}
		if dup != nil {
			return nil, ErrDiscountCodeExists
		}
	}
	if code.Quantity < existing.UsedCount {
		return nil, ErrDiscountQuantityTooLow
	}

	code.ID = existing.ID
	code.IsActive = existing.IsActive
	if input.IsActive != nil {
		code.IsActive = *input.IsActive
	}
	affected, err := repo.UpdateSettings(code)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrDiscountQuantityTooLow
	}
	return repo.GetByID(id)
}

// Delete 删除优惠码
func (s *DiscountCodeAdminService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrDiscountInvalid
	}
	repo := s.repo.WithContext(ctx)
	existing, err := repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrDiscountNotFound
	}
	if err := repo.Delete(id); err != nil {
		return err
	}
	logger.Infow("discount_code_deleted", "discount_id", id, "store_id", existing.StoreID)
	return nil
}

// Get 获取优惠码
func (s *DiscountCodeAdminService) Get(ctx context.Context, id uint) (*models.DiscountCode, error) {
	code, err := s.repo.WithContext(ctx).GetByID(id)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, ErrDiscountNotFound
	}
	return code, nil
}

// List 分页获取优惠码
func (s *DiscountCodeAdminService) List(ctx context.Context, input DiscountCodeListInput) ([]models.DiscountCode, int64, error) {
	return s.repo.WithContext(ctx).List(repository.DiscountCodeListFilter{
		StoreID:   input.StoreID,
		Keyword:   input.Keyword,
		ProductID: input.ProductID,
		IsActive:  input.IsActive,
		AutoApply: input.AutoApply,
		Page:      input.Page,
		PageSize:  input.PageSize,
	})
}

// ListExpiring 获取未来 window 内到期的启用优惠码
func (s *DiscountCodeAdminService) ListExpiring(ctx context.Context, window time.Duration) ([]models.DiscountCode, error) {
	if window <= 0 {
		window = constants.DefaultExpiringWindowHours * time.Hour
	}
	now := s.clock.now()
	return s.repo.WithContext(ctx).ListExpiringBetween(now, now.Add(window))
}

func (s *DiscountCodeAdminService) buildDiscountCode(ctx context.Context, input DiscountCodeInput) (*models.DiscountCode, error) {
	code := repository.NormalizeCode(input.Code)
	if input.StoreID == 0 || code == "" || len(code) > 64 {
		return nil, ErrDiscountInvalid
	}
	store, err := s.productRepo.WithContext(ctx).GetStore(input.StoreID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrDiscountInvalid
	}

	discountType := strings.ToLower(strings.TrimSpace(input.DiscountType))
	switch discountType {
	case constants.DiscountTypePercentage:
		if input.DiscountValue.LessThanOrEqual(decimal.Zero) || input.DiscountValue.GreaterThan(hundred) {
			return nil, ErrDiscountInvalid
		}
	case constants.DiscountTypeFixed:
		if input.DiscountValue.LessThanOrEqual(decimal.Zero) {
			return nil, ErrDiscountInvalid
		}
	default:
		return nil, ErrDiscountInvalid
	}
	if input.MinOrderAmount.Decimal.IsNegative() || input.MaxDiscountValue.Decimal.IsNegative() {
		return nil, ErrDiscountInvalid
	}
	if input.Quantity < 1 || input.UsagePerCustomer < 0 {
		return nil, ErrDiscountInvalid
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() || !input.StartDate.Before(input.EndDate) {
		return nil, ErrDiscountInvalid
	}

	appliesTo := strings.ToLower(strings.TrimSpace(input.AppliesTo))
	if appliesTo == "" {
		appliesTo = constants.DiscountAppliesToShop
	}
	productIDs := models.UintArray(input.ProductIDs).Normalize()
	switch appliesTo {
	case constants.DiscountAppliesToShop:
		productIDs = models.UintArray{}
	case constants.DiscountAppliesToProducts:
		if len(productIDs) == 0 {
			return nil, ErrDiscountInvalid
		}
	default:
		return nil, ErrDiscountInvalid
	}

	return &models.DiscountCode{
		StoreID:          input.StoreID,
		Code:             code,
		Name:             strings.TrimSpace(input.Name),
		DiscountType:     discountType,
		DiscountValue:    input.DiscountValue,
		MinOrderAmount:   models.NewMoneyFromDecimal(input.MinOrderAmount.Decimal),
		MaxDiscountValue: models.NewMoneyFromDecimal(input.MaxDiscountValue.Decimal),
		Quantity:         input.Quantity,
		UsagePerCustomer: input.UsagePerCustomer,
		AppliesTo:        appliesTo,
		ProductIDs:       productIDs,
		AutoApply:        input.AutoApply,
		Priority:         input.Priority,
		StartDate:        input.StartDate.UTC(),
		EndDate:          input.EndDate.UTC(),
	}, nil
}
