package service

import (
	"context"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/repository"
)

// FlashSaleAdminService 秒杀配额管理服务
type FlashSaleAdminService struct {
	repo        repository.FlashSaleRepository
	productRepo repository.ProductRepository
	views       *FlashSaleService
	inventory   *InventoryService
	clock       Clock
}

// NewFlashSaleAdminService 创建秒杀配额管理服务
func NewFlashSaleAdminService(repo repository.FlashSaleRepository, productRepo repository.ProductRepository, views *FlashSaleService, inventory *InventoryService) *FlashSaleAdminService {
	return &FlashSaleAdminService{repo: repo, productRepo: productRepo, views: views, inventory: inventory}
}

// SetClock 替换时间来源
func (s *FlashSaleAdminService) SetClock(clock Clock) {
	s.clock = clock
}

// FlashSaleInput 创建/更新秒杀输入（consumed 不可写）
type FlashSaleInput struct {
	ProductID          uint
	PercentageDiscount int
	Capacity           int
	StartTime          time.Time
	EndTime            time.Time
}

// FlashSaleListInput 秒杀列表查询
type FlashSaleListInput struct {
	ProductID  uint
	StoreID    uint
	OnlyActive bool
	Page       int
	PageSize   int
}

// Create 创建秒杀配额
func (s *FlashSaleAdminService) Create(ctx context.Context, input FlashSaleInput) (*models.FlashSale, error) {
	if err := validateFlashSaleInput(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithContext(ctx)
	if err := s.ensureProduct(ctx, input.ProductID); err != nil {
		return nil, err
	}
	overlap, err := repo.HasOverlap(input.ProductID, input.StartTime, input.EndTime, 0)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrFlashSaleOverlap
	}

	sale := &models.FlashSale{
		ProductID:          input.ProductID,
		PercentageDiscount: input.PercentageDiscount,
		Capacity:           input.Capacity,
		Consumed:           0,
		StartTime:          input.StartTime.UTC(),
		EndTime:            input.EndTime.UTC(),
	}
	if err := repo.Create(sale); err != nil {
		return nil, err
	}
	s.views.InvalidateView(ctx, sale.ProductID)
	logger.Infow("flash_sale_created", "flash_sale_id", sale.ID, "product_id", sale.ProductID, "capacity", sale.Capacity)
	return sale, nil
}

// Update 更新秒杀配额，容量不得低于已消耗数量
func (s *FlashSaleAdminService) Update(ctx context.Context, id uint, input FlashSaleInput) (*models.FlashSale, error) {
	if id == 0 {
		return nil, ErrFlashSaleInvalid
	}
	if err := validateFlashSaleInput(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithContext(ctx)
	existing, err := repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrFlashSaleNotFound
	}
	if input.ProductID != existing.ProductID {
		if err := s.ensureProduct(ctx, input.ProductID); err != nil {
			return nil, err
		}
	}
	overlap, err := repo.HasOverlap(input.ProductID, input.StartTime, input.EndTime, id)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrFlashSaleOverlap
	}

	previousProductID := existing.ProductID
	existing.ProductID = input.ProductID
	existing.PercentageDiscount = input.PercentageDiscount
	existing.Capacity = input.Capacity
	existing.StartTime = input.StartTime.UTC()
	existing.EndTime = input.EndTime.UTC()
	affected, err := repo.UpdateSettings(existing)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrFlashSaleCapacityTooLow
	}
	s.views.InvalidateView(ctx, previousProductID, existing.ProductID)
	return repo.GetByID(id)
}

// Delete 删除秒杀配额
func (s *FlashSaleAdminService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrFlashSaleInvalid
	}
	repo := s.repo.WithContext(ctx)
	existing, err := repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrFlashSaleNotFound
	}
	if err := repo.Delete(id); err != nil {
		return err
	}
	s.views.InvalidateView(ctx, existing.ProductID)
	logger.Infow("flash_sale_deleted", "flash_sale_id", id, "product_id", existing.ProductID)
	return nil
}

// Get 获取秒杀配额
func (s *FlashSaleAdminService) Get(ctx context.Context, id uint) (*models.FlashSale, error) {
	sale, err := s.repo.WithContext(ctx).GetByID(id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrFlashSaleNotFound
	}
	return sale, nil
}

// List 分页获取秒杀配额
func (s *FlashSaleAdminService) List(ctx context.Context, input FlashSaleListInput) ([]models.FlashSale, int64, error) {
	return s.repo.WithContext(ctx).List(repository.FlashSaleListFilter{
		ProductID:  input.ProductID,
		StoreID:    input.StoreID,
		OnlyActive: input.OnlyActive,
		Now:        s.clock.now(),
		Page:       input.Page,
		PageSize:   input.PageSize,
	})
}

// Release 人工释放配额（取消/退款后由运营触发）
func (s *FlashSaleAdminService) Release(ctx context.Context, id uint, units int) (*models.FlashSale, error) {
	if err := s.inventory.Release(ctx, id, units); err != nil {
		return nil, err
	}
	sale, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.views.InvalidateView(ctx, sale.ProductID)
	return sale, nil
}

func (s *FlashSaleAdminService) ensureProduct(ctx context.Context, productID uint) error {
	product, err := s.productRepo.WithContext(ctx).GetByID(productID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return nil
}

func validateFlashSaleInput(input FlashSaleInput) error {
	if input.ProductID == 0 || input.Capacity < 0 {
		return ErrFlashSaleInvalid
	}
	if input.PercentageDiscount <= 0 || input.PercentageDiscount > 100 {
		return ErrFlashSaleInvalid
	}
	if input.StartTime.IsZero() || input.EndTime.IsZero() || !input.StartTime.Before(input.EndTime) {
		return ErrFlashSaleInvalid
	}
	return nil
}
