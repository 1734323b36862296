package repository

import (
	"context"
	"errors"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/models"

	"gorm.io/gorm"
)

// FlashSaleRepository 秒杀配额数据访问接口
type FlashSaleRepository interface {
	GetByID(id uint) (*models.FlashSale, error)
	FindActiveByProduct(productID uint, now time.Time) (*models.FlashSale, error)
	FindActiveByProducts(productIDs []uint, now time.Time) ([]models.FlashSale, error)
	Reserve(id uint, units int, now time.Time) (int64, error)
	Release(id uint, units int) (int64, error)
	HasOverlap(productID uint, start, end time.Time, excludeID uint) (bool, error)
	ListEndingBetween(from, to time.Time) ([]models.FlashSale, error)
	Create(sale *models.FlashSale) error
	UpdateSettings(sale *models.FlashSale) (int64, error)
	Delete(id uint) error
	List(filter FlashSaleListFilter) ([]models.FlashSale, int64, error)
	WithTx(tx *gorm.DB) *GormFlashSaleRepository
	WithContext(ctx context.Context) *GormFlashSaleRepository
}

// FlashSaleListFilter 秒杀列表筛选
type FlashSaleListFilter struct {
	ProductID  uint
	StoreID    uint
	OnlyActive bool
	Now        time.Time
	Page       int
	PageSize   int
}

// GormFlashSaleRepository GORM 实现
type GormFlashSaleRepository struct {
	db *gorm.DB
}

// NewFlashSaleRepository 创建秒杀配额仓库
func NewFlashSaleRepository(db *gorm.DB) *GormFlashSaleRepository {
	return &GormFlashSaleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormFlashSaleRepository) WithTx(tx *gorm.DB) *GormFlashSaleRepository {
	if tx == nil {
		return r
	}
	return &GormFlashSaleRepository{db: tx}
}

// WithContext 绑定请求上下文（超时/取消）
func (r *GormFlashSaleRepository) WithContext(ctx context.Context) *GormFlashSaleRepository {
	if ctx == nil {
		return r
	}
	return &GormFlashSaleRepository{db: r.db.WithContext(ctx)}
}

// GetByID 根据ID获取秒杀配额
func (r *GormFlashSaleRepository) GetByID(id uint) (*models.FlashSale, error) {
	var sale models.FlashSale
	if err := r.db.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// activeQuery 构建“当前生效”谓词：时间窗口、剩余配额、折扣比例合法、商品上架、店铺正常
func (r *GormFlashSaleRepository) activeQuery(now time.Time) *gorm.DB {
	now = now.UTC()
	return r.db.Model(&models.FlashSale{}).
		Select("flash_sales.*").
		Joins("JOIN products ON products.id = flash_sales.product_id").
		Joins("JOIN stores ON stores.id = products.store_id").
		Where("flash_sales.start_time <= ? AND flash_sales.end_time >= ?", now, now).
		Where("flash_sales.consumed < flash_sales.capacity").
		Where("flash_sales.percentage_discount BETWEEN ? AND ?", 1, 100).
		Where("products.is_active = ?", true).
		Where("stores.status = ?", constants.StoreStatusActive)
}

// FindActiveByProduct 获取商品当前生效的秒杀配额，不存在时返回 nil
func (r *GormFlashSaleRepository) FindActiveByProduct(productID uint, now time.Time) (*models.FlashSale, error) {
	var sale models.FlashSale
	err := r.activeQuery(now).
		Where("flash_sales.product_id = ?", productID).
		Order("flash_sales.end_time asc").
		Order("flash_sales.id asc").
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// FindActiveByProducts 批量获取商品当前生效的秒杀配额
func (r *GormFlashSaleRepository) FindActiveByProducts(productIDs []uint, now time.Time) ([]models.FlashSale, error) {
	if len(productIDs) == 0 {
		return []models.FlashSale{}, nil
	}
	var sales []models.FlashSale
	err := r.activeQuery(now).
		Where("flash_sales.product_id IN ?", productIDs).
		Order("flash_sales.end_time asc").
		Order("flash_sales.id asc").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// Reserve 条件更新预占配额，返回受影响行数（1 表示成功）
func (r *GormFlashSaleRepository) Reserve(id uint, units int, now time.Time) (int64, error) {
	if id == 0 || units <= 0 {
		return 0, nil
	}
	now = now.UTC()
	result := r.db.Model(&models.FlashSale{}).
		Where("id = ? AND consumed + ? <= capacity", id, units).
		Where("start_time <= ? AND end_time >= ?", now, now).
		Updates(map[string]interface{}{
			"consumed":   gorm.Expr("consumed + ?", units),
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Release 释放已预占配额，最低减至 0，返回受影响行数
func (r *GormFlashSaleRepository) Release(id uint, units int) (int64, error) {
	if id == 0 || units <= 0 {
		return 0, nil
	}
	result := r.db.Model(&models.FlashSale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"consumed":   gorm.Expr("CASE WHEN consumed >= ? THEN consumed - ? ELSE 0 END", units, units),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// HasOverlap 判断同一商品是否存在时间窗口重叠的秒杀
func (r *GormFlashSaleRepository) HasOverlap(productID uint, start, end time.Time, excludeID uint) (bool, error) {
	query := r.db.Model(&models.FlashSale{}).
		Where("product_id = ?", productID).
		Where("start_time <= ? AND end_time >= ?", end.UTC(), start.UTC())
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListEndingBetween 获取在指定区间内结束且仍有剩余配额的秒杀
func (r *GormFlashSaleRepository) ListEndingBetween(from, to time.Time) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	err := r.db.
		Where("end_time >= ? AND end_time <= ?", from.UTC(), to.UTC()).
		Where("consumed < capacity").
		Order("end_time asc").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// Create 创建秒杀配额
func (r *GormFlashSaleRepository) Create(sale *models.FlashSale) error {
	return r.db.Create(sale).Error
}

// UpdateSettings 更新商家可编辑字段；consumed 只由预占/释放修改，且容量不得低于已消耗量
func (r *GormFlashSaleRepository) UpdateSettings(sale *models.FlashSale) (int64, error) {
	result := r.db.Model(&models.FlashSale{}).
		Where("id = ? AND consumed <= ?", sale.ID, sale.Capacity).
		Updates(map[string]interface{}{
			"product_id":          sale.ProductID,
			"percentage_discount": sale.PercentageDiscount,
			"capacity":            sale.Capacity,
			"start_time":          sale.StartTime.UTC(),
			"end_time":            sale.EndTime.UTC(),
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete 软删除秒杀配额
func (r *GormFlashSaleRepository) Delete(id uint) error {
	return r.db.Delete(&models.FlashSale{}, id).Error
}

// List 获取秒杀列表
func (r *GormFlashSaleRepository) List(filter FlashSaleListFilter) ([]models.FlashSale, int64, error) {
	var sales []models.FlashSale
	query := r.db.Model(&models.FlashSale{})

	if filter.ProductID > 0 {
		query = query.Where("flash_sales.product_id = ?", filter.ProductID)
	}
	if filter.StoreID > 0 {
		query = query.Where("flash_sales.product_id IN (?)",
			r.db.Model(&models.Product{}).Select("id").Where("store_id = ?", filter.StoreID))
	}
	if filter.OnlyActive {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		now = now.UTC()
		query = query.Where("flash_sales.start_time <= ? AND flash_sales.end_time >= ?", now, now).
			Where("flash_sales.consumed < flash_sales.capacity")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("flash_sales.id desc").Find(&sales).Error; err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}
