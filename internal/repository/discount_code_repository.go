package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/models"

	"gorm.io/gorm"
)

// DiscountCodeRepository 优惠码数据访问接口
type DiscountCodeRepository interface {
	GetByID(id uint) (*models.DiscountCode, error)
	GetByStoreAndCode(storeID uint, code string) (*models.DiscountCode, error)
	ExistsInOtherStore(storeID uint, code string) (bool, error)
	ListEligibleByStore(storeID uint, now time.Time) ([]models.DiscountCode, error)
	ListExpiringBetween(from, to time.Time) ([]models.DiscountCode, error)
	ConsumeOne(id uint) (int64, error)
	ReleaseOne(id uint) (int64, error)
	DeactivateExpired(now time.Time) (int64, error)
	Create(code *models.DiscountCode) error
	UpdateSettings(code *models.DiscountCode) (int64, error)
	Delete(id uint) error
	List(filter DiscountCodeListFilter) ([]models.DiscountCode, int64, error)
	WithTx(tx *gorm.DB) *GormDiscountCodeRepository
	WithContext(ctx context.Context) *GormDiscountCodeRepository
}

// DiscountCodeListFilter 优惠码列表筛选
type DiscountCodeListFilter struct {
	StoreID   uint
	Keyword   string
	ProductID uint
	IsActive  *bool
	AutoApply *bool
	Page      int
	PageSize  int
}

// GormDiscountCodeRepository GORM 实现
type GormDiscountCodeRepository struct {
	db *gorm.DB
}

// NewDiscountCodeRepository 创建优惠码仓库
func NewDiscountCodeRepository(db *gorm.DB) *GormDiscountCodeRepository {
	return &GormDiscountCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDiscountCodeRepository) WithTx(tx *gorm.DB) *GormDiscountCodeRepository {
	if tx == nil {
		return r
	}
	return &GormDiscountCodeRepository{db: tx}
}

// WithContext 绑定请求上下文（超时/取消）
func (r *GormDiscountCodeRepository) WithContext(ctx context.Context) *GormDiscountCodeRepository {
	if ctx == nil {
		return r
	}
	return &GormDiscountCodeRepository{db: r.db.WithContext(ctx)}
}

// NormalizeCode 优惠码统一去空格并转大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GetByID 根据ID获取优惠码
func (r *GormDiscountCodeRepository) GetByID(id uint) (*models.DiscountCode, error) {
	var code models.DiscountCode
	if err := r.db.First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetByStoreAndCode 根据店铺与优惠码获取
func (r *GormDiscountCodeRepository) GetByStoreAndCode(storeID uint, code string) (*models.DiscountCode, error) {
	var discount models.DiscountCode
	err := r.db.Where("store_id = ? AND code = ?", storeID, NormalizeCode(code)).First(&discount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &discount, nil
}

// ExistsInOtherStore 判断优惠码是否属于其他店铺
func (r *GormDiscountCodeRepository) ExistsInOtherStore(storeID uint, code string) (bool, error) {
	var count int64
	err := r.db.Model(&models.DiscountCode{}).
		Where("store_id <> ? AND code = ?", storeID, NormalizeCode(code)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListEligibleByStore 获取店铺内当前可用的优惠码（启用、时间窗口内、未用尽）
func (r *GormDiscountCodeRepository) ListEligibleByStore(storeID uint, now time.Time) ([]models.DiscountCode, error) {
	now = now.UTC()
	var codes []models.DiscountCode
	err := r.db.
		Where("store_id = ? AND is_active = ?", storeID, true).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Where("used_count < quantity").
		Order("priority asc").
		Order("end_date asc").
		Order("id asc").
		Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// ListExpiringBetween 获取在指定区间内到期且仍启用的优惠码
func (r *GormDiscountCodeRepository) ListExpiringBetween(from, to time.Time) ([]models.DiscountCode, error) {
	var codes []models.DiscountCode
	err := r.db.
		Where("is_active = ?", true).
		Where("end_date >= ? AND end_date <= ?", from.UTC(), to.UTC()).
		Order("end_date asc").
		Order("id asc").
		Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// ConsumeOne 条件累加使用次数，仅在未用尽时成功
func (r *GormDiscountCodeRepository) ConsumeOne(id uint) (int64, error) {
	result := r.db.Model(&models.DiscountCode{}).
		Where("id = ? AND used_count < quantity", id).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseOne 回退一次使用次数
func (r *GormDiscountCodeRepository) ReleaseOne(id uint) (int64, error) {
	result := r.db.Model(&models.DiscountCode{}).
		Where("id = ? AND used_count >= ?", id, 1).
		UpdateColumn("used_count", gorm.Expr("used_count - ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeactivateExpired 将已过期仍启用的优惠码置为停用，返回本次变更数量
func (r *GormDiscountCodeRepository) DeactivateExpired(now time.Time) (int64, error) {
	now = now.UTC()
	result := r.db.Model(&models.DiscountCode{}).
		Where("is_active = ? AND end_date < ?", true, now).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Create 创建优惠码
func (r *GormDiscountCodeRepository) Create(code *models.DiscountCode) error {
	return r.db.Create(code).Error
}

// UpdateSettings 更新商家可编辑字段；used_count 只由核销/撤销修改，且总量不得低于已使用次数
func (r *GormDiscountCodeRepository) UpdateSettings(code *models.DiscountCode) (int64, error) {
	result := r.db.Model(&models.DiscountCode{}).
		Where("id = ? AND used_count <= ?", code.ID, code.Quantity).
		Updates(map[string]interface{}{
			"code":               code.Code,
			"name":               code.Name,
			"discount_type":      code.DiscountType,
			"discount_value":     code.DiscountValue,
			"min_order_amount":   code.MinOrderAmount,
			"max_discount_value": code.MaxDiscountValue,
			"quantity":           code.Quantity,
			"usage_per_customer": code.UsagePerCustomer,
			"applies_to":         code.AppliesTo,
			"product_ids":        code.ProductIDs,
			"auto_apply":         code.AutoApply,
			"priority":           code.Priority,
			"start_date":         code.StartDate.UTC(),
			"end_date":           code.EndDate.UTC(),
			"is_active":          code.IsActive,
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete 删除优惠码
func (r *GormDiscountCodeRepository) Delete(id uint) error {
	return r.db.Delete(&models.DiscountCode{}, id).Error
}

// List 获取优惠码列表
func (r *GormDiscountCodeRepository) List(filter DiscountCodeListFilter) ([]models.DiscountCode, int64, error) {
	var codes []models.DiscountCode
	query := r.db.Model(&models.DiscountCode{})

	if filter.StoreID > 0 {
		query = query.Where("store_id = ?", filter.StoreID)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"code", "name"})
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}
	if filter.ProductID > 0 {
		condition, args := jsonIDArrayMatch("product_ids", filter.ProductID)
		query = query.Where(condition, args...)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.AutoApply != nil {
		query = query.Where("auto_apply = ?", *filter.AutoApply)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id desc").Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}
