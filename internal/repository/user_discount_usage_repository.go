package repository

import (
	"context"

	"github.com/khatmdev/quadramall-promo/internal/models"

	"gorm.io/gorm"
)

// UserDiscountUsageRepository 优惠码使用记录数据访问接口
type UserDiscountUsageRepository interface {
	Create(usage *models.UserDiscountUsage) error
	CountByUser(userID, discountID uint) (int64, error)
	CountByUserForDiscounts(userID uint, discountIDs []uint) (map[uint]int64, error)
	ListByOrderID(orderID string) ([]models.UserDiscountUsage, error)
	DeleteByOrderID(orderID string) (int64, error)
	WithTx(tx *gorm.DB) *GormUserDiscountUsageRepository
	WithContext(ctx context.Context) *GormUserDiscountUsageRepository
}

// GormUserDiscountUsageRepository GORM 实现
type GormUserDiscountUsageRepository struct {
	db *gorm.DB
}

// NewUserDiscountUsageRepository 创建使用记录仓库
func NewUserDiscountUsageRepository(db *gorm.DB) *GormUserDiscountUsageRepository {
	return &GormUserDiscountUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserDiscountUsageRepository) WithTx(tx *gorm.DB) *GormUserDiscountUsageRepository {
	if tx == nil {
		return r
	}
	return &GormUserDiscountUsageRepository{db: tx}
}

// WithContext 绑定请求上下文（超时/取消）
func (r *GormUserDiscountUsageRepository) WithContext(ctx context.Context) *GormUserDiscountUsageRepository {
	if ctx == nil {
		return r
	}
	return &GormUserDiscountUsageRepository{db: r.db.WithContext(ctx)}
}

// Create 创建使用记录
func (r *GormUserDiscountUsageRepository) Create(usage *models.UserDiscountUsage) error {
	return r.db.Create(usage).Error
}

// CountByUser 统计用户对某优惠码的使用次数
func (r *GormUserDiscountUsageRepository) CountByUser(userID, discountID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.UserDiscountUsage{}).
		Where("user_id = ? AND discount_id = ?", userID, discountID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByUserForDiscounts 批量统计用户对多个优惠码的使用次数
func (r *GormUserDiscountUsageRepository) CountByUserForDiscounts(userID uint, discountIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(discountIDs))
	if userID == 0 || len(discountIDs) == 0 {
		return counts, nil
	}
	type row struct {
		DiscountID uint
		Total      int64
	}
	var rows []row
	err := r.db.Model(&models.UserDiscountUsage{}).
		Select("discount_id, COUNT(*) AS total").
		Where("user_id = ? AND discount_id IN ?", userID, discountIDs).
		Group("discount_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, item := range rows {
		counts[item.DiscountID] = item.Total
	}
	return counts, nil
}

// ListByOrderID 获取订单的使用记录
func (r *GormUserDiscountUsageRepository) ListByOrderID(orderID string) ([]models.UserDiscountUsage, error) {
	var usages []models.UserDiscountUsage
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

// DeleteByOrderID 删除订单的使用记录
func (r *GormUserDiscountUsageRepository) DeleteByOrderID(orderID string) (int64, error) {
	result := r.db.Where("order_id = ?", orderID).Delete(&models.UserDiscountUsage{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
