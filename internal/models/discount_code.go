package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountCode 店铺优惠码
type DiscountCode struct {
	ID               uint            `gorm:"primarykey" json:"id"`                                                                 // 主键
	StoreID          uint            `gorm:"not null;uniqueIndex:idx_discount_store_code,priority:1" json:"store_id"`              // 店铺ID
	Code             string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_discount_store_code,priority:2" json:"code"` // 优惠码（店铺内唯一）
	Name             string          `gorm:"type:varchar(255)" json:"name"`                                                        // 名称
	DiscountType     string          `gorm:"type:varchar(20);not null" json:"discount_type"`                                       // 类型（percentage/fixed）
	DiscountValue    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"discount_value"`                                    // 数值（百分比或固定金额）
	MinOrderAmount   Money           `gorm:"type:decimal(20,0);not null;default:0" json:"min_order_amount"`                        // 使用门槛
	MaxDiscountValue Money           `gorm:"type:decimal(20,0);not null;default:0" json:"max_discount_value"`                      // 百分比折扣上限（0 表示不封顶）
	Quantity         int             `gorm:"not null;default:0" json:"quantity"`                                                   // 总可用次数
	UsedCount        int             `gorm:"not null;default:0" json:"used_count"`                                                 // 已使用次数
	UsagePerCustomer int             `gorm:"not null;default:0" json:"usage_per_customer"`                                         // 每人使用上限（0 表示不限制）
	AppliesTo        string          `gorm:"type:varchar(20);not null;default:'shop'" json:"applies_to"`                           // 适用范围（shop/products）
	ProductIDs       UintArray       `gorm:"type:text" json:"product_ids"`                                                         // 适用商品ID集合
	AutoApply        bool            `gorm:"not null;default:false" json:"auto_apply"`                                             // 是否自动应用
	Priority         int             `gorm:"not null;default:0;index" json:"priority"`                                             // 优先级（越小越优先）
	StartDate        time.Time       `gorm:"index;not null" json:"start_date"`                                                     // 生效时间（含）
	EndDate          time.Time       `gorm:"index;not null" json:"end_date"`                                                       // 失效时间（含）
	IsActive         bool            `gorm:"not null;default:true;index" json:"is_active"`                                         // 是否启用
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`                                                              // 创建时间
	UpdatedAt        time.Time       `gorm:"index" json:"updated_at"`                                                              // 更新时间
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`                                                                       // 软删除时间
}

// TableName 指定表名
func (DiscountCode) TableName() string {
	return "discount_codes"
}

// InWindow 判断时间点是否落在 [StartDate, EndDate] 闭区间内
func (d DiscountCode) InWindow(now time.Time) bool {
	return !now.Before(d.StartDate) && !now.After(d.EndDate)
}

// Remaining 剩余可用次数
func (d DiscountCode) Remaining() int {
	left := d.Quantity - d.UsedCount
	if left < 0 {
		return 0
	}
	return left
}
