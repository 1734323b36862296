package models

import (
	"time"
)

// UserDiscountUsage 用户优惠码使用记录
type UserDiscountUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                 // 主键
	UserID         uint      `gorm:"index:idx_usage_user_discount,priority:1;not null" json:"user_id"`     // 用户ID
	DiscountID     uint      `gorm:"index:idx_usage_user_discount,priority:2;not null" json:"discount_id"` // 优惠码ID
	OrderID        string    `gorm:"type:varchar(64);index;not null" json:"order_id"`                      // 订单号
	DiscountAmount Money     `gorm:"type:decimal(20,0);not null;default:0" json:"discount_amount"`         // 优惠金额
	UsedAt         time.Time `gorm:"index;not null" json:"used_at"`                                        // 使用时间
	CreatedAt      time.Time `json:"created_at"`                                                           // 创建时间
}

// TableName 指定表名
func (UserDiscountUsage) TableName() string {
	return "user_discount_usages"
}
