package models

import (
	"time"

	"gorm.io/gorm"
)

// FlashSale 限时限量秒杀配额
type FlashSale struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                          // 主键
	ProductID          uint           `gorm:"index;not null" json:"product_id"`              // 商品ID
	PercentageDiscount int            `gorm:"not null" json:"percentage_discount"`           // 折扣百分比（1-100）
	Capacity           int            `gorm:"not null;default:0" json:"capacity"`            // 配额总量
	Consumed           int            `gorm:"not null;default:0" json:"consumed"`            // 已消耗数量（仅由预占/释放修改）
	StartTime          time.Time      `gorm:"index;not null" json:"start_time"`              // 开始时间（含）
	EndTime            time.Time      `gorm:"index;not null" json:"end_time"`                // 结束时间（含）
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间
	Product            *Product       `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 商品信息
}

// TableName 指定表名
func (FlashSale) TableName() string {
	return "flash_sales"
}

// Remaining 剩余可售数量
func (f FlashSale) Remaining() int {
	left := f.Capacity - f.Consumed
	if left < 0 {
		return 0
	}
	return left
}

// InWindow 判断时间点是否落在 [StartTime, EndTime] 闭区间内
func (f FlashSale) InWindow(now time.Time) bool {
	return !now.Before(f.StartTime) && !now.After(f.EndTime)
}
