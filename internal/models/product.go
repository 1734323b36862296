package models

import (
	"time"
)

// Product 商品只读视图（由商品服务维护，这里只读取上架状态与价格）
type Product struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                      // 主键
	StoreID     uint      `gorm:"index;not null" json:"store_id"`                            // 所属店铺ID
	Name        string    `gorm:"type:varchar(255)" json:"name"`                             // 名称
	PriceAmount Money     `gorm:"type:decimal(20,0);not null;default:0" json:"price_amount"` // 原价
	IsActive    bool      `gorm:"default:true;index" json:"is_active"`                       // 是否上架
	CreatedAt   time.Time `json:"created_at"`                                                // 创建时间
	UpdatedAt   time.Time `json:"updated_at"`                                                // 更新时间
	Store       *Store    `gorm:"foreignKey:StoreID" json:"store,omitempty"`                 // 店铺信息
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
