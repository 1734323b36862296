package models

import "time"

// Store 店铺只读视图
type Store struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                           // 主键
	Name      string    `gorm:"type:varchar(255)" json:"name"`                                  // 店铺名称
	Status    string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"` // 状态（active/inactive/banned）
	CreatedAt time.Time `json:"created_at"`                                                     // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                                     // 更新时间
}

// TableName 指定表名
func (Store) TableName() string {
	return "stores"
}
