package models

import (
	"time"

	"gorm.io/gorm"
)

// Store 商户门店
type Store struct {
	ID        uint           `gorm:"primarykey" json:"id"`                  // 主键
	Name      string         `gorm:"not null" json:"name"`                  // 门店名称
	Address   string         `json:"address"`                               // 门店地址
	Latitude  float64        `gorm:"not null" json:"latitude"`              // 纬度
	Longitude float64        `gorm:"not null" json:"longitude"`             // 经度
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"` // 是否营业
	CreatedAt time.Time      `gorm:"index" json:"created_at"`               // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`               // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                        // 软删除时间
}

// TableName 指定表名
func (Store) TableName() string {
	return "stores"
}
