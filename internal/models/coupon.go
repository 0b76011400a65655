package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon 优惠券定义（商户模板）
type Coupon struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Title          string         `gorm:"not null" json:"title"`                                         // 标题
	StoreID        uint           `gorm:"index;not null" json:"store_id"`                                // 所属门店
	GroupKey       string         `gorm:"index;not null" json:"group_key"`                               // 互斥组键（同组每人最多持有一张生效券）
	Type           string         `gorm:"not null" json:"type"`                                          // 优惠类型（fixed/percent）
	Value          Money          `gorm:"type:decimal(20,2);not null" json:"value"`                      // 数值（固定金额或百分比）
	MaxDiscount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_discount"`     // 最大优惠金额（percent 封顶，0 表示不封顶）
	MinOrderAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_order_amount"` // 使用门槛
	TotalQuantity  *int           `json:"total_quantity"`                                                // 可发放总量（null 表示不限量）
	PerUserLimit   int            `gorm:"not null;default:1" json:"per_user_limit"`                      // 每人领取上限
	ApprovalStatus string         `gorm:"index;not null;default:draft" json:"approval_status"`           // 审核状态（draft/pending/approved/rejected）
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`                        // 是否启用
	ValidFrom      *time.Time     `gorm:"index" json:"valid_from"`                                       // 生效时间（null 不限）
	ValidTo        *time.Time     `gorm:"index" json:"valid_to"`                                         // 失效时间（null 不限）
	GeoLatitude    *float64       `json:"geo_latitude"`                                                  // 地理围栏中心纬度（null 表示不限地域）
	GeoLongitude   *float64       `json:"geo_longitude"`                                                 // 地理围栏中心经度
	GeoRadiusKM    *float64       `json:"geo_radius_km"`                                                 // 地理围栏半径（公里）
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// HasGeofence 判断是否配置了地理围栏
func (c *Coupon) HasGeofence() bool {
	return c != nil && c.GeoLatitude != nil && c.GeoLongitude != nil && c.GeoRadiusKM != nil && *c.GeoRadiusKM > 0
}
