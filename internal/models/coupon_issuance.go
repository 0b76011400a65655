package models

import (
	"time"
)

// CouponIssuance 持券记录（一张已发放到用户的券）
// 说明：状态只由领取、转赠、核销三个引擎迁移，用户不可直接修改。
type CouponIssuance struct {
	ID                 uint       `gorm:"primarykey" json:"id"`                              // 主键
	CouponID           uint       `gorm:"index;not null" json:"coupon_id"`                   // 优惠券定义ID
	HolderID           uint       `gorm:"index;not null" json:"holder_id"`                   // 持有人ID
	Code               string     `gorm:"uniqueIndex;not null" json:"code"`                  // 核销码
	Status             string     `gorm:"index;not null;default:active" json:"status"`       // 状态（active/used/expired/cancelled）
	ClaimMethod        string     `gorm:"not null" json:"claim_method"`                      // 领取方式（event/wallet/gift）
	IssuedAt           time.Time  `gorm:"not null" json:"issued_at"`                         // 发放时间
	ExpiresAt          time.Time  `gorm:"index;not null" json:"expires_at"`                  // 过期时间
	GiftToken          *string    `gorm:"uniqueIndex" json:"-"`                              // 转赠令牌（单次有效）
	GiftTokenExpiresAt *time.Time `json:"gift_token_expires_at,omitempty"`                   // 转赠令牌过期时间
	GiftedFrom         *uint      `json:"gifted_from,omitempty"`                             // 转赠来源用户ID
	GiftedTo           *uint      `json:"gifted_to,omitempty"`                               // 转赠去向用户ID
	UsedAt             *time.Time `json:"used_at,omitempty"`                                 // 核销时间
	UsedStoreID        *uint      `json:"used_store_id,omitempty"`                           // 核销门店ID
	DiscountApplied    *Money     `gorm:"type:decimal(20,2)" json:"discount_applied,omitempty"` // 核销时抵扣金额
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt          time.Time  `gorm:"index" json:"updated_at"`                           // 更新时间
}

// TableName 指定表名
func (CouponIssuance) TableName() string {
	return "coupon_issuances"
}

// IsOverdue 判断在给定时刻是否已过持有有效期
func (i *CouponIssuance) IsOverdue(now time.Time) bool {
	return i != nil && now.After(i.ExpiresAt)
}

// HasPendingGift 判断在给定时刻是否存在未消耗且未过期的转赠令牌
func (i *CouponIssuance) HasPendingGift(now time.Time) bool {
	if i == nil || i.GiftToken == nil || *i.GiftToken == "" {
		return false
	}
	return i.GiftTokenExpiresAt != nil && now.Before(*i.GiftTokenExpiresAt)
}
