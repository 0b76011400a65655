package repository

import "time"

// CouponListFilter 查询优惠券定义列表的过滤条件
type CouponListFilter struct {
	Page           int
	PageSize       int
	StoreID        uint
	GroupKey       string
	ApprovalStatus string
	Search         string
	IsActive       *bool
	OnlyClaimable  bool       // 仅已审核启用、且处于有效期内的券
	Now            *time.Time // OnlyClaimable 的时间基准
}

// IssuanceListFilter 查询持券记录列表的过滤条件
type IssuanceListFilter struct {
	Page     int
	PageSize int
	HolderID uint
	CouponID uint
	StoreID  uint
	Status   string
	Code     string
}

// StoreListFilter 查询门店列表的过滤条件
type StoreListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
}
