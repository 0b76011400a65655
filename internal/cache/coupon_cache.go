package cache

import (
	"context"
	"time"

	"github.com/lingquan-next/internal/models"
)

const claimableCouponsCacheTTL = time.Minute

const claimableCouponsKey = "coupon:claimable"

// ClaimableCouponsSnapshot 可领取券列表快照
// 地理排序按请求坐标实时计算，缓存里只存全集
type ClaimableCouponsSnapshot struct {
	Coupons  []models.Coupon `json:"coupons"`
	CachedAt int64           `json:"cached_at"`
}

// GetClaimableCoupons 获取可领取券列表快照
func GetClaimableCoupons(ctx context.Context) (*ClaimableCouponsSnapshot, bool, error) {
	var snapshot ClaimableCouponsSnapshot
	hit, err := GetJSON(ctx, claimableCouponsKey, &snapshot)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &snapshot, true, nil
}

// SetClaimableCoupons 写入可领取券列表快照
func SetClaimableCoupons(ctx context.Context, snapshot *ClaimableCouponsSnapshot) error {
	if snapshot == nil {
		return nil
	}
	return SetJSON(ctx, claimableCouponsKey, snapshot, claimableCouponsCacheTTL)
}

// InvalidateClaimableCoupons 删除可领取券列表快照，券定义变更后调用
func InvalidateClaimableCoupons(ctx context.Context) error {
	return Del(ctx, claimableCouponsKey)
}
