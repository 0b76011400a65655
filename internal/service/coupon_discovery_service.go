package service

import (
	"context"
	"sort"
	"time"

	"github.com/lingquan-next/internal/cache"
	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/geo"
	"github.com/lingquan-next/internal/logger"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/repository"
)

// DiscoveryService 可领取券发现：附近券列表与券详情
type DiscoveryService struct {
	couponRepo repository.CouponRepository
	now        func() time.Time
}

// NewDiscoveryService 创建发现服务
func NewDiscoveryService(couponRepo repository.CouponRepository) *DiscoveryService {
	return &DiscoveryService{couponRepo: couponRepo, now: time.Now}
}

// NearbyInput 附近券查询输入
type NearbyInput struct {
	Latitude  *float64
	Longitude *float64
	RadiusKM  float64 // 0 表示不限制距离
	StoreID   uint
	Limit     int
}

// NearbyCoupon 附近券条目，带距离信息
type NearbyCoupon struct {
	Coupon     models.Coupon `json:"coupon"`
	DistanceKM *float64      `json:"distance_km,omitempty"`
	InRange    bool          `json:"in_range"`
}

// ListNearby 查询当前可领取的券，按领取人位置由近及远排序。
// 未提供位置时按创建时间倒序返回，带围栏的券标记为范围外。
func (s *DiscoveryService) ListNearby(ctx context.Context, input NearbyInput) ([]NearbyCoupon, error) {
	coupons, err := s.loadClaimable(ctx)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	items := make([]NearbyCoupon, 0, len(coupons))
	for i := range coupons {
		coupon := coupons[i]
		if input.StoreID != 0 && coupon.StoreID != input.StoreID {
			continue
		}
		item := NearbyCoupon{Coupon: coupon, InRange: true}
		if coupon.HasGeofence() {
			if input.Latitude == nil || input.Longitude == nil {
				item.InRange = false
			} else {
				d := geo.DistanceKM(*input.Latitude, *input.Longitude, *coupon.GeoLatitude, *coupon.GeoLongitude)
				item.DistanceKM = &d
				item.InRange = d <= *coupon.GeoRadiusKM
			}
		} else if input.Latitude != nil && input.Longitude != nil && coupon.GeoLatitude != nil && coupon.GeoLongitude != nil {
			d := geo.DistanceKM(*input.Latitude, *input.Longitude, *coupon.GeoLatitude, *coupon.GeoLongitude)
			item.DistanceKM = &d
		}
		if input.RadiusKM > 0 && item.DistanceKM != nil && *item.DistanceKM > input.RadiusKM {
			continue
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].DistanceKM, items[j].DistanceKM
		if di != nil && dj != nil {
			return *di < *dj
		}
		// 有距离的排在前面
		return di != nil && dj == nil
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// GetCoupon 查询单张券定义，仅返回已上架且审核通过的券
func (s *DiscoveryService) GetCoupon(id uint) (*models.Coupon, error) {
	if id == 0 {
		return nil, ErrCouponNotFound
	}
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil || !coupon.IsActive || coupon.ApprovalStatus != constants.CouponApprovalApproved {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// loadClaimable 读取可领取券全集，优先走缓存
func (s *DiscoveryService) loadClaimable(ctx context.Context) ([]models.Coupon, error) {
	if snapshot, hit, err := cache.GetClaimableCoupons(ctx); err == nil && hit {
		return snapshot.Coupons, nil
	} else if err != nil {
		logger.Warnw("claimable_cache_read_failed", "error", err)
	}

	now := s.now()
	coupons, _, err := s.couponRepo.List(repository.CouponListFilter{
		Page:          1,
		PageSize:      500,
		OnlyClaimable: true,
		Now:           &now,
	})
	if err != nil {
		return nil, err
	}

	if err := cache.SetClaimableCoupons(ctx, &cache.ClaimableCouponsSnapshot{
		Coupons:  coupons,
		CachedAt: now.Unix(),
	}); err != nil {
		logger.Warnw("claimable_cache_write_failed", "error", err)
	}
	return coupons, nil
}
