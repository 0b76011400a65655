package service

import (
	"context"
	"strings"
	"time"

	"github.com/lingquan-next/internal/cache"
	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/logger"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CouponAdminService 后台券定义管理
type CouponAdminService struct {
	couponRepo repository.CouponRepository
	storeRepo  repository.StoreRepository
}

// NewCouponAdminService 创建券管理服务
func NewCouponAdminService(couponRepo repository.CouponRepository, storeRepo repository.StoreRepository) *CouponAdminService {
	return &CouponAdminService{couponRepo: couponRepo, storeRepo: storeRepo}
}

// CouponInput 创建/更新券定义输入
type CouponInput struct {
	Title          string
	StoreID        uint
	GroupKey       string
	Type           string
	Value          decimal.Decimal
	MaxDiscount    decimal.Decimal // 0 表示不封顶
	MinOrderAmount decimal.Decimal // 0 表示无门槛
	TotalQuantity  *int
	PerUserLimit   int
	ValidFrom      *time.Time
	ValidTo        *time.Time
	GeoLatitude    *float64
	GeoLongitude   *float64
	GeoRadiusKM    *float64
}

// ListAdmin 后台券列表
func (s *CouponAdminService) ListAdmin(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.couponRepo.List(filter)
}

// GetByID 后台券详情
func (s *CouponAdminService) GetByID(id uint) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// Create 创建券定义，初始为草稿态
func (s *CouponAdminService) Create(ctx context.Context, input CouponInput) (*models.Coupon, error) {
	coupon := &models.Coupon{ApprovalStatus: constants.CouponApprovalDraft, IsActive: true}
	if err := s.applyInput(coupon, input); err != nil {
		return nil, err
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)
	return coupon, nil
}

// Update 更新券定义，已审核的券修改后退回待审
func (s *CouponAdminService) Update(ctx context.Context, id uint, input CouponInput) (*models.Coupon, error) {
	coupon, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.applyInput(coupon, input); err != nil {
		return nil, err
	}
	if coupon.ApprovalStatus == constants.CouponApprovalApproved {
		coupon.ApprovalStatus = constants.CouponApprovalPending
	}
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)
	return coupon, nil
}

// SubmitForApproval 草稿/驳回的券提交审核
func (s *CouponAdminService) SubmitForApproval(ctx context.Context, id uint) (*models.Coupon, error) {
	coupon, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon.ApprovalStatus != constants.CouponApprovalDraft && coupon.ApprovalStatus != constants.CouponApprovalRejected {
		return nil, ErrCouponInvalid
	}
	coupon.ApprovalStatus = constants.CouponApprovalPending
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)
	return coupon, nil
}

// Approve 审核通过
func (s *CouponAdminService) Approve(ctx context.Context, id uint) (*models.Coupon, error) {
	return s.review(ctx, id, constants.CouponApprovalApproved)
}

// Reject 审核驳回
func (s *CouponAdminService) Reject(ctx context.Context, id uint) (*models.Coupon, error) {
	return s.review(ctx, id, constants.CouponApprovalRejected)
}

func (s *CouponAdminService) review(ctx context.Context, id uint, status string) (*models.Coupon, error) {
	coupon, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon.ApprovalStatus != constants.CouponApprovalPending {
		return nil, ErrCouponInvalid
	}
	coupon.ApprovalStatus = status
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)
	return coupon, nil
}

// SetActive 上下架
func (s *CouponAdminService) SetActive(ctx context.Context, id uint, active bool) (*models.Coupon, error) {
	coupon, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	coupon.IsActive = active
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)
	return coupon, nil
}

// Delete 删除券定义（软删除），已发出的持券不受影响
func (s *CouponAdminService) Delete(ctx context.Context, id uint) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}
	if err := s.couponRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *CouponAdminService) applyInput(coupon *models.Coupon, input CouponInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return ErrCouponInvalid
	}
	groupKey := strings.TrimSpace(input.GroupKey)
	if groupKey == "" {
		return ErrCouponInvalid
	}

	couponType := strings.ToLower(strings.TrimSpace(input.Type))
	switch couponType {
	case constants.CouponTypeFixed:
		if input.Value.LessThanOrEqual(decimal.Zero) {
			return ErrCouponInvalid
		}
	case constants.CouponTypePercent:
		if input.Value.LessThanOrEqual(decimal.Zero) || input.Value.GreaterThan(decimal.NewFromInt(100)) {
			return ErrCouponInvalid
		}
	default:
		return ErrCouponInvalid
	}

	if input.TotalQuantity != nil && *input.TotalQuantity <= 0 {
		return ErrCouponInvalid
	}
	if input.ValidFrom != nil && input.ValidTo != nil && input.ValidTo.Before(*input.ValidFrom) {
		return ErrCouponInvalid
	}

	// 围栏三要素要么全给要么全不给
	geoCount := 0
	if input.GeoLatitude != nil {
		geoCount++
	}
	if input.GeoLongitude != nil {
		geoCount++
	}
	if input.GeoRadiusKM != nil {
		geoCount++
	}
	if geoCount != 0 && geoCount != 3 {
		return ErrCouponInvalid
	}
	if input.GeoRadiusKM != nil && *input.GeoRadiusKM <= 0 {
		return ErrCouponInvalid
	}
	if input.GeoLatitude != nil && (*input.GeoLatitude < -90 || *input.GeoLatitude > 90) {
		return ErrCouponInvalid
	}
	if input.GeoLongitude != nil && (*input.GeoLongitude < -180 || *input.GeoLongitude > 180) {
		return ErrCouponInvalid
	}

	if input.StoreID != 0 {
		store, err := s.storeRepo.GetByID(input.StoreID)
		if err != nil {
			return err
		}
		if store == nil {
			return ErrStoreNotFound
		}
	}

	if input.MaxDiscount.IsNegative() || input.MinOrderAmount.IsNegative() {
		return ErrCouponInvalid
	}

	coupon.Title = title
	coupon.StoreID = input.StoreID
	coupon.GroupKey = groupKey
	coupon.Type = couponType
	coupon.Value = models.NewMoneyFromDecimal(input.Value)
	coupon.MaxDiscount = models.NewMoneyFromDecimal(input.MaxDiscount)
	coupon.MinOrderAmount = models.NewMoneyFromDecimal(input.MinOrderAmount)
	coupon.TotalQuantity = input.TotalQuantity
	if input.PerUserLimit > 0 {
		coupon.PerUserLimit = input.PerUserLimit
	} else {
		coupon.PerUserLimit = 1
	}
	coupon.ValidFrom = input.ValidFrom
	coupon.ValidTo = input.ValidTo
	coupon.GeoLatitude = input.GeoLatitude
	coupon.GeoLongitude = input.GeoLongitude
	coupon.GeoRadiusKM = input.GeoRadiusKM
	return nil
}

func (s *CouponAdminService) invalidateCache(ctx context.Context) {
	if err := cache.InvalidateClaimableCoupons(ctx); err != nil {
		logger.Warnw("claimable_cache_invalidate_failed", "error", err)
	}
}
