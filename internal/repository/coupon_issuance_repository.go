package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponIssuanceRepository 持券记录数据访问接口
// 条件更新方法返回受影响行数，0 行表示状态前置条件已被并发请求打破。
type CouponIssuanceRepository interface {
	GetByID(id uint) (*models.CouponIssuance, error)
	GetByIDForUpdate(id uint) (*models.CouponIssuance, error)
	GetByCode(code string) (*models.CouponIssuance, error)
	GetByCodeForUpdate(code string) (*models.CouponIssuance, error)
	GetByGiftToken(token string) (*models.CouponIssuance, error)
	GetByGiftTokenForUpdate(token string) (*models.CouponIssuance, error)
	GetActiveByHolderAndGroup(holderID uint, groupKey string) (*models.CouponIssuance, error)
	CountByCoupon(couponID uint, statuses []string) (int64, error)
	CountByHolderAndCoupon(holderID, couponID uint, statuses []string) (int64, error)
	Create(issuance *models.CouponIssuance) error
	CancelIfActive(id uint, giftedTo *uint, now time.Time) (int64, error)
	MarkUsedIfActive(id uint, storeID uint, discount models.Money, now time.Time) (int64, error)
	MarkExpiredIfActive(id uint, now time.Time) (int64, error)
	StampGiftToken(id uint, token string, expiresAt, now time.Time) (int64, error)
	ExpireOverdue(now time.Time, limit int) (int64, error)
	ClearExpiredGiftTokens(now time.Time) (int64, error)
	List(filter IssuanceListFilter) ([]models.CouponIssuance, int64, error)
	WithTx(tx *gorm.DB) *GormCouponIssuanceRepository
}

// GormCouponIssuanceRepository GORM 实现
type GormCouponIssuanceRepository struct {
	db *gorm.DB
}

// NewCouponIssuanceRepository 创建持券记录仓库
func NewCouponIssuanceRepository(db *gorm.DB) *GormCouponIssuanceRepository {
	return &GormCouponIssuanceRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponIssuanceRepository) WithTx(tx *gorm.DB) *GormCouponIssuanceRepository {
	if tx == nil {
		return r
	}
	return &GormCouponIssuanceRepository{db: tx}
}

// GetByID 根据ID获取持券记录
func (r *GormCouponIssuanceRepository) GetByID(id uint) (*models.CouponIssuance, error) {
	var issuance models.CouponIssuance
	if err := r.db.First(&issuance, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &issuance, nil
}

// GetByIDForUpdate 根据ID加锁获取持券记录
func (r *GormCouponIssuanceRepository) GetByIDForUpdate(id uint) (*models.CouponIssuance, error) {
	var issuance models.CouponIssuance
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&issuance, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &issuance, nil
}

// GetByCode 根据核销码获取持券记录
func (r *GormCouponIssuanceRepository) GetByCode(code string) (*models.CouponIssuance, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, nil
	}
	var issuance models.CouponIssuance
	if err := r.db.Where("code = ?", code).First(&issuance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &issuance, nil
}

// GetByCodeForUpdate 根据核销码加锁获取持券记录
func (r *GormCouponIssuanceRepository) GetByCodeForUpdate(code string) (*models.CouponIssuance, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, nil
	}
	var issuance models.CouponIssuance
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&issuance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &issuance, nil
}

// GetByGiftToken 根据转赠令牌获取生效中的持券记录（预览用，不加锁）
func (r *GormCouponIssuanceRepository) GetByGiftToken(token string) (*models.CouponIssuance, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	var issuance models.CouponIssuance
	if err := r.db.
		Where("gift_token = ? AND status = ?", token, constants.IssuanceStatusActive).
		First(&issuance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &issuance, nil
}

// GetByGiftTokenForUpdate 根据转赠令牌加锁获取生效中的持券记录
func (r *GormCouponIssuanceRepository) GetByGiftTokenForUpdate(token string) (*models.CouponIssuance, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	var issuance models.CouponIssuance
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gift_token = ? AND status = ?", token, constants.IssuanceStatusActive).
		First(&issuance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &issuance, nil
}

// GetActiveByHolderAndGroup 获取用户在互斥组内生效中的持券记录
func (r *GormCouponIssuanceRepository) GetActiveByHolderAndGroup(holderID uint, groupKey string) (*models.CouponIssuance, error) {
	if holderID == 0 || strings.TrimSpace(groupKey) == "" {
		return nil, nil
	}
	var issuance models.CouponIssuance
	err := r.db.
		Joins("JOIN coupons ON coupons.id = coupon_issuances.coupon_id").
		Where("coupon_issuances.holder_id = ?", holderID).
		Where("coupons.group_key = ?", groupKey).
		Where("coupon_issuances.status = ?", constants.IssuanceStatusActive).
		Order("coupon_issuances.id desc").
		First(&issuance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &issuance, nil
}

// CountByCoupon 统计某定义在指定状态集合下的持券数量
func (r *GormCouponIssuanceRepository) CountByCoupon(couponID uint, statuses []string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.CouponIssuance{}).
		Where("coupon_id = ? AND status IN ?", couponID, statuses).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByHolderAndCoupon 统计用户对某定义在指定状态集合下的持券数量
func (r *GormCouponIssuanceRepository) CountByHolderAndCoupon(holderID, couponID uint, statuses []string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.CouponIssuance{}).
		Where("holder_id = ? AND coupon_id = ? AND status IN ?", holderID, couponID, statuses).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建持券记录
func (r *GormCouponIssuanceRepository) Create(issuance *models.CouponIssuance) error {
	return r.db.Create(issuance).Error
}

// CancelIfActive 仅当仍然生效时取消持券记录
func (r *GormCouponIssuanceRepository) CancelIfActive(id uint, giftedTo *uint, now time.Time) (int64, error) {
	values := map[string]interface{}{
		"status":     constants.IssuanceStatusCancelled,
		"updated_at": now,
	}
	if giftedTo != nil {
		values["gifted_to"] = *giftedTo
	}
	result := r.db.Model(&models.CouponIssuance{}).
		Where("id = ? AND status = ?", id, constants.IssuanceStatusActive).
		Updates(values)
	return result.RowsAffected, result.Error
}

// MarkUsedIfActive 仅当仍然生效时核销持券记录
func (r *GormCouponIssuanceRepository) MarkUsedIfActive(id uint, storeID uint, discount models.Money, now time.Time) (int64, error) {
	result := r.db.Model(&models.CouponIssuance{}).
		Where("id = ? AND status = ?", id, constants.IssuanceStatusActive).
		Updates(map[string]interface{}{
			"status":           constants.IssuanceStatusUsed,
			"used_at":          now,
			"used_store_id":    storeID,
			"discount_applied": discount,
			"updated_at":       now,
		})
	return result.RowsAffected, result.Error
}

// MarkExpiredIfActive 仅当仍然生效时将持券记录置为过期
func (r *GormCouponIssuanceRepository) MarkExpiredIfActive(id uint, now time.Time) (int64, error) {
	result := r.db.Model(&models.CouponIssuance{}).
		Where("id = ? AND status = ?", id, constants.IssuanceStatusActive).
		Updates(map[string]interface{}{
			"status":     constants.IssuanceStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// StampGiftToken 仅当仍然生效时盖上转赠令牌（持券人保留使用权直至令牌被消耗）
func (r *GormCouponIssuanceRepository) StampGiftToken(id uint, token string, expiresAt, now time.Time) (int64, error) {
	result := r.db.Model(&models.CouponIssuance{}).
		Where("id = ? AND status = ?", id, constants.IssuanceStatusActive).
		Updates(map[string]interface{}{
			"gift_token":            token,
			"gift_token_expires_at": expiresAt,
			"updated_at":            now,
		})
	return result.RowsAffected, result.Error
}

// ExpireOverdue 批量惰性过期：将已过持有有效期但仍标记生效的记录置为过期
func (r *GormCouponIssuanceRepository) ExpireOverdue(now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []uint
	if err := r.db.Model(&models.CouponIssuance{}).
		Where("status = ? AND expires_at < ?", constants.IssuanceStatusActive, now).
		Order("expires_at asc").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.CouponIssuance{}).
		Where("id IN ? AND status = ?", ids, constants.IssuanceStatusActive).
		Updates(map[string]interface{}{
			"status":     constants.IssuanceStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// ClearExpiredGiftTokens 清除已过期仍未消耗的转赠令牌，持券本身保持原状态
func (r *GormCouponIssuanceRepository) ClearExpiredGiftTokens(now time.Time) (int64, error) {
	result := r.db.Model(&models.CouponIssuance{}).
		Where("gift_token IS NOT NULL AND gift_token_expires_at < ?", now).
		Updates(map[string]interface{}{
			"gift_token":            nil,
			"gift_token_expires_at": nil,
			"updated_at":            now,
		})
	return result.RowsAffected, result.Error
}

// List 获取持券记录列表
func (r *GormCouponIssuanceRepository) List(filter IssuanceListFilter) ([]models.CouponIssuance, int64, error) {
	query := r.db.Model(&models.CouponIssuance{})

	if filter.HolderID > 0 {
		query = query.Where("holder_id = ?", filter.HolderID)
	}
	if filter.CouponID > 0 {
		query = query.Where("coupon_id = ?", filter.CouponID)
	}
	if filter.StoreID > 0 {
		query = query.Where("coupon_id IN (?)", r.db.Model(&models.Coupon{}).Select("id").Where("store_id = ?", filter.StoreID))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Code != "" {
		query = query.Where("code = ?", strings.TrimSpace(strings.ToUpper(filter.Code)))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var issuances []models.CouponIssuance
	if err := query.Order("id desc").Find(&issuances).Error; err != nil {
		return nil, 0, err
	}
	return issuances, total, nil
}
