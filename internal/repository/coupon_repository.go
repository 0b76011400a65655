package repository

import (
	"errors"
	"fmt"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRepository 优惠券定义数据访问接口
type CouponRepository interface {
	GetByID(id uint) (*models.Coupon, error)
	GetByIDForUpdate(id uint) (*models.Coupon, error)
	ListByIDs(ids []uint) ([]models.Coupon, error)
	Create(coupon *models.Coupon) error
	Update(coupon *models.Coupon) error
	Delete(id uint) error
	List(filter CouponListFilter) ([]models.Coupon, int64, error)
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券定义仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// GetByID 根据ID获取优惠券定义
func (r *GormCouponRepository) GetByID(id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetByIDForUpdate 根据ID加锁获取优惠券定义
// 限量发放时先锁定义行，再统计已发放数量。
func (r *GormCouponRepository) GetByIDForUpdate(id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// ListByIDs 批量获取优惠券定义
func (r *GormCouponRepository) ListByIDs(ids []uint) ([]models.Coupon, error) {
	if len(ids) == 0 {
		return []models.Coupon{}, nil
	}
	var coupons []models.Coupon
	if err := r.db.Where("id IN ?", ids).Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// Create 创建优惠券定义
func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	return r.db.Create(coupon).Error
}

// Update 更新优惠券定义
func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Save(coupon).Error
}

// Delete 删除优惠券定义
func (r *GormCouponRepository) Delete(id uint) error {
	return r.db.Delete(&models.Coupon{}, id).Error
}

// List 获取优惠券定义列表
func (r *GormCouponRepository) List(filter CouponListFilter) ([]models.Coupon, int64, error) {
	var coupons []models.Coupon
	query := r.db.Model(&models.Coupon{})

	if filter.StoreID > 0 {
		query = query.Where("store_id = ?", filter.StoreID)
	}
	if filter.GroupKey != "" {
		query = query.Where("group_key = ?", filter.GroupKey)
	}
	if filter.ApprovalStatus != "" {
		query = query.Where("approval_status = ?", filter.ApprovalStatus)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		operator := likeOperator(r.db)
		query = query.Where(fmt.Sprintf("title %s ?", operator), "%"+filter.Search+"%")
	}
	if filter.OnlyClaimable && filter.Now != nil {
		now := *filter.Now
		query = query.
			Where("approval_status = ?", constants.CouponApprovalApproved).
			Where("is_active = ?", true).
			Where("valid_from IS NULL OR valid_from <= ?", now).
			Where("valid_to IS NULL OR valid_to >= ?", now)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id desc").Find(&coupons).Error; err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}
