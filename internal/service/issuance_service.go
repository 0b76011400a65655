package service

import (
	"time"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/repository"
)

// IssuanceService 持券查询，卡包列表在读取时顺带翻转已过期的券
type IssuanceService struct {
	issuanceRepo repository.CouponIssuanceRepository
	couponRepo   repository.CouponRepository
	now          func() time.Time
}

// NewIssuanceService 创建持券查询服务
func NewIssuanceService(issuanceRepo repository.CouponIssuanceRepository, couponRepo repository.CouponRepository) *IssuanceService {
	return &IssuanceService{
		issuanceRepo: issuanceRepo,
		couponRepo:   couponRepo,
		now:          time.Now,
	}
}

// WalletItem 卡包条目，持券记录附带券面信息
type WalletItem struct {
	Issuance models.CouponIssuance `json:"issuance"`
	Coupon   *models.Coupon        `json:"coupon,omitempty"`
}

// ListWalletInput 卡包查询输入
type ListWalletInput struct {
	HolderID uint
	Status   string
	Page     int
	PageSize int
}

// ListWallet 查询持有人的卡包
func (s *IssuanceService) ListWallet(input ListWalletInput) ([]WalletItem, int64, error) {
	if input.HolderID == 0 {
		return nil, 0, ErrHolderNotFound
	}

	issuances, total, err := s.issuanceRepo.List(repository.IssuanceListFilter{
		Page:     input.Page,
		PageSize: input.PageSize,
		HolderID: input.HolderID,
		Status:   input.Status,
	})
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	couponIDs := make([]uint, 0, len(issuances))
	for i := range issuances {
		issuance := &issuances[i]
		if issuance.Status == constants.IssuanceStatusActive && issuance.IsOverdue(now) {
			if _, err := s.issuanceRepo.MarkExpiredIfActive(issuance.ID, now); err != nil {
				return nil, 0, err
			}
			issuance.Status = constants.IssuanceStatusExpired
		}
		couponIDs = append(couponIDs, issuance.CouponID)
	}

	coupons, err := s.couponRepo.ListByIDs(couponIDs)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[uint]*models.Coupon, len(coupons))
	for i := range coupons {
		byID[coupons[i].ID] = &coupons[i]
	}

	items := make([]WalletItem, 0, len(issuances))
	for i := range issuances {
		items = append(items, WalletItem{
			Issuance: issuances[i],
			Coupon:   byID[issuances[i].CouponID],
		})
	}
	return items, total, nil
}

// GetIssuance 按编号查询单张持券，仅限持有人本人
func (s *IssuanceService) GetIssuance(holderID, issuanceID uint) (*WalletItem, error) {
	if holderID == 0 || issuanceID == 0 {
		return nil, ErrIssuanceNotFound
	}
	issuance, err := s.issuanceRepo.GetByID(issuanceID)
	if err != nil {
		return nil, err
	}
	if issuance == nil || issuance.HolderID != holderID {
		return nil, ErrIssuanceNotFound
	}
	now := s.now()
	if issuance.Status == constants.IssuanceStatusActive && issuance.IsOverdue(now) {
		if _, err := s.issuanceRepo.MarkExpiredIfActive(issuance.ID, now); err != nil {
			return nil, err
		}
		issuance.Status = constants.IssuanceStatusExpired
	}
	coupon, err := s.couponRepo.GetByID(issuance.CouponID)
	if err != nil {
		return nil, err
	}
	return &WalletItem{Issuance: *issuance, Coupon: coupon}, nil
}

// SweepExpired 批量翻转已过期持券并清理过期转赠令牌，由队列任务周期触发。
// 返回值仅统计状态翻转的持券数。
func (s *IssuanceService) SweepExpired(limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	now := s.now()
	if _, err := s.issuanceRepo.ClearExpiredGiftTokens(now); err != nil {
		return 0, err
	}
	return s.issuanceRepo.ExpireOverdue(now, limit)
}

// ExpireOne 按编号翻转单张过期持券，由延迟任务触发
func (s *IssuanceService) ExpireOne(issuanceID uint) error {
	if issuanceID == 0 {
		return nil
	}
	issuance, err := s.issuanceRepo.GetByID(issuanceID)
	if err != nil {
		return err
	}
	if issuance == nil || issuance.Status != constants.IssuanceStatusActive {
		return nil
	}
	if !issuance.IsOverdue(s.now()) {
		return nil
	}
	_, err = s.issuanceRepo.MarkExpiredIfActive(issuance.ID, s.now())
	return err
}
