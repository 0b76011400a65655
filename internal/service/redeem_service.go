package service

import (
	"strings"
	"time"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/repository"

	"gorm.io/gorm"
)

// RedeemService 核销引擎
// 店员出示订单金额与核销码，计算抵扣并原子翻转持券状态。
type RedeemService struct {
	couponRepo   repository.CouponRepository
	issuanceRepo repository.CouponIssuanceRepository
	storeRepo    repository.StoreRepository
	now          func() time.Time
}

// NewRedeemService 创建核销引擎
func NewRedeemService(
	couponRepo repository.CouponRepository,
	issuanceRepo repository.CouponIssuanceRepository,
	storeRepo repository.StoreRepository,
) *RedeemService {
	return &RedeemService{
		couponRepo:   couponRepo,
		issuanceRepo: issuanceRepo,
		storeRepo:    storeRepo,
		now:          time.Now,
	}
}

// RedeemInput 核销输入
type RedeemInput struct {
	Code        string
	StoreID     uint
	OrderAmount models.Money
}

// RedeemResult 核销结果
type RedeemResult struct {
	IssuanceID uint         `json:"issuance_id"`
	CouponID   uint         `json:"coupon_id"`
	Discount   models.Money `json:"discount"`
	Payable    models.Money `json:"payable"`
	UsedAt     time.Time    `json:"used_at"`
}

// Redeem 核销一张持券
func (s *RedeemService) Redeem(input RedeemInput) (*RedeemResult, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" || input.StoreID == 0 {
		return nil, ErrRedeemInvalid
	}
	if input.OrderAmount.Decimal.IsNegative() {
		return nil, ErrRedeemInvalid
	}

	var result *RedeemResult
	err := runWithStoreRetry("redeem", func() error {
		result = nil
		return models.DB.Transaction(func(tx *gorm.DB) error {
			txResult, txErr := s.redeemInTx(tx, code, input.StoreID, input.OrderAmount)
			if txErr != nil {
				return txErr
			}
			result = txResult
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RedeemService) redeemInTx(tx *gorm.DB, code string, storeID uint, orderAmount models.Money) (*RedeemResult, error) {
	issuanceRepo := s.issuanceRepo.WithTx(tx)
	couponRepo := s.couponRepo.WithTx(tx)
	storeRepo := s.storeRepo.WithTx(tx)

	issuance, err := issuanceRepo.GetByCodeForUpdate(code)
	if err != nil {
		return nil, err
	}
	if issuance == nil {
		return nil, ErrIssuanceNotFound
	}
	switch issuance.Status {
	case constants.IssuanceStatusUsed:
		return nil, ErrIssuanceUsed
	case constants.IssuanceStatusCancelled:
		return nil, ErrIssuanceCancelled
	case constants.IssuanceStatusExpired:
		return nil, ErrIssuanceExpired
	}

	now := s.now()
	if issuance.IsOverdue(now) {
		// 到期翻转延迟到此处执行
		if _, err := issuanceRepo.MarkExpiredIfActive(issuance.ID, now); err != nil {
			return nil, err
		}
		return nil, ErrIssuanceExpired
	}

	store, err := storeRepo.GetByID(storeID)
	if err != nil {
		return nil, err
	}
	if store == nil || !store.IsActive {
		return nil, ErrStoreNotFound
	}

	coupon, err := couponRepo.GetByID(issuance.CouponID)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrRedeemInvalid
	}
	if coupon.StoreID != 0 && coupon.StoreID != storeID {
		return nil, ErrWrongStore
	}

	discount, err := CalculateDiscount(coupon, orderAmount)
	if err != nil {
		return nil, err
	}

	rows, err := issuanceRepo.MarkUsedIfActive(issuance.ID, storeID, discount, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// 状态被并发翻转，同一张券只允许核销一次
		return nil, ErrIssuanceUsed
	}

	return &RedeemResult{
		IssuanceID: issuance.ID,
		CouponID:   coupon.ID,
		Discount:   discount,
		Payable:    models.Money{Decimal: orderAmount.Decimal.Sub(discount.Decimal)},
		UsedAt:     now,
	}, nil
}
