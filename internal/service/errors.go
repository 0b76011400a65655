package service

import (
	"errors"
	"fmt"

	"github.com/lingquan-next/internal/models"
)

// 领取相关错误
var (
	ErrCouponNotFound    = errors.New("优惠券不存在或已停用")
	ErrCouponNotApproved = errors.New("优惠券未通过审核")
	ErrCouponNotYetValid = errors.New("优惠券未到生效时间")
	ErrCouponExpired     = errors.New("优惠券已过有效期")
	ErrCouponInvalid     = errors.New("优惠券参数无效")
	ErrCouponOutOfRange  = errors.New("不在优惠券领取范围内")
	ErrCouponSoldOut     = errors.New("优惠券已领完")
	ErrAlreadyClaimed    = errors.New("已达到每人领取上限")
	ErrHolderNotFound    = errors.New("用户不存在")
)

// 转赠相关错误
var (
	ErrGiftNotEligible   = errors.New("该券不可转赠")
	ErrGiftSelf          = errors.New("不能转赠给自己")
	ErrGiftTokenInvalid  = errors.New("转赠链接无效或已过期")
	ErrReceiverHasBetter = errors.New("对方已持有同组更优的券")
)

// 核销相关错误
var (
	ErrRedeemInvalid       = errors.New("核销参数无效")
	ErrIssuanceNotFound    = errors.New("核销码不存在")
	ErrIssuanceUsed        = errors.New("该券已被核销")
	ErrIssuanceCancelled   = errors.New("该券已作废")
	ErrIssuanceExpired     = errors.New("该券已过期")
	ErrWrongStore          = errors.New("该券不适用于此门店")
	ErrBelowMinimumAmount  = errors.New("订单金额未达到使用门槛")
)

// 通用错误
var (
	ErrCodeGenerationExhausted = errors.New("生成唯一编码失败")
	ErrStoreUnavailable        = errors.New("存储暂时不可用")
	ErrStoreNotFound           = errors.New("门店不存在")
	ErrStoreInvalid            = errors.New("门店参数无效")
)

// policyErrors 业务判定错误集合：这些错误直接上抛，不做存储层重试。
var policyErrors = []error{
	ErrCouponNotFound,
	ErrCouponNotApproved,
	ErrCouponNotYetValid,
	ErrCouponExpired,
	ErrCouponInvalid,
	ErrCouponOutOfRange,
	ErrCouponSoldOut,
	ErrAlreadyClaimed,
	ErrHolderNotFound,
	ErrGiftNotEligible,
	ErrGiftSelf,
	ErrGiftTokenInvalid,
	ErrReceiverHasBetter,
	ErrRedeemInvalid,
	ErrIssuanceNotFound,
	ErrIssuanceUsed,
	ErrIssuanceCancelled,
	ErrIssuanceExpired,
	ErrWrongStore,
	ErrBelowMinimumAmount,
	ErrCodeGenerationExhausted,
	ErrStoreNotFound,
	ErrStoreInvalid,
}

// OutOfRangeError 范围外拒绝，携带围栏半径与实际距离供前端提示
type OutOfRangeError struct {
	RadiusKM   float64
	DistanceKM float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s（半径 %.1fkm，距离 %.1fkm）", ErrCouponOutOfRange.Error(), e.RadiusKM, e.DistanceKM)
}

func (e *OutOfRangeError) Unwrap() error {
	return ErrCouponOutOfRange
}

// SoldOutError 领完拒绝，携带发放总量
type SoldOutError struct {
	Quantity int
}

func (e *SoldOutError) Error() string {
	return fmt.Sprintf("%s（共 %d 张）", ErrCouponSoldOut.Error(), e.Quantity)
}

func (e *SoldOutError) Unwrap() error {
	return ErrCouponSoldOut
}

// ReceiverHasBetterError 受赠方已持有更优券，携带对方当前优惠内容
type ReceiverHasBetterError struct {
	ExistingType  string
	ExistingValue models.Money
}

func (e *ReceiverHasBetterError) Error() string {
	return fmt.Sprintf("%s（%s %s）", ErrReceiverHasBetter.Error(), e.ExistingType, e.ExistingValue.String())
}

func (e *ReceiverHasBetterError) Unwrap() error {
	return ErrReceiverHasBetter
}

// BelowMinimumError 未达门槛拒绝，携带门槛金额
type BelowMinimumError struct {
	MinOrderAmount models.Money
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("%s（最低 %s）", ErrBelowMinimumAmount.Error(), e.MinOrderAmount.String())
}

func (e *BelowMinimumError) Unwrap() error {
	return ErrBelowMinimumAmount
}

// isPolicyError 判断是否业务判定错误
func isPolicyError(err error) bool {
	for _, target := range policyErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
