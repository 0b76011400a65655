package service

import (
	"strings"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/models"

	"github.com/shopspring/decimal"
)

// IsBetterBenefit 判断新优惠是否严格优于旧优惠。
// 规则：percent 类型恒优于 fixed 类型（业务上认为比例优惠上不封顶），
// 与金额大小无关；同类型按数值比较，相等不算更优。
func IsBetterBenefit(newType string, newValue decimal.Decimal, existingType string, existingValue decimal.Decimal) bool {
	newType = strings.ToLower(strings.TrimSpace(newType))
	existingType = strings.ToLower(strings.TrimSpace(existingType))
	if newType == existingType {
		return newValue.GreaterThan(existingValue)
	}
	return newType == constants.CouponTypePercent
}

// CalculateDiscount 按券面规则计算订单抵扣金额。
// percent：floor(orderAmount * value / 100)，先按 max_discount 封顶；
// fixed：固定面额；最终都不超过订单金额。
func CalculateDiscount(coupon *models.Coupon, orderAmount models.Money) (models.Money, error) {
	if coupon == nil {
		return models.Money{}, ErrCouponInvalid
	}
	if orderAmount.Decimal.IsNegative() {
		return models.Money{}, ErrRedeemInvalid
	}
	if coupon.MinOrderAmount.Decimal.GreaterThan(decimal.Zero) &&
		orderAmount.Decimal.LessThan(coupon.MinOrderAmount.Decimal) {
		return models.Money{}, &BelowMinimumError{MinOrderAmount: coupon.MinOrderAmount}
	}

	var discount decimal.Decimal
	switch strings.ToLower(strings.TrimSpace(coupon.Type)) {
	case constants.CouponTypePercent:
		if coupon.Value.Decimal.LessThanOrEqual(decimal.Zero) ||
			coupon.Value.Decimal.GreaterThan(decimal.NewFromInt(100)) {
			return models.Money{}, ErrCouponInvalid
		}
		discount = orderAmount.Decimal.
			Mul(coupon.Value.Decimal).
			Div(decimal.NewFromInt(100)).
			Floor()
		if coupon.MaxDiscount.Decimal.GreaterThan(decimal.Zero) &&
			discount.GreaterThan(coupon.MaxDiscount.Decimal) {
			discount = coupon.MaxDiscount.Decimal
		}
	case constants.CouponTypeFixed:
		if coupon.Value.Decimal.LessThanOrEqual(decimal.Zero) {
			return models.Money{}, ErrCouponInvalid
		}
		discount = coupon.Value.Decimal
	default:
		return models.Money{}, ErrCouponInvalid
	}

	if discount.GreaterThan(orderAmount.Decimal) {
		discount = orderAmount.Decimal
	}
	return models.NewMoneyFromDecimal(discount), nil
}
