package public

import (
	"errors"

	"github.com/lingquan-next/internal/http/response"
	"github.com/lingquan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var claimCommonErrorRules = []mappedHandlerError{
	{target: service.ErrCouponInvalid, code: response.CodeBadRequest, msg: "领取参数无效"},
	{target: service.ErrCouponNotFound, code: response.CodeNotFound, msg: "优惠券不存在或已停用"},
	{target: service.ErrCouponNotApproved, code: response.CodeBadRequest, msg: "优惠券未通过审核"},
	{target: service.ErrCouponNotYetValid, code: response.CodeBadRequest, msg: "优惠券未到生效时间"},
	{target: service.ErrCouponExpired, code: response.CodeBadRequest, msg: "优惠券已过有效期"},
	{target: service.ErrAlreadyClaimed, code: response.CodeConflict, msg: "已达到每人领取上限"},
	{target: service.ErrHolderNotFound, code: response.CodeUnauthorized, msg: "用户不存在"},
	{target: service.ErrCodeGenerationExhausted, code: response.CodeInternal, msg: "系统繁忙，请稍后再试"},
	{target: service.ErrStoreUnavailable, code: response.CodeInternal, msg: "服务暂时不可用"},
}

var giftCommonErrorRules = []mappedHandlerError{
	{target: service.ErrIssuanceNotFound, code: response.CodeNotFound, msg: "持券记录不存在"},
	{target: service.ErrGiftNotEligible, code: response.CodeBadRequest, msg: "该券当前不可转赠"},
	{target: service.ErrGiftTokenInvalid, code: response.CodeNotFound, msg: "转赠链接无效或已过期"},
	{target: service.ErrGiftSelf, code: response.CodeBadRequest, msg: "不能转赠给自己"},
	{target: service.ErrHolderNotFound, code: response.CodeUnauthorized, msg: "用户不存在"},
	{target: service.ErrCodeGenerationExhausted, code: response.CodeInternal, msg: "系统繁忙，请稍后再试"},
	{target: service.ErrStoreUnavailable, code: response.CodeInternal, msg: "服务暂时不可用"},
}

var walletErrorRules = []mappedHandlerError{
	{target: service.ErrHolderNotFound, code: response.CodeUnauthorized, msg: "用户不存在"},
	{target: service.ErrIssuanceNotFound, code: response.CodeNotFound, msg: "持券记录不存在"},
	{target: service.ErrStoreUnavailable, code: response.CodeInternal, msg: "服务暂时不可用"},
}

// respondClaimError 领取失败响应
// 范围外与领完的拒绝携带结构化数据，便于前端展示距离与余量。
func respondClaimError(c *gin.Context, err error) {
	var outOfRange *service.OutOfRangeError
	if errors.As(err, &outOfRange) {
		respondErrorWithData(c, response.CodeBadRequest, "不在优惠券领取范围内", nil, gin.H{
			"radius_km":   outOfRange.RadiusKM,
			"distance_km": outOfRange.DistanceKM,
		})
		return
	}
	if errors.Is(err, service.ErrCouponOutOfRange) {
		respondError(c, response.CodeBadRequest, "不在优惠券领取范围内", nil)
		return
	}
	var soldOut *service.SoldOutError
	if errors.As(err, &soldOut) {
		respondErrorWithData(c, response.CodeConflict, "优惠券已领完", nil, gin.H{
			"quantity": soldOut.Quantity,
		})
		return
	}
	if errors.Is(err, service.ErrCouponSoldOut) {
		respondError(c, response.CodeConflict, "优惠券已领完", nil)
		return
	}
	respondWithMappedError(c, err, claimCommonErrorRules, response.CodeInternal, "领取失败")
}

// respondGiftAcceptError 接收转赠失败响应
// 对方持有更优券时携带对方当前优惠内容，令牌保持可用。
func respondGiftAcceptError(c *gin.Context, err error) {
	var hasBetter *service.ReceiverHasBetterError
	if errors.As(err, &hasBetter) {
		respondErrorWithData(c, response.CodeConflict, "您已持有同组更优的券", nil, gin.H{
			"existing_type":  hasBetter.ExistingType,
			"existing_value": hasBetter.ExistingValue,
		})
		return
	}
	if errors.Is(err, service.ErrReceiverHasBetter) {
		respondError(c, response.CodeConflict, "您已持有同组更优的券", nil)
		return
	}
	respondWithMappedError(c, err, giftCommonErrorRules, response.CodeInternal, "接收转赠失败")
}

func respondGiftError(c *gin.Context, err error) {
	respondWithMappedError(c, err, giftCommonErrorRules, response.CodeInternal, "转赠操作失败")
}

func respondWalletError(c *gin.Context, err error) {
	respondWithMappedError(c, err, walletErrorRules, response.CodeInternal, "查询失败")
}
