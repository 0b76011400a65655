package admin

import (
	"errors"

	"github.com/lingquan-next/internal/http/response"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type redeemRequest struct {
	Code        string          `json:"code" binding:"required"`
	StoreID     uint            `json:"store_id" binding:"required"`
	OrderAmount decimal.Decimal `json:"order_amount"`
}

func respondRedeemError(c *gin.Context, err error) {
	var belowMinimum *service.BelowMinimumError
	if errors.As(err, &belowMinimum) {
		respondErrorWithData(c, response.CodeBadRequest, "订单金额未达到使用门槛", nil, gin.H{
			"min_order_amount": belowMinimum.MinOrderAmount,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrRedeemInvalid):
		respondError(c, response.CodeBadRequest, "核销参数无效", nil)
	case errors.Is(err, service.ErrIssuanceNotFound):
		respondError(c, response.CodeNotFound, "核销码不存在", nil)
	case errors.Is(err, service.ErrIssuanceUsed):
		respondError(c, response.CodeConflict, "该券已被核销", nil)
	case errors.Is(err, service.ErrIssuanceCancelled):
		respondError(c, response.CodeConflict, "该券已作废", nil)
	case errors.Is(err, service.ErrIssuanceExpired):
		respondError(c, response.CodeConflict, "该券已过期", nil)
	case errors.Is(err, service.ErrStoreNotFound):
		respondError(c, response.CodeBadRequest, "门店不存在或已停用", nil)
	case errors.Is(err, service.ErrWrongStore):
		respondError(c, response.CodeBadRequest, "该券不适用于此门店", nil)
	case errors.Is(err, service.ErrBelowMinimumAmount):
		respondError(c, response.CodeBadRequest, "订单金额未达到使用门槛", nil)
	case errors.Is(err, service.ErrStoreUnavailable):
		respondError(c, response.CodeInternal, "服务暂时不可用", err)
	default:
		respondError(c, response.CodeInternal, "核销失败", err)
	}
}

// RedeemCoupon 门店核销
// 按核销码定位持券，校验门店与门槛后原子扣减。
func (h *Handler) RedeemCoupon(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数格式错误", err)
		return
	}

	result, err := h.RedeemService.Redeem(service.RedeemInput{
		Code:        req.Code,
		StoreID:     req.StoreID,
		OrderAmount: models.NewMoneyFromDecimal(req.OrderAmount),
	})
	if err != nil {
		respondRedeemError(c, err)
		return
	}

	response.Success(c, result)
}
