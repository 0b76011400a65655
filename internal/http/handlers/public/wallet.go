package public

import (
	"strconv"

	handlershared "github.com/lingquan-next/internal/http/handlers/shared"
	"github.com/lingquan-next/internal/http/response"
	"github.com/lingquan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMyCoupons 查询我的卡包
// 过期持券在查询时惰性翻转为 expired 状态。
func (h *Handler) GetMyCoupons(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	items, total, err := h.IssuanceService.ListWallet(service.ListWalletInput{
		HolderID: userID,
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondWalletError(c, err)
		return
	}

	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetMyCoupon 查询我的单张持券详情
func (h *Handler) GetMyCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	issuanceID, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "持券标识格式错误", nil)
		return
	}

	item, err := h.IssuanceService.GetIssuance(userID, issuanceID)
	if err != nil {
		respondWalletError(c, err)
		return
	}

	response.Success(c, item)
}
