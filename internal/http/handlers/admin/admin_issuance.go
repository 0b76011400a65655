package admin

import (
	"strconv"

	handlershared "github.com/lingquan-next/internal/http/handlers/shared"
	"github.com/lingquan-next/internal/http/response"
	"github.com/lingquan-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAdminIssuances 持券记录列表
func (h *Handler) GetAdminIssuances(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.IssuanceListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
		Code:     c.Query("code"),
	}
	if raw := c.Query("holder_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "持有人标识格式错误", nil)
			return
		}
		filter.HolderID = uint(value)
	}
	if raw := c.Query("coupon_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
			return
		}
		filter.CouponID = uint(value)
	}
	if raw := c.Query("store_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "门店标识格式错误", nil)
			return
		}
		filter.StoreID = uint(value)
	}

	issuances, total, err := h.CouponIssuanceRepo.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "查询失败", err)
		return
	}

	response.SuccessWithPage(c, issuances, response.BuildPagination(page, pageSize, total))
}

// SweepExpiredIssuances 手动触发过期持券清理
func (h *Handler) SweepExpiredIssuances(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	affected, err := h.IssuanceService.SweepExpired(limit)
	if err != nil {
		respondError(c, response.CodeInternal, "清理失败", err)
		return
	}

	response.Success(c, gin.H{"expired": affected})
}
