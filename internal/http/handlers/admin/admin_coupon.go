package admin

import (
	"errors"
	"strconv"
	"time"

	handlershared "github.com/lingquan-next/internal/http/handlers/shared"
	"github.com/lingquan-next/internal/http/response"
	"github.com/lingquan-next/internal/repository"
	"github.com/lingquan-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type couponRequest struct {
	Title          string          `json:"title" binding:"required"`
	StoreID        uint            `json:"store_id"`
	GroupKey       string          `json:"group_key" binding:"required"`
	Type           string          `json:"type" binding:"required"`
	Value          decimal.Decimal `json:"value"`
	MaxDiscount    decimal.Decimal `json:"max_discount"`     // 0 表示不封顶
	MinOrderAmount decimal.Decimal `json:"min_order_amount"` // 0 表示无门槛
	TotalQuantity  *int            `json:"total_quantity"`
	PerUserLimit   int             `json:"per_user_limit"`
	ValidFrom      string          `json:"valid_from"`
	ValidTo        string          `json:"valid_to"`
	GeoLatitude    *float64        `json:"geo_latitude"`
	GeoLongitude   *float64        `json:"geo_longitude"`
	GeoRadiusKM    *float64        `json:"geo_radius_km"`
}

func (r couponRequest) toInput() (service.CouponInput, error) {
	validFrom, err := parseTimeNullable(r.ValidFrom)
	if err != nil {
		return service.CouponInput{}, err
	}
	validTo, err := parseTimeNullable(r.ValidTo)
	if err != nil {
		return service.CouponInput{}, err
	}
	return service.CouponInput{
		Title:          r.Title,
		StoreID:        r.StoreID,
		GroupKey:       r.GroupKey,
		Type:           r.Type,
		Value:          r.Value,
		MaxDiscount:    r.MaxDiscount,
		MinOrderAmount: r.MinOrderAmount,
		TotalQuantity:  r.TotalQuantity,
		PerUserLimit:   r.PerUserLimit,
		ValidFrom:      validFrom,
		ValidTo:        validTo,
		GeoLatitude:    r.GeoLatitude,
		GeoLongitude:   r.GeoLongitude,
		GeoRadiusKM:    r.GeoRadiusKM,
	}, nil
}

func parseTimeNullable(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func respondAdminCouponError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		respondError(c, response.CodeNotFound, "优惠券不存在", nil)
	case errors.Is(err, service.ErrCouponInvalid):
		respondError(c, response.CodeBadRequest, "优惠券参数无效", err)
	case errors.Is(err, service.ErrStoreNotFound):
		respondError(c, response.CodeBadRequest, "关联门店不存在", nil)
	default:
		respondError(c, response.CodeInternal, "优惠券操作失败", err)
	}
}

// GetAdminCoupons 优惠券列表
func (h *Handler) GetAdminCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.CouponListFilter{
		Page:           page,
		PageSize:       pageSize,
		GroupKey:       c.Query("group_key"),
		ApprovalStatus: c.Query("approval_status"),
		Search:         c.Query("search"),
	}
	if raw := c.Query("store_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "门店标识格式错误", nil)
			return
		}
		filter.StoreID = uint(value)
	}
	if raw := c.Query("is_active"); raw != "" {
		active := raw == "true" || raw == "1"
		filter.IsActive = &active
	}

	coupons, total, err := h.CouponAdminService.ListAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "查询失败", err)
		return
	}

	response.SuccessWithPage(c, coupons, response.BuildPagination(page, pageSize, total))
}

// GetAdminCoupon 优惠券详情
func (h *Handler) GetAdminCoupon(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
		return
	}

	coupon, err := h.CouponAdminService.GetByID(id)
	if err != nil {
		respondAdminCouponError(c, err)
		return
	}

	response.Success(c, coupon)
}

// CreateCoupon 创建优惠券，初始为草稿状态
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数格式错误", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间格式错误，需为 RFC3339", err)
		return
	}

	coupon, err := h.CouponAdminService.Create(c.Request.Context(), input)
	if err != nil {
		respondAdminCouponError(c, err)
		return
	}

	response.Success(c, coupon)
}

// UpdateCoupon 更新优惠券，已审核的券会退回待审核
func (h *Handler) UpdateCoupon(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
		return
	}
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数格式错误", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间格式错误，需为 RFC3339", err)
		return
	}

	coupon, err := h.CouponAdminService.Update(c.Request.Context(), id, input)
	if err != nil {
		respondAdminCouponError(c, err)
		return
	}

	response.Success(c, coupon)
}

// SubmitCouponForApproval 提交审核
func (h *Handler) SubmitCouponForApproval(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
		return
	}

	coupon, err := h.CouponAdminService.SubmitForApproval(c.Request.Context(), id)
	if err != nil {
		respondAdminCouponError(c, err)
		return
	}

	response.Success(c, coupon)
}

// ApproveCoupon 审核通过
func (h *Handler) ApproveCoupon(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
		return
	}

	coupon, err := h.CouponAdminService.Approve(c.Request.Context(), id)
	if err != nil {
		respondAdminCouponError(c, err)
		return
	}

	response.Success(c, coupon)
}

// RejectCoupon 审核驳回
func (h *Handler) RejectCoupon(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
		return
	}

	coupon, err := h.CouponAdminService.Reject(c.Request.Context(), id)
	if err != nil {
		respondAdminCouponError(c, err)
		return
	}

	response.Success(c, coupon)
}

type couponActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetCouponActive 启用/停用优惠券
func (h *Handler) SetCouponActive(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
		return
	}
	var req couponActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数格式错误", err)
		return
	}

	coupon, err := h.CouponAdminService.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondAdminCouponError(c, err)
		return
	}

	response.Success(c, coupon)
}

// DeleteCoupon 删除优惠券
func (h *Handler) DeleteCoupon(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
		return
	}

	if err := h.CouponAdminService.Delete(c.Request.Context(), id); err != nil {
		respondAdminCouponError(c, err)
		return
	}

	response.Success(c, nil)
}
