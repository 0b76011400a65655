package public

import (
	"strconv"

	"github.com/lingquan-next/internal/http/response"
	"github.com/lingquan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCoupons 查询当前可领取的券列表
// 携带位置时按距离由近及远排序，并标记是否在领取范围内。
func (h *Handler) GetCoupons(c *gin.Context) {
	latitude, ok := parseFloatQuery(c, "lat")
	if !ok {
		respondError(c, response.CodeBadRequest, "纬度格式错误", nil)
		return
	}
	longitude, ok := parseFloatQuery(c, "lng")
	if !ok {
		respondError(c, response.CodeBadRequest, "经度格式错误", nil)
		return
	}
	if (latitude == nil) != (longitude == nil) {
		respondError(c, response.CodeBadRequest, "经纬度需同时提供", nil)
		return
	}

	radiusKM := 0.0
	if raw := c.Query("radius_km"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 {
			respondError(c, response.CodeBadRequest, "半径格式错误", nil)
			return
		}
		radiusKM = value
	}

	var storeID uint
	if raw := c.Query("store_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "门店标识格式错误", nil)
			return
		}
		storeID = uint(value)
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	coupons, err := h.DiscoveryService.ListNearby(c.Request.Context(), service.NearbyInput{
		Latitude:  latitude,
		Longitude: longitude,
		RadiusKM:  radiusKM,
		StoreID:   storeID,
		Limit:     limit,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询失败", err)
		return
	}

	response.Success(c, coupons)
}

// GetCoupon 查询单张券详情
func (h *Handler) GetCoupon(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
		return
	}

	coupon, err := h.DiscoveryService.GetCoupon(id)
	if err != nil {
		respondWithMappedError(c, err, claimCommonErrorRules, response.CodeInternal, "查询失败")
		return
	}

	response.Success(c, coupon)
}

type claimCouponRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	ClaimMethod string   `json:"claim_method"` // event / wallet，默认 event
}

// ClaimCoupon 领取一张券
func (h *Handler) ClaimCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	couponID, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "券标识格式错误", nil)
		return
	}

	var req claimCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数格式错误", err)
		return
	}

	result, err := h.AcquireService.Acquire(service.AcquireInput{
		HolderID:    userID,
		CouponID:    couponID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ClaimMethod: req.ClaimMethod,
	})
	if err != nil {
		respondClaimError(c, err)
		return
	}

	response.Success(c, result)
}
