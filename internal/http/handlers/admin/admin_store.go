package admin

import (
	"errors"
	"strconv"

	handlershared "github.com/lingquan-next/internal/http/handlers/shared"
	"github.com/lingquan-next/internal/http/response"
	"github.com/lingquan-next/internal/repository"
	"github.com/lingquan-next/internal/service"

	"github.com/gin-gonic/gin"
)

type storeRequest struct {
	Name      string  `json:"name" binding:"required"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsActive  *bool   `json:"is_active"`
}

func respondAdminStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStoreNotFound):
		respondError(c, response.CodeNotFound, "门店不存在", nil)
	case errors.Is(err, service.ErrStoreInvalid):
		respondError(c, response.CodeBadRequest, "门店参数无效", err)
	default:
		respondError(c, response.CodeInternal, "门店操作失败", err)
	}
}

// GetAdminStores 门店列表
func (h *Handler) GetAdminStores(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	stores, total, err := h.StoreAdminService.List(repository.StoreListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     c.Query("search"),
		OnlyActive: c.Query("only_active") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询失败", err)
		return
	}

	response.SuccessWithPage(c, stores, response.BuildPagination(page, pageSize, total))
}

// GetAdminStore 门店详情
func (h *Handler) GetAdminStore(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "门店标识格式错误", nil)
		return
	}

	store, err := h.StoreAdminService.GetByID(id)
	if err != nil {
		respondAdminStoreError(c, err)
		return
	}

	response.Success(c, store)
}

// CreateStore 创建门店
func (h *Handler) CreateStore(c *gin.Context) {
	var req storeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数格式错误", err)
		return
	}

	store, err := h.StoreAdminService.Create(service.StoreInput{
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondAdminStoreError(c, err)
		return
	}

	response.Success(c, store)
}

// UpdateStore 更新门店
func (h *Handler) UpdateStore(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "门店标识格式错误", nil)
		return
	}
	var req storeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数格式错误", err)
		return
	}

	store, err := h.StoreAdminService.Update(id, service.StoreInput{
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondAdminStoreError(c, err)
		return
	}

	response.Success(c, store)
}

// DeleteStore 删除门店
func (h *Handler) DeleteStore(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "门店标识格式错误", nil)
		return
	}

	if err := h.StoreAdminService.Delete(id); err != nil {
		respondAdminStoreError(c, err)
		return
	}

	response.Success(c, nil)
}
