package public

import (
	"strings"

	"github.com/lingquan-next/internal/http/response"
	"github.com/lingquan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateGiftTransfer 为自己持有的券生成转赠令牌
// 重复发起会生成新令牌并使旧令牌失效。
func (h *Handler) CreateGiftTransfer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	issuanceID, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "持券标识格式错误", nil)
		return
	}

	result, err := h.GiftService.CreateTransfer(service.CreateTransferInput{
		SenderID:   userID,
		IssuanceID: issuanceID,
	})
	if err != nil {
		respondGiftError(c, err)
		return
	}

	response.Success(c, result)
}

// GetGiftTransfer 转赠落地页预览，无需登录
func (h *Handler) GetGiftTransfer(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		respondError(c, response.CodeBadRequest, "转赠令牌缺失", nil)
		return
	}

	preview, err := h.GiftService.GetTransfer(token)
	if err != nil {
		respondGiftError(c, err)
		return
	}

	response.Success(c, preview)
}

// AcceptGiftTransfer 接收转赠
// 接收失败不消耗令牌，可在令牌有效期内重试。
func (h *Handler) AcceptGiftTransfer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		respondError(c, response.CodeBadRequest, "转赠令牌缺失", nil)
		return
	}

	result, err := h.GiftService.AcceptTransfer(service.AcceptTransferInput{
		ReceiverID: userID,
		Token:      token,
	})
	if err != nil {
		respondGiftAcceptError(c, err)
		return
	}

	response.Success(c, result)
}
