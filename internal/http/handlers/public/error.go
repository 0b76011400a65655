package public

import (
	handlershared "github.com/lingquan-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondErrorWithData(c *gin.Context, code int, msg string, err error, data interface{}) {
	handlershared.RespondErrorWithData(c, code, msg, err, data)
}
