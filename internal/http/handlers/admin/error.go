package admin

import (
	handlershared "github.com/khatmdev/quadramall-promo/internal/http/handlers/shared"
	"github.com/khatmdev/quadramall-promo/internal/http/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err, response.CodeInternal, "error.internal")
}
