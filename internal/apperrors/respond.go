package apperrors

import (
	"net/http"

	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Respond writes err as a JSON error body and aborts the chain.
// Anything that is not an *AppError is logged and hidden behind a 500.
func Respond(c *gin.Context, err error) {
	appErr, ok := As(err)
	if !ok {
		logger.Log.Error("Unhandled error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		appErr = Internal(err)
	} else if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.Log.Error("Internal error",
			zap.String("path", c.FullPath()),
			zap.Error(appErr),
		)
	}

	body := gin.H{
		"detail": appErr.Message,
		"code":   appErr.Code,
	}
	if len(appErr.Details) > 0 {
		body["errors"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.HTTPCode, body)
}
