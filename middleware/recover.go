package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/common/logger"
	"github.com/songquanpeng/poe-bridge/monitor"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
	"github.com/songquanpeng/poe-bridge/relay/relaymode"
)

// RelayPanicRecover converts handler panics into a 500 error body so relay
// clients never see a dropped connection.
func RelayPanicRecover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Logger.Error("panic detected",
					zap.Any("panic", err),
					zap.String("stacktrace", string(debug.Stack())),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path))
				mode := relaymode.GetByPath(c.Request.URL.Path)
				monitor.RecordRelayError(relaymode.Name(mode), "panic")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"message": fmt.Sprintf("An unexpected error occurred: %v", err),
						"type":    relaymodel.ErrTypeServer,
					},
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
