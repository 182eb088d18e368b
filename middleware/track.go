package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/common/graceful"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
)

// RequestTracker counts in-flight requests for graceful shutdown. It must sit
// in front of the relay handlers so open SSE streams are accounted for. Once
// the server starts draining, new requests are turned away so the drain can
// finish.
func RequestTracker() gin.HandlerFunc {
	return func(c *gin.Context) {
		if graceful.IsDraining() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": relaymodel.Error{
					Message: "Server is shutting down",
					Type:    relaymodel.ErrTypeServer,
				},
			})
			return
		}
		done := graceful.BeginRequest()
		defer done()
		c.Next()
	}
}
