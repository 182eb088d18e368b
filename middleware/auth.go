package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/common/ctxkey"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": relaymodel.Error{
			Message: message,
			Type:    relaymodel.ErrTypeAuthentication,
		},
	})
}

// TokenAuth extracts the bearer token carrying the upstream credential. The
// bridge performs no validation of its own, a bad key fails at the upstream
// and is normalized like any other fault.
func TokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.Request.Header.Get("Authorization")
		if authorization == "" {
			abortUnauthorized(c, "Authentication error: No token provided")
			return
		}

		fields := strings.Fields(authorization)
		if len(fields) != 2 {
			abortUnauthorized(c, "Authentication error: Malformed Authorization header")
			return
		}
		if !strings.EqualFold(fields[0], "Bearer") {
			abortUnauthorized(c, "Authentication error: Invalid scheme '"+fields[0]+"' - must be 'Bearer'")
			return
		}

		c.Set(ctxkey.APIKey, fields[1])
		c.Next()
	}
}
