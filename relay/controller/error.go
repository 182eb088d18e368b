package controller

import (
	"fmt"
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/common/helper"
	"github.com/songquanpeng/poe-bridge/relay/model"
)

// ErrorWrapper turns an internal error into the unified error model.
func ErrorWrapper(err error, code string, statusCode int) *model.ErrorWithStatusCode {
	return &model.ErrorWithStatusCode{
		Error: model.Error{
			Message:  err.Error(),
			Type:     model.ErrTypeInvalidRequest,
			Code:     code,
			RawError: err,
		},
		StatusCode: statusCode,
	}
}

// respondError writes a normalized error body. The request id is appended to
// the message so users can report failures against server logs.
func respondError(c *gin.Context, relayErr *model.ErrorWithStatusCode) {
	lg := gmw.GetLogger(c)
	lg.Error("relay request failed",
		zap.Int("status", relayErr.StatusCode),
		zap.String("type", relayErr.Type),
		zap.Error(relayErr.RawError))

	requestId := c.GetString(helper.RequestIdKey)
	relayErr.Error.Message = helper.MessageWithRequestId(relayErr.Error.Message, requestId)
	c.JSON(relayErr.StatusCode, gin.H{"error": relayErr.Error})
}

// badRequest writes a 400 with the field that failed validation.
func badRequest(c *gin.Context, message, param string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": model.Error{
			Message: message,
			Type:    model.ErrTypeInvalidRequest,
			Param:   param,
		},
	})
}

// imageFailure is the hard-failure body when a bot returned no file at all.
func imageFailure(c *gin.Context, verb, errType string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": model.Error{
			Message: fmt.Sprintf("Failed to %s image - no file returned from bot", verb),
			Type:    errType,
		},
	})
}
