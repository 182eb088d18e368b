package render

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/common"
)

// StringData writes one SSE data line and flushes it before the next upstream
// event is awaited, so clients observe incremental progress.
func StringData(c *gin.Context, str string) {
	str = strings.TrimPrefix(str, "data: ")
	str = strings.TrimSuffix(str, "\r")
	c.Render(-1, common.CustomEvent{Data: "data: " + str})
	c.Writer.Flush()
}

// ObjectData marshals object and emits it as a single SSE data event.
func ObjectData(c *gin.Context, object any) error {
	jsonData, err := json.Marshal(object)
	if err != nil {
		return errors.Wrap(err, "marshal stream chunk")
	}
	StringData(c, string(jsonData))
	return nil
}

// Done emits the end-of-stream sentinel.
func Done(c *gin.Context) {
	StringData(c, "[DONE]")
}
