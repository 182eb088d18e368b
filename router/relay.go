package router

import (
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/middleware"
	"github.com/songquanpeng/poe-bridge/relay/controller"
)

// SetRelayRouter registers the OpenAI-compatible relay endpoints, both under
// /v1 and unprefixed for clients that put /v1 in their base URL already.
func SetRelayRouter(router *gin.Engine) {
	relayV1Router := router.Group("/v1")
	relayV1Router.Use(middleware.RelayPanicRecover(), middleware.TokenAuth())
	registerRelayRoutes(relayV1Router)

	relayRootRouter := router.Group("")
	relayRootRouter.Use(middleware.RelayPanicRecover(), middleware.TokenAuth())
	registerRelayRoutes(relayRootRouter)
}

func registerRelayRoutes(group *gin.RouterGroup) {
	group.POST("/chat/completions", controller.RelayChatCompletions)
	group.POST("/completions", controller.RelayCompletions)
	group.POST("/images/generations", controller.RelayImageGenerations)
	group.POST("/images/edits", controller.RelayImageEdits)
}
