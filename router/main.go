package router

import (
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/controller"
	"github.com/songquanpeng/poe-bridge/middleware"
)

// SetRouter registers every route on the server. The model catalog is built
// by the caller so tests can swap it out.
func SetRouter(server *gin.Engine, catalog *controller.ModelCatalog) {
	server.Use(middleware.CORS())

	server.GET("/", controller.GetStatus)

	setModelRouter(server, catalog)
	SetRelayRouter(server)
}

// setModelRouter registers the catalog endpoints. They are deliberately left
// unauthenticated: clients probe them before configuring credentials.
func setModelRouter(server *gin.Engine, catalog *controller.ModelCatalog) {
	server.GET("/v1/models", catalog.ListModels)
	server.GET("/v1/models/:model", catalog.RetrieveModel)
	server.GET("/models", catalog.ListModels)
}
