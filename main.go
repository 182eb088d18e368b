package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v6"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/songquanpeng/poe-bridge/common"
	"github.com/songquanpeng/poe-bridge/common/client"
	"github.com/songquanpeng/poe-bridge/common/config"
	"github.com/songquanpeng/poe-bridge/common/graceful"
	"github.com/songquanpeng/poe-bridge/common/logger"
	"github.com/songquanpeng/poe-bridge/controller"
	"github.com/songquanpeng/poe-bridge/middleware"
	"github.com/songquanpeng/poe-bridge/relay/token"
	"github.com/songquanpeng/poe-bridge/router"
)

func main() {
	common.Init()
	if *common.PrintVersion {
		fmt.Println(common.Version)
		os.Exit(0)
	}
	logger.Logger.Info("poe-bridge started", zap.String("version", common.Version))

	if config.GinMode != gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	client.Init()
	token.Init()

	logLevel := glog.LevelInfo
	if config.DebugEnabled {
		logLevel = glog.LevelDebug
	}

	server := gin.New()
	server.RedirectTrailingSlash = false
	// Clients that already have /v1 in their base URL produce //v1/... paths.
	server.RemoveExtraSlash = true
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(logLevel.String()),
			gmw.WithLogger(logger.Logger.Named("gin")),
		),
	)
	// No gzip middleware: it breaks SSE streaming.
	server.Use(middleware.RequestId())
	server.Use(middleware.RequestTracker())

	if config.EnablePrometheusMetrics {
		server.Use(middleware.PrometheusMiddleware())
		server.GET("/metrics", gin.WrapH(promhttp.Handler()))
		logger.Logger.Info("Prometheus metrics endpoint available at /metrics")
	}

	catalog := controller.NewModelCatalog()
	router.SetRouter(server, catalog)

	port := config.ServerPort
	if port == "" {
		port = strconv.Itoa(*common.Port)
	}

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server,
	}

	go func() {
		logger.Logger.Info("server started", zap.String("address", "http://localhost:"+port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("shutting down, draining in-flight streams")
	graceful.SetDraining()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Logger.Error("forced shutdown", zap.Error(err))
	}
	if err := graceful.Drain(ctx); err != nil {
		logger.Logger.Error("drain incomplete", zap.Error(err))
	}
}
