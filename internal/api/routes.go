package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/soundweb-gateway/internal/api/middleware"
)

// RegisterRoutes 注册控制接口路由
func RegisterRoutes(r *gin.Engine, h *Handler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api := r.Group("/api")
	api.Use(middleware.RequestID(), middleware.AccessLog(logger))
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	api.GET("/status", h.Status)
	api.POST("/connect", h.Connect)
	api.POST("/disconnect", h.Disconnect)

	api.POST("/values", h.SetValue)
	api.POST("/raw", h.RawMsg)
	api.GET("/values", h.ListValues)
	api.GET("/values/:group/:id", h.GetValue)

	api.GET("/codes/:group", h.FindCode)
	api.GET("/codes/:group/:code", h.ResolveCode)

	api.GET("/events", h.RecentEvents)

	logger.Info("api routes registered", zap.Int("endpoints", 10))
}
