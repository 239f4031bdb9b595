package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/http/handler"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/http/middleware"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/service"
)

type RouterConfig struct {
	AdminAPIKey     string
	TraceHeaderName string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TraceHeader(cfg.TraceHeaderName))
	v1.Use(middleware.RequireAdminAPIKey(cfg.AdminAPIKey))
	{
		settingsHandler := handler.NewSettingsHandler(services.Settings())
		SettingsRouter(v1.Group("/settings"), v1.Group("/sessions"), settingsHandler)
	}
}
