package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/http/handler"
)

// SettingsRouter sets up the settings page routes
// - /settings/* address a saved setting by its host key
// - /sessions/* drive one open editing session
func SettingsRouter(settingsRg, sessionsRg *gin.RouterGroup, h *handler.SettingsHandler) {
	settingsRg.GET("/schema", h.Schema)
	settingsRg.POST("/:setting_id/sessions", h.Open)
	settingsRg.GET("/:setting_id/revisions", h.Revisions)

	sessionsRg.GET("/:session_id", h.Get)
	sessionsRg.DELETE("/:session_id", h.Close)
	sessionsRg.GET("/:session_id/value", h.Value)
	sessionsRg.POST("/:session_id/save", h.Save)

	sessionsRg.POST("/:session_id/entries", h.AddEntry)
	sessionsRg.PATCH("/:session_id/entries/:entry_id", h.UpdateEntry)
	sessionsRg.PUT("/:session_id/entries/:entry_id/fields/:field", h.ChangeField)
	sessionsRg.POST("/:session_id/entries/:entry_id/token", h.RegenerateToken)
	sessionsRg.POST("/:session_id/entries/:entry_id/delete", h.RequestDelete)

	sessionsRg.POST("/:session_id/delete/confirm", h.ConfirmDelete)
	sessionsRg.POST("/:session_id/delete/cancel", h.CancelDelete)
}
