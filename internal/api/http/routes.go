package http

import (
	"github.com/gin-gonic/gin"
)

// Register mounts the REST API on router
func Register(router gin.IRouter, h *Handlers, agg *MetricsAggregator) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	// Tabs
	router.GET("/tabs", h.ListTabs)
	router.POST("/tabs", h.CreateTab)
	router.GET("/tabs/:id", h.GetTab)
	router.DELETE("/tabs/:id", h.CloseTab)

	// Browser-initiated navigation
	router.POST("/tabs/:id/navigate", h.Navigate)
	router.POST("/tabs/:id/back", h.Back)
	router.POST("/tabs/:id/forward", h.Forward)
	router.POST("/tabs/:id/go", h.Go)
	router.POST("/tabs/:id/reload", h.Reload)
	router.POST("/tabs/:id/repost", h.ConfirmRepost)
	router.POST("/tabs/:id/stop", h.Stop)
	router.GET("/tabs/:id/history", h.GetHistory)

	// Document-side operations
	router.POST("/tabs/:id/history/push", h.PushState)
	router.POST("/tabs/:id/history/replace", h.ReplaceState)
	router.POST("/tabs/:id/history/fragment", h.Fragment)
	router.GET("/tabs/:id/frames", h.ListFrames)
	router.POST("/tabs/:id/frames", h.CreateFrame)
	router.DELETE("/tabs/:id/frames/:frame", h.RemoveFrame)
	router.POST("/tabs/:id/frames/:frame/navigate", h.NavigateFrame)

	// Sessions
	router.GET("/sessions", h.ListSessions)
	router.POST("/sessions", h.SaveSession)
	router.POST("/sessions/import", h.ImportSession)
	router.GET("/sessions/:id", h.GetSession)
	router.GET("/sessions/:id/export", h.ExportSession)
	router.POST("/sessions/:id/restore", h.RestoreSession)
	router.DELETE("/sessions/:id", h.DeleteSession)

	if agg != nil {
		router.GET("/metrics/json", agg.GetAggregatedMetrics)
	}
}
