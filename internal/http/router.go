package http

import (
	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/database"
)

// RouterConfig carries the dependencies the router needs, keeping
// NewRouter's signature stable as collaborators are added.
type RouterConfig struct {
	Database      *database.Database
	ImportManager ImportManager
	Version       string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	imports := NewImportsController(cfg.ImportManager)

	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Import job endpoints
	router.POST("/api/imports", imports.Create)
	router.GET("/api/imports", imports.List)
	router.GET("/api/imports/:id", imports.GetStatus)
	router.POST("/api/imports/:id/pause", imports.Pause)
	router.POST("/api/imports/:id/resume", imports.Resume)
	router.POST("/api/imports/:id/cancel", imports.Cancel)
	router.DELETE("/api/imports/:id", imports.Delete)

	return router
}
