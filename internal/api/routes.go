// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	// Health check
	e.GET("/health", h.HandleHealth)
	e.GET("/api/health", h.HandleHealth)

	// File upload routes
	fileGroup := e.Group("/api/files")
	fileGroup.POST("/upload", h.HandleUploadFile)
	fileGroup.POST("/upload/binary", h.HandleUploadMultipart)
	fileGroup.POST("/upload/chunk", h.HandleUploadChunk)
	fileGroup.POST("/upload/complete", h.HandleCompleteUpload)
	fileGroup.GET("/upload/jobs/:jobId", h.HandleUploadJobStatus)
	fileGroup.GET("/upload/jobs/:jobId/stream", h.HandleUploadJobStream)
	fileGroup.GET("/recent", h.HandleRecentFiles)
	fileGroup.GET("/:id", h.HandleGetFile)
	fileGroup.DELETE("/:id", h.HandleDeleteFile)
	fileGroup.PUT("/:id", h.HandleRenameFile)

	// Import session routes
	importGroup := e.Group("/api/imports")
	importGroup.POST("", h.HandleStartImport)
	importGroup.GET("", h.HandleListImportSessions)
	importGroup.GET("/:sessionId/status", h.HandleImportStatus)
	importGroup.GET("/:sessionId/progress", h.HandleImportProgressStream)
	importGroup.DELETE("/:sessionId", h.HandleCancelImport)

	// Layer group routes
	groupGroup := e.Group("/api/groups")
	groupGroup.GET("", h.HandleGetGroups)
	groupGroup.GET("/msgpack", h.HandleGetGroupsMsgpack)
	groupGroup.GET("/:id/viewbounds", h.HandleGetViewBounds)
	groupGroup.POST("/:id/visibility", h.HandleToggleGroupVisibility)
	groupGroup.POST("/:gid/layers/:lid/visibility", h.HandleToggleLayerVisibility)
	groupGroup.DELETE("/:gid/layers/:lid", h.HandleRemoveLayer)
	groupGroup.DELETE("/:id", h.HandleRemoveGroup)

	// Spatial query
	e.GET("/api/features", h.HandleQueryFeatures)

	// Selection and assignment routes
	e.GET("/api/selection", h.HandleGetSelection)
	e.POST("/api/selection", h.HandleSelectFeature)
	e.DELETE("/api/selection/:id", h.HandleDeselectFeature)
	e.GET("/api/assignments", h.HandleGetAssignments)
	e.POST("/api/assignments", h.HandleAssignPackage)
	e.POST("/api/import/confirm", h.HandleConfirmImport)
	e.GET("/api/stats", h.HandleStats)

	// Project and package directory
	e.GET("/api/projects", h.HandleListProjects)
	e.GET("/api/packages", h.HandleListPackages)
	e.GET("/api/packages/usage", h.HandlePackageUsage)
	e.GET("/api/project", h.HandleGetProject)
	e.POST("/api/project", h.HandleSetProject)

	// Persisted imports
	projectGroup := e.Group("/api/projects/:id")
	projectGroup.POST("/imports", h.HandleSaveImport)
	projectGroup.GET("/imports", h.HandleListImports)
	projectGroup.GET("/imports/:importId", h.HandleGetImport)
}

// RegisterWebSocketRoutes registers WebSocket routes.
func RegisterWebSocketRoutes(e *echo.Echo, wsh *WebSocketHandler) {
	e.GET("/api/ws/progress", wsh.HandleWebSocket)
}

// SetupMiddleware configures common middleware.
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
}
