// Package http exposes the library over a JSON HTTP API.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
)

// RouterConfig holds the services behind the routes.
// Only Search is required; routes for nil services answer 503.
type RouterConfig struct {
	Search   driving.RetrievalService
	Answer   driving.AnswerService
	Ingest   driving.IngestService
	Sync     driving.LibrarySync
	Document driving.DocumentService

	// ImportDirs lists the directories POST /api/documents may read from.
	// Paths outside them are refused; with none configured the route refuses every path.
	ImportDirs []string

	// AllowOrigins overrides the CORS origin list.
	AllowOrigins []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLog())
	r.Use(CORS(cfg.AllowOrigins))

	h := newHandler(cfg)

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.GET("/search", h.Search)
		api.POST("/ask", h.Ask)

		api.GET("/documents", h.ListDocuments)
		api.POST("/documents", h.IngestDocument)
		api.GET("/documents/:id", h.GetDocument)
		api.GET("/documents/:id/chunks", h.DocumentChunks)

		api.POST("/sync", h.Sync)
		api.GET("/operations", h.Operations)
	}

	return r
}
