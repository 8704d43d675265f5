// Package api serves the JSON, SSE and download endpoints used by the web client and by internal callers.
package api

import (
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"posrecon/internal/config"
	"posrecon/internal/exporter"
	"posrecon/internal/importer"
	"posrecon/internal/logging"
	"posrecon/internal/service/reconciler"
	"posrecon/internal/store"
)

// Handler API handlers.
type Handler struct {
	store       *store.Store
	cfg         *config.AppConfig
	coordinator *importer.Coordinator
	reconciler  *reconciler.Service
	exporter    *exporter.Exporter
	downloads   *downloadStore
	exportDir   string
	maxUpload   int64
	running     atomic.Bool
	log         zerolog.Logger
}

// NewHandler creates the API handler. Streamed exports are written to exportDir.
func NewHandler(st *store.Store, cfg *config.AppConfig, coordinator *importer.Coordinator, rec *reconciler.Service, exportDir string) *Handler {
	return &Handler{
		store:       st,
		cfg:         cfg,
		coordinator: coordinator,
		reconciler:  rec,
		exporter:    exporter.NewExporter(st, cfg.Business),
		downloads:   newDownloadStore(),
		exportDir:   exportDir,
		maxUpload:   maxLedgerUpload,
		log:         logging.WithComponent("api"),
	}
}

// RegisterRoutes registers the public routes under /api.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)
	router.GET("/months", h.ListMonths)

	// daily run
	router.GET("/runs", h.ListRuns)
	router.POST("/runs", h.StartRun)

	// stored reports
	router.GET("/reports/:date", h.GetReport)
	router.GET("/reports/:date/export", h.ExportReport)
	router.POST("/reports/:date/export/stream", h.ExportReportStream)
	router.GET("/export/download/:token", h.DownloadExport)
	router.GET("/monthly/:year/:month/export", h.ExportMonthly)

	// reconciliation
	router.POST("/reconcile", h.Reconcile)
	router.POST("/reconcile/export", h.ExportReconcile)
}

// RegisterInternalRoutes registers the routes under /internal, guarded by the internal API key.
func (h *Handler) RegisterInternalRoutes(router *gin.RouterGroup) {
	router.Use(RequireInternalKey(h.cfg.Server.InternalAPIKey))
	router.GET("/runs/stream", h.StartRun)
}
