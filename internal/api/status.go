package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"posrecon/internal/model"
	"posrecon/internal/store"
)

// StatusResponse service status.
type StatusResponse struct {
	Initialized bool              `json:"initialized"`
	Stores      int               `json:"stores"`
	Products    []string          `json:"products"`
	LastRunDate string            `json:"lastRunDate"`
	Running     bool              `json:"running"`
	LastRun     *store.RunLog     `json:"lastRun,omitempty"`
	Internal    bool              `json:"internalEnabled"`
	Settings    map[string]string `json:"settings"`
}

// GetStatus GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Stores:   len(h.cfg.Business.Stores),
		Products: h.cfg.Business.Products,
		Running:  h.running.Load(),
		Internal: h.cfg.Server.InternalAPIKey != "",
	}
	if last, err := h.store.GetLastRunDate(); err == nil {
		resp.Initialized = true
		resp.LastRunDate = last.Format(model.DateLayout)
	}
	if settings, err := h.store.GetAllConfig(); err == nil {
		resp.Settings = settings
	}
	if logs, err := h.store.ListRunLogs(1); err == nil && len(logs) > 0 {
		resp.LastRun = &logs[0]
	}
	c.JSON(http.StatusOK, resp)
}

// ListMonths GET /api/months
func (h *Handler) ListMonths(c *gin.Context) {
	items, err := h.store.ListAvailableMonths()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []store.YearMonthStat{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListRuns GET /api/runs?limit=
func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	logs, err := h.store.ListRunLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []store.RunLog{}
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}
