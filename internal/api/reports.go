package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"posrecon/internal/exporter"
	"posrecon/internal/model"
	"posrecon/internal/summary"
)

const exportDownloadTTL = 10 * time.Minute

// ReportResponse stored daily report.
type ReportResponse struct {
	Date     string              `json:"date"`
	Header   []string            `json:"header"`
	Rows     []summary.DailyRow  `json:"rows"`
	Debt     []summary.DebtBlock `json:"debt"`
	DebtRows int                 `json:"debtRows"`
}

// GetReport GET /api/reports/:date
func (h *Handler) GetReport(c *gin.Context) {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aggs, err := h.store.GetSummaries(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(aggs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Không có dữ liệu ngày %s", date.Format("02/01/2006"))})
		return
	}
	lines, err := h.store.GetDebtLines(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	biz := h.cfg.Business
	c.JSON(http.StatusOK, ReportResponse{
		Date:     date.Format(model.DateLayout),
		Header:   summary.DailyHeader(biz.Products),
		Rows:     summary.DailyTable(aggs, biz.Products),
		Debt:     summary.DebtSummary(lines, biz.ExcludedCustomers, biz.UnknownCode),
		DebtRows: len(lines),
	})
}

// ExportReport GET /api/reports/:date/export
func (h *Handler) ExportReport(c *gin.Context) {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := h.exporter.ExportDaily(date, nil)
	if err != nil {
		h.exportError(c, err)
		return
	}
	h.writeWorkbook(c, f, exporter.DailyFileName(date))
}

// ExportMonthly GET /api/monthly/:year/:month/export
func (h *Handler) ExportMonthly(c *gin.Context) {
	year, month, err := parseYearMonth(c.Param("year"), c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := h.exporter.ExportMonthly(year, month, nil)
	if err != nil {
		h.exportError(c, err)
		return
	}
	h.writeWorkbook(c, f, exporter.MonthlyFileName(year, month))
}

// ExportReportStream POST /api/reports/:date/export/stream
// Streams progress over SSE; the final "done" event carries a one-shot download URL.
func (h *Handler) ExportReportStream(c *gin.Context) {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	send, ok := startSSE(c)
	if !ok {
		return
	}

	f, err := h.exporter.ExportDaily(date, func(ev exporter.ProgressEvent) {
		send(sseEvent{
			Type:      "progress",
			Message:   ev.Stage,
			Data:      gin.H{"percent": ev.Percent},
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		send(sseEvent{Type: "error", Message: err.Error(), Timestamp: time.Now()})
		return
	}
	defer f.Close()

	fileName := exporter.DailyFileName(date)
	filePath := filepath.Join(h.exportDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), fileName))
	if err := f.SaveAs(filePath); err != nil {
		send(sseEvent{Type: "error", Message: err.Error(), Timestamp: time.Now()})
		return
	}

	token := h.downloads.issue(filePath, fileName, exportDownloadTTL)
	send(sseEvent{
		Type:    "done",
		Message: "Xuất file thành công",
		Data: gin.H{
			"fileName":    fileName,
			"downloadUrl": "/api/export/download/" + token,
		},
		Timestamp: time.Now(),
	})
}

// DownloadExport GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	ticket, ok := h.downloads.claim(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download link expired"})
		return
	}

	c.Header("Content-Disposition", contentDisposition(ticket.name, ticket.name))
	c.File(ticket.path)
	_ = os.Remove(ticket.path)
}

func (h *Handler) writeWorkbook(c *gin.Context, f *excelize.File, fileName string) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", contentDisposition(fileName, fileName))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) exportError(c *gin.Context, err error) {
	if errors.Is(err, exporter.ErrNoData) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.log.Error().Err(err).Msg("export")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
