package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"posrecon/internal/exporter"
	"posrecon/internal/ledger"
	"posrecon/internal/reconcile"
	"posrecon/internal/service/reconciler"
)

// maxLedgerUpload upper bound for an uploaded ledger file.
const maxLedgerUpload = 32 << 20

var kindLabels = map[ledger.Kind]string{
	ledger.KindVolume: "sản lượng",
	ledger.KindCash:   "tiền mặt",
	ledger.KindDebt:   "công nợ",
}

// Reconcile POST /api/reconcile (multipart: reconcile_date, reconcile_type, accounting_file)
func (h *Handler) Reconcile(c *gin.Context) {
	dateStr := c.PostForm("reconcile_date")
	kindStr := c.PostForm("reconcile_type")

	if dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Vui lòng chọn ngày đối soát."})
		return
	}
	fh, err := c.FormFile("accounting_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Vui lòng tải lên file từ phần mềm kế toán."})
		return
	}
	date, err := parseDate(dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Vui lòng chọn ngày đối soát."})
		return
	}

	if fh.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("File kế toán vượt quá giới hạn %d MB.", h.maxUpload>>20),
		})
		return
	}

	file, err := fh.Open()
	if err != nil {
		h.unexpected(c, err)
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		h.unexpected(c, err)
		return
	}

	out, err := h.reconciler.Reconcile(reconciler.Request{
		Date:     date,
		Kind:     kindStr,
		Filename: fh.Filename,
		Data:     data,
	})
	switch {
	case err == nil:
	case errors.Is(err, reconciler.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Loại đối soát không hợp lệ."})
		return
	case errors.Is(err, reconciler.ErrReportNotFound):
		source := "BCBH"
		if ledger.Kind(kindStr) == ledger.KindDebt {
			source = "CongNo"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "report_not_found",
			"message": fmt.Sprintf("Không tìm thấy báo cáo POS (%s) ngày %s.", source, date.Format("02.01.2006")),
		})
		return
	case errors.Is(err, ledger.ErrUnreadable):
		msg := "Định dạng file kế toán không hợp lệ hoặc không thể đọc."
		if label, ok := kindLabels[ledger.Kind(kindStr)]; ok {
			msg = fmt.Sprintf("Định dạng file kế toán (%s) không hợp lệ hoặc không thể đọc.", label)
		}
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": msg})
		return
	default:
		h.unexpected(c, err)
		return
	}

	h.log.Info().
		Str("reconcile_type", string(out.Kind)).
		Str("date", date.Format("2006-01-02")).
		Int("records", out.Summary.Total).
		Int("mismatched", out.Summary.Mismatched).
		Str("archived", out.Archived).
		Msg("reconciled")

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"data":           out.Records,
		"reconcile_type": out.Kind,
		"summary":        out.Summary,
	})
}

// ReconcileExportRequest body of POST /api/reconcile/export.
type ReconcileExportRequest struct {
	Data          []reconcile.Record `json:"data"`
	ReconcileType string             `json:"reconcile_type"`
	ReconcileDate string             `json:"reconcile_date"`
}

// ExportReconcile POST /api/reconcile/export
func (h *Handler) ExportReconcile(c *gin.Context) {
	var req ReconcileExportRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Data) == 0 {
		c.String(http.StatusBadRequest, "No data received")
		return
	}
	kind, err := ledger.ParseKind(req.ReconcileType)
	if err != nil {
		kind = ledger.KindVolume
	}
	date := time.Now()
	if d, err := parseDate(req.ReconcileDate); err == nil {
		date = d
	}

	f, err := exporter.ReconcileWorkbook(kind, req.Data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.writeWorkbook(c, f, exporter.ReconcileFileName(kind, date))
}

func (h *Handler) unexpected(c *gin.Context, err error) {
	h.log.Error().Err(err).Msg("reconcile")
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": fmt.Sprintf("Đã xảy ra lỗi không mong muốn: %v", err)})
}
