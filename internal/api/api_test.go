package api

import (
	"bytes"
	"encoding/json"
	"html"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"posrecon/internal/config"
	"posrecon/internal/importer"
	"posrecon/internal/model"
	"posrecon/internal/reconcile"
	"posrecon/internal/service/reconciler"
	"posrecon/internal/source"
	"posrecon/internal/store"
)

const ron95 = "Xăng RON95 Mức 3"

var reportDate = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	store  *store.Store
	h      *Handler
}

func newTestEnv(t *testing.T, internalKey string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "posrecon.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultConfig()
	cfg.Server.InternalAPIKey = internalKey
	cfg.Run.MaxAttempts = 1
	cfg.Run.RetryDelaySeconds = 0
	cfg.Business.Stores = []model.Store{{Code: "S1", Name: "CHXD A"}}
	cfg.Business.VolumeMapping = map[string]string{"KT01": "S1"}

	coordinator := importer.NewCoordinator(st, source.NewDirSource(filepath.Join(dir, "reports")), nil, cfg)
	rec := reconciler.New(st, cfg.Business, filepath.Join(dir, "uploads"))
	h := NewHandler(st, cfg, coordinator, rec, dir)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	h.RegisterInternalRoutes(r.Group("/internal"))
	return &testEnv{router: r, store: st, h: h}
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	agg := model.StoreAggregate{
		StoreCode:     "S1",
		StoreName:     "CHXD A",
		Products:      map[string]decimal.Decimal{ron95: decimal.NewFromInt(100)},
		TotalQuantity: decimal.NewFromInt(100),
		Revenue:       decimal.NewFromInt(2000000),
		Cash:          decimal.NewFromInt(500000),
	}
	lines := []model.DebtLine{{
		StoreCode: "S1", Store: "CHXD A", CustomerCode: "KH01", CustomerName: "Công ty Minh Phát",
		Product: ron95, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(20000), Debt: decimal.NewFromInt(200000),
	}}
	if err := e.store.SaveDailyReport(reportDate, []model.StoreAggregate{agg}, lines); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func xmlLedger(rows [][]string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><Workbook xmlns="urn:schemas-microsoft-com:office:spreadsheet" xmlns:ss="urn:schemas-microsoft-com:office:spreadsheet"><Worksheet ss:Name="Sheet1"><Table>`)
	for _, r := range rows {
		b.WriteString("<Row>")
		for _, c := range r {
			b.WriteString(`<Cell><Data ss:Type="String">` + html.EscapeString(c) + `</Data></Cell>`)
		}
		b.WriteString("</Row>")
	}
	b.WriteString(`</Table></Worksheet></Workbook>`)
	return []byte(b.String())
}

func volumeLedger(a95 string) []byte {
	d := "Ngày 14/03"
	return xmlLedger([][]string{
		{"SỔ TỔNG HỢP"},
		{"Mã khách", "Tên khách", d + " Dầu DO 0,001S-V", d + " Dầu mỡ nhờn", d + " DO", d + " Xăng A95", d + " Xăng E5"},
		{"", "Tổng cộng"},
		{"KT01", "CHXD A", "0", "0", "0", a95, "0"},
	})
}

func reconcileRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if file != nil {
		fw, err := mw.CreateFormFile("accounting_file", "ledger.xml")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write(file)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestReconcileValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")

	w := env.do(reconcileRequest(t, map[string]string{"reconcile_type": "SanLuong"}, volumeLedger("100")))
	if w.Code != http.StatusBadRequest || decodeBody(t, w)["message"] != "Vui lòng chọn ngày đối soát." {
		t.Fatalf("missing date got=%d %s", w.Code, w.Body.String())
	}

	w = env.do(reconcileRequest(t, map[string]string{"reconcile_date": "2025-03-14", "reconcile_type": "SanLuong"}, nil))
	if w.Code != http.StatusBadRequest || decodeBody(t, w)["message"] != "Vui lòng tải lên file từ phần mềm kế toán." {
		t.Fatalf("missing file got=%d %s", w.Code, w.Body.String())
	}

	w = env.do(reconcileRequest(t, map[string]string{"reconcile_date": "2025-03-14", "reconcile_type": "Kho"}, volumeLedger("100")))
	if w.Code != http.StatusBadRequest || decodeBody(t, w)["message"] != "Loại đối soát không hợp lệ." {
		t.Fatalf("invalid type got=%d %s", w.Code, w.Body.String())
	}
}

func TestReconcileRejectsOversizedUpload(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")
	env.seed(t)
	env.h.maxUpload = 1 << 20

	big := volumeLedger(strings.Repeat("9", 2<<20))
	w := env.do(reconcileRequest(t, map[string]string{"reconcile_date": "2025-03-14", "reconcile_type": "SanLuong"}, big))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status got=%d want=413 body=%s", w.Code, w.Body.String())
	}
	if msg := decodeBody(t, w)["message"]; msg != "File kế toán vượt quá giới hạn 1 MB." {
		t.Fatalf("message got=%v", msg)
	}
}

func TestReconcileReportNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")

	w := env.do(reconcileRequest(t, map[string]string{"reconcile_date": "2025-03-14", "reconcile_type": "CongNo"}, volumeLedger("100")))
	if w.Code != http.StatusOK {
		t.Fatalf("status got=%d want=200", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "report_not_found" {
		t.Fatalf("status got=%v", body["status"])
	}
	if body["message"] != "Không tìm thấy báo cáo POS (CongNo) ngày 14.03.2025." {
		t.Fatalf("message got=%v", body["message"])
	}
}

func TestReconcileVolume(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")
	env.seed(t)

	w := env.do(reconcileRequest(t, map[string]string{"reconcile_date": "2025-03-14", "reconcile_type": "SanLuong"}, volumeLedger("90")))
	if w.Code != http.StatusOK {
		t.Fatalf("status got=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Status        string             `json:"status"`
		ReconcileType string             `json:"reconcile_type"`
		Data          []reconcile.Record `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || resp.ReconcileType != "SanLuong" {
		t.Fatalf("resp got=%+v", resp)
	}
	if len(resp.Data) != 1 || resp.Data[0].IsMatch || resp.Data[0].Entity != ron95 {
		t.Fatalf("records got=%+v", resp.Data)
	}

	w = env.do(reconcileRequest(t, map[string]string{"reconcile_date": "2025-03-14", "reconcile_type": "SanLuong"}, []byte("garbage")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unreadable status got=%d", w.Code)
	}
	if msg := decodeBody(t, w)["message"]; msg != "Định dạng file kế toán (sản lượng) không hợp lệ hoặc không thể đọc." {
		t.Fatalf("unreadable message got=%v", msg)
	}
}

func TestExportReconcile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")

	body := `{"reconcile_type":"SanLuong","reconcile_date":"2025-03-14","data":[{"chxd_name":"CHXD A","product_name":"Xăng RON95 Mức 3","pos_value":100,"sse_value":"N/A","is_match":false,"status":"Không có trên file KT"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/reconcile/export", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status got=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content type got=%q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "KetQuaDoiSoat_SanLuong_14-03-2025.xlsx") {
		t.Fatalf("disposition got=%q", cd)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/reconcile/export", strings.NewReader(`{"data":[]}`))
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(req); w.Code != http.StatusBadRequest {
		t.Fatalf("empty data got=%d", w.Code)
	}
}

func TestGetReport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")

	if w := env.do(httptest.NewRequest(http.MethodGet, "/api/reports/2025-03-14", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("empty got=%d", w.Code)
	}
	env.seed(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/reports/14.03.2025", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status got=%d body=%s", w.Code, w.Body.String())
	}
	var resp ReportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Date != "2025-03-14" || len(resp.Rows) != 1 || len(resp.Debt) != 1 || resp.DebtRows != 1 {
		t.Fatalf("resp got=%+v", resp)
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/reports/2025-03-14/export", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("export got=%d %q", w.Code, w.Header().Get("Content-Type"))
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/monthly/2025/3/export", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("monthly got=%d body=%s", w.Code, w.Body.String())
	}
	if w := env.do(httptest.NewRequest(http.MethodGet, "/api/monthly/2025/13/export", nil)); w.Code != http.StatusBadRequest {
		t.Fatalf("bad month got=%d", w.Code)
	}
}

func TestExportStreamDownloadOnce(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")
	env.seed(t)

	w := env.do(httptest.NewRequest(http.MethodPost, "/api/reports/2025-03-14/export/stream", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status got=%d", w.Code)
	}
	events := parseSSE(t, w.Body.String())
	last := events[len(events)-1]
	if last.Type != "done" {
		t.Fatalf("last event got=%+v", last)
	}
	url, _ := last.Data.(map[string]interface{})["downloadUrl"].(string)
	if !strings.HasPrefix(url, "/api/export/download/") {
		t.Fatalf("download url got=%q", url)
	}

	w = env.do(httptest.NewRequest(http.MethodGet, url, nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("download got=%d len=%d", w.Code, w.Body.Len())
	}
	if w := env.do(httptest.NewRequest(http.MethodGet, url, nil)); w.Code != http.StatusNotFound {
		t.Fatalf("second download got=%d want=404", w.Code)
	}
}

func TestStartRunStreamsUntilDone(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")

	w := env.do(httptest.NewRequest(http.MethodPost, "/api/runs?report_date=2025-03-14", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status got=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type got=%q", ct)
	}
	events := parseSSE(t, w.Body.String())
	if events[0].Type != "start" {
		t.Fatalf("first event got=%+v", events[0])
	}
	if last := events[len(events)-1]; last.Type != "done" {
		t.Fatalf("last event got=%+v", last)
	}
	if env.h.running.Load() {
		t.Fatalf("run flag left set")
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "2025-03-14") {
		t.Fatalf("run logs got=%d %s", w.Code, w.Body.String())
	}
}

func TestInternalRoutesRequireKey(t *testing.T) {
	t.Parallel()

	disabled := newTestEnv(t, "")
	if w := disabled.do(httptest.NewRequest(http.MethodGet, "/internal/runs/stream?report_date=2025-03-14", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("disabled got=%d", w.Code)
	}

	env := newTestEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/internal/runs/stream?report_date=2025-03-14", nil)
	req.Header.Set("X-Internal-Api-Key", "wrong")
	if w := env.do(req); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key got=%d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/internal/runs/stream?report_date=2025-03-14", nil)
	req.Header.Set("X-Internal-Api-Key", "secret")
	if w := env.do(req); w.Code != http.StatusOK {
		t.Fatalf("right key got=%d", w.Code)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Initialized || resp.Stores != 1 {
		t.Fatalf("fresh status got=%+v", resp)
	}

	if err := env.store.SetLastRunDate(reportDate); err != nil {
		t.Fatalf("set last run: %v", err)
	}
	w = env.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Initialized || resp.LastRunDate != "2025-03-14" {
		t.Fatalf("status got=%+v", resp)
	}
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	for _, chunk := range strings.Split(body, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if !strings.HasPrefix(chunk, "data: ") {
			continue
		}
		var ev sseEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &ev); err != nil {
			t.Fatalf("decode event %q: %v", chunk, err)
		}
		out = append(out, ev)
	}
	if len(out) == 0 {
		t.Fatalf("no events in %q", body)
	}
	return out
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"2025-03-14", "14/03/2025", "14.03.2025", "14-03-2025"} {
		got, err := parseDate(in)
		if err != nil || !got.Equal(reportDate) {
			t.Fatalf("parseDate(%q) got=%v err=%v", in, got, err)
		}
	}
	if _, err := parseDate("2025/14/03"); err == nil {
		t.Fatalf("expected error")
	}
}
