package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"posrecon/internal/config"
	"posrecon/internal/grid"
	"posrecon/internal/model"
	"posrecon/internal/source"
	"posrecon/internal/store"
)

const ron95 = "Xăng RON95 Mức 3"

func row(marker, label string, extra map[int]string) grid.Row {
	r := make(grid.Row, 17)
	r[0], r[1] = marker, label
	for i, v := range extra {
		r[i] = v
	}
	return r
}

func report(qty string) grid.Grid {
	return grid.Grid{
		row("I", "Xuất bán lẻ", map[int]string{16: "500000"}),
		row("II", "Xuất bán công nợ", nil),
		row("1", "Công ty Minh Phát", nil),
		row("", ron95, map[int]string{6: "10", 7: "20000", 16: "200000"}),
		row("IV", "Tổng cộng mặt hàng", nil),
		row("", ron95, map[int]string{6: qty}),
		row("V.", "Tồn kho", nil),
		row("", "Tổng cộng", map[int]string{16: "900000"}),
	}
}

// flakySource fails a store for its first failures[code] fetches; stores without a grid are missing.
type flakySource struct {
	mu       sync.Mutex
	grids    map[string]grid.Grid
	failures map[string]int
	calls    map[string]int
}

func (s *flakySource) Fetch(ctx context.Context, st model.Store, date time.Time) (grid.Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[st.Code]++
	g, ok := s.grids[st.Code]
	if !ok || s.calls[st.Code] <= s.failures[st.Code] {
		return nil, source.ErrReportNotFound
	}
	return g, nil
}

func testConfig() *config.AppConfig {
	cfg := config.DefaultConfig()
	cfg.Run.MaxAttempts = 3
	cfg.Run.RetryDelaySeconds = 0
	cfg.Run.Workers = 2
	cfg.Business.Stores = []model.Store{
		{Code: "S1", Name: "CHXD A"},
		{Code: "S2", Name: "CHXD B"},
		{Code: "S3", Name: "CHXD C"},
	}
	return cfg
}

func TestRunRetriesAndPersists(t *testing.T) {
	t.Parallel()

	st, err := store.New(filepath.Join(t.TempDir(), "posrecon.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	src := &flakySource{
		grids:    map[string]grid.Grid{"S1": report("100"), "S2": report("42")},
		failures: map[string]int{"S2": 1},
		calls:    map[string]int{},
	}
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	c := NewCoordinator(st, src, nil, testConfig())
	var summary *model.RunSummary
	var failedEvents int
	for evt := range c.Run(context.Background(), RunOptions{Date: date}) {
		switch evt.Type {
		case "error":
			t.Fatalf("error event: %s", evt.Message)
		case "store_failed":
			failedEvents++
		case "done":
			summary, _ = evt.Data.(*model.RunSummary)
		}
	}
	if summary == nil {
		t.Fatalf("missing done summary")
	}

	if summary.Status != model.RunStatusPartial || summary.Attempts != 3 {
		t.Fatalf("summary got status=%s attempts=%d", summary.Status, summary.Attempts)
	}
	if len(summary.Succeeded) != 2 || summary.Succeeded[0] != "CHXD A" || summary.Succeeded[1] != "CHXD B" {
		t.Fatalf("succeeded got=%v", summary.Succeeded)
	}
	if len(summary.Failed) != 1 || summary.Failed[0] != "CHXD C" {
		t.Fatalf("failed got=%v", summary.Failed)
	}
	// S2 once, S3 three times
	if failedEvents != 4 {
		t.Fatalf("store_failed events got=%d want=4", failedEvents)
	}
	if summary.DebtLines != 2 {
		t.Fatalf("debt lines got=%d want=2", summary.DebtLines)
	}

	want := "Hoàn tất! Xử lý thành công 2/3 cửa hàng. | Các cửa hàng thất bại: CHXD C"
	if got := FinalMessage(summary); got != want {
		t.Fatalf("final message got=%q want=%q", got, want)
	}

	aggs, err := st.GetSummaries(date)
	if err != nil {
		t.Fatalf("get summaries: %v", err)
	}
	if len(aggs) != 2 || aggs[0].StoreCode != "S1" || aggs[1].Quantity(ron95).String() != "42" {
		t.Fatalf("stored aggregates got=%+v", aggs)
	}
	logs, err := st.ListRunLogs(5)
	if err != nil || len(logs) != 1 || logs[0].Status != string(model.RunStatusPartial) {
		t.Fatalf("run logs got=%+v err=%v", logs, err)
	}
	if last, err := st.GetLastRunDate(); err != nil || !last.Equal(date) {
		t.Fatalf("last run date got=%v err=%v", last, err)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	st, err := store.New(filepath.Join(t.TempDir(), "posrecon.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &flakySource{grids: map[string]grid.Grid{}, failures: map[string]int{}, calls: map[string]int{}}
	var last ProgressEvent
	for evt := range NewCoordinator(st, src, nil, testConfig()).Run(ctx, RunOptions{Date: time.Now()}) {
		last = evt
	}
	if last.Type != "error" {
		t.Fatalf("last event got=%s want=error", last.Type)
	}
}

// reportWithCustomers is report("100") with extra debt customers, one product line each.
func reportWithCustomers(names ...string) grid.Grid {
	g := report("100")
	var debt grid.Grid
	for i, name := range names {
		debt = append(debt,
			row(strconv.Itoa(i+2), name, nil),
			row("", ron95, map[int]string{6: "5", 7: "20000", 16: "100000"}),
		)
	}
	out := append(grid.Grid{}, g[:4]...)
	out = append(out, debt...)
	return append(out, g[4:]...)
}

func TestRunDeliversDoneToSlowReader(t *testing.T) {
	t.Parallel()

	st, err := store.New(filepath.Join(t.TempDir(), "posrecon.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := testConfig()
	cfg.Run.Workers = 4
	cfg.Business.Stores = nil
	grids := map[string]grid.Grid{}
	for i := 1; i <= 40; i++ {
		code := fmt.Sprintf("S%02d", i)
		cfg.Business.Stores = append(cfg.Business.Stores, model.Store{Code: code, Name: "CHXD " + code})
		grids[code] = reportWithCustomers("Công ty An Bình", "HTX Vận tải Sông Hồng")
	}
	src := &flakySource{grids: grids, failures: map[string]int{}, calls: map[string]int{}}

	progress := NewCoordinator(st, src, nil, cfg).Run(context.Background(), RunOptions{Date: time.Now()})
	time.Sleep(300 * time.Millisecond)

	var last ProgressEvent
	for evt := range progress {
		last = evt
	}
	if last.Type != "done" {
		t.Fatalf("last event got=%s want=done", last.Type)
	}
	summary, ok := last.Data.(*model.RunSummary)
	if !ok {
		t.Fatalf("done data got=%T want=*model.RunSummary", last.Data)
	}
	if len(summary.Succeeded) != 40 || len(summary.Failed) != 0 || summary.DebtLines != 120 {
		t.Fatalf("summary got succeeded=%d failed=%d debt_lines=%d", len(summary.Succeeded), len(summary.Failed), summary.DebtLines)
	}
}

type staticDirectory grid.Grid

func (d staticDirectory) LoadDirectory(ctx context.Context) (grid.Grid, error) {
	return grid.Grid(d), nil
}

func TestRunWarnsUnresolvedCustomers(t *testing.T) {
	t.Parallel()

	st, err := store.New(filepath.Join(t.TempDir(), "posrecon.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := testConfig()
	cfg.Business.Stores = cfg.Business.Stores[:1]
	src := &flakySource{grids: map[string]grid.Grid{"S1": report("100")}, failures: map[string]int{}, calls: map[string]int{}}
	directory := staticDirectory{
		{"STT", "TenKhachHang", "MaKhach"},
		{"1", "Công ty Minh Phát Long", "KH777"},
	}

	var warnings []ProgressEvent
	for evt := range NewCoordinator(st, src, directory, cfg).Run(context.Background(), RunOptions{Date: time.Now()}) {
		if evt.Type == "warning" {
			warnings = append(warnings, evt)
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings got=%d want=1: %+v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0].Message, "Công ty Minh Phát Long") {
		t.Fatalf("warning got=%q, want the closest directory name", warnings[0].Message)
	}
	data, _ := warnings[0].Data.(map[string]string)
	if data["customer_name"] != "Công ty Minh Phát" {
		t.Fatalf("warning data got=%v", data)
	}
}
