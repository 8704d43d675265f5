// Package importer runs the daily POS collection: fetch every store's report, parse it,
// retry the failures and persist what succeeded.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"posrecon/internal/config"
	"posrecon/internal/customer"
	"posrecon/internal/logging"
	"posrecon/internal/model"
	"posrecon/internal/parser"
	"posrecon/internal/source"
	"posrecon/internal/store"
)

// Coordinator daily run coordinator.
type Coordinator struct {
	store     *store.Store
	source    source.ReportSource
	directory customer.Loader
	cfg       *config.AppConfig
	log       zerolog.Logger
}

// NewCoordinator creates a coordinator. directory may be nil when no customer directory is configured.
func NewCoordinator(st *store.Store, src source.ReportSource, directory customer.Loader, cfg *config.AppConfig) *Coordinator {
	return &Coordinator{
		store:     st,
		source:    src,
		directory: directory,
		cfg:       cfg,
		log:       logging.WithComponent("importer"),
	}
}

// RunOptions daily run options.
type RunOptions struct {
	Date   time.Time
	Stores []model.Store // defaults to every configured store
}

// ProgressEvent progress event, streamed to SSE clients as is.
type ProgressEvent struct {
	Type      string      `json:"type"` // start/info/store_done/store_failed/warning/done/error
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// storeResult outcome of one store in one attempt.
type storeResult struct {
	store  model.Store
	result parser.Result
	err    error
}

// finalEventGrace how long a cancelled run waits for its reader to take the closing event.
const finalEventGrace = 5 * time.Second

// errEmptyReport the report was fetched but held no usable data.
var errEmptyReport = errors.New("báo cáo không hợp lệ hoặc rỗng")

// runContext state of one run.
type runContext struct {
	ctx          context.Context
	opts         RunOptions
	runID        string
	startTime    time.Time
	parser       *parser.BH03Parser
	index        *customer.Index
	progressChan chan ProgressEvent
}

// Run executes a daily run and returns its progress channel; the channel closes when the run ends.
func (c *Coordinator) Run(ctx context.Context, opts RunOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doRun(ctx, opts, progressChan)
	}()

	return progressChan
}

func (c *Coordinator) doRun(ctx context.Context, opts RunOptions, progressChan chan ProgressEvent) {
	if len(opts.Stores) == 0 {
		opts.Stores = c.cfg.Business.Stores
	}
	day := opts.Date.Format(model.DateLayout)
	rc := &runContext{
		ctx:          ctx,
		opts:         opts,
		runID:        uuid.NewString(),
		startTime:    time.Now(),
		progressChan: progressChan,
	}
	log := c.log.With().Str("run_id", rc.runID).Str("report_date", day).Logger()

	c.emit(rc, "start", fmt.Sprintf("Bắt đầu xử lý báo cáo ngày %s", opts.Date.Format("02/01/2006")), map[string]interface{}{
		"run_id":       rc.runID,
		"report_date":  day,
		"total_stores": len(opts.Stores),
	})

	if len(opts.Stores) == 0 {
		c.emitFinal(rc, "error", "Chưa cấu hình cửa hàng nào.", nil)
		return
	}

	if err := c.store.CreateRunLog(rc.runID, opts.Date, len(opts.Stores)); err != nil {
		log.Warn().Err(err).Msg("create run log")
		c.emit(rc, "warning", fmt.Sprintf("Không thể ghi nhật ký chạy: %v", err), nil)
	}

	index := c.loadDirectory(rc)
	rc.index = index
	biz := c.cfg.Business
	rc.parser = parser.NewBH03Parser(parser.Options{
		Layout:            parser.DefaultLayout(),
		Products:          biz.Products,
		ExcludedCustomers: biz.ExcludedCustomers,
		UnknownCode:       biz.UnknownCode,
	}, index)

	summary := &model.RunSummary{
		RunID:       rc.runID,
		ReportDate:  opts.Date,
		TotalStores: len(opts.Stores),
		Status:      model.RunStatusRunning,
	}
	results := map[string]parser.Result{}
	pending := opts.Stores

	maxAttempts := c.cfg.Run.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts && len(pending) > 0; attempt++ {
		summary.Attempts = attempt
		c.emit(rc, "info", fmt.Sprintf("Lần thử %d/%d: %d cửa hàng", attempt, maxAttempts, len(pending)), map[string]interface{}{
			"attempt": attempt,
			"pending": len(pending),
		})

		var failed []model.Store
		for _, r := range c.processAttempt(rc, pending) {
			if r.err != nil {
				failed = append(failed, r.store)
				c.emit(rc, "store_failed", fmt.Sprintf("❌ %s: %v", r.store.Name, r.err), map[string]string{
					"store_code": r.store.Code,
					"store_name": r.store.Name,
				})
				continue
			}
			results[r.store.Code] = r.result
			c.emit(rc, "store_done", fmt.Sprintf("✔ %s: đã tổng hợp BCBH.", r.store.Name), map[string]interface{}{
				"store_code": r.store.Code,
				"store_name": r.store.Name,
				"debt_lines": len(r.result.DebtLines),
			})
			c.warnUnresolved(rc, r.store, r.result.DebtLines)
		}
		pending = failed

		if ctx.Err() != nil {
			break
		}
		if len(pending) > 0 && attempt < maxAttempts {
			if err := sleepContext(ctx, c.cfg.Run.RetryDelay()); err != nil {
				break
			}
		}
	}

	aggs, lines := collect(opts.Stores, results)
	for _, s := range opts.Stores {
		if _, ok := results[s.Code]; ok {
			summary.Succeeded = append(summary.Succeeded, s.Name)
		}
	}
	for _, s := range pending {
		summary.Failed = append(summary.Failed, s.Name)
	}
	summary.DebtLines = len(lines)

	if len(aggs) > 0 {
		if err := c.store.SaveDailyReport(opts.Date, aggs, lines); err != nil {
			log.Error().Err(err).Msg("save daily report")
			summary.ErrorMessage = err.Error()
			c.emit(rc, "warning", fmt.Sprintf("Lưu dữ liệu thất bại: %v", err), nil)
		} else {
			c.emit(rc, "info", fmt.Sprintf("Đã lưu %d cửa hàng, %d dòng công nợ.", len(aggs), len(lines)), nil)
			if err := c.store.SetLastRunDate(opts.Date); err != nil {
				log.Warn().Err(err).Msg("set last run date")
			}
		}
	}

	switch {
	case ctx.Err() != nil:
		summary.Status = model.RunStatusFailed
		summary.ErrorMessage = "đã hủy"
	case len(summary.Succeeded) == 0:
		summary.Status = model.RunStatusFailed
	case len(summary.Failed) > 0:
		summary.Status = model.RunStatusPartial
	default:
		summary.Status = model.RunStatusSuccess
	}
	summary.Duration = time.Since(rc.startTime)

	if err := c.store.UpdateRunLog(summary); err != nil {
		log.Warn().Err(err).Msg("update run log")
	}
	log.Info().
		Int("succeeded", len(summary.Succeeded)).
		Int("failed", len(summary.Failed)).
		Int("attempts", summary.Attempts).
		Dur("duration", summary.Duration).
		Msg("run finished")

	if ctx.Err() != nil {
		c.emitFinal(rc, "error", fmt.Sprintf("Đã hủy: %v", ctx.Err()), summary)
		return
	}
	c.emitFinal(rc, "done", FinalMessage(summary), summary)
}

// FinalMessage the operator-facing closing line of a run.
func FinalMessage(s *model.RunSummary) string {
	msg := fmt.Sprintf("Hoàn tất! Xử lý thành công %d/%d cửa hàng.", len(s.Succeeded), s.TotalStores)
	if len(s.Failed) > 0 {
		msg += " | Các cửa hàng thất bại: " + strings.Join(s.Failed, ", ")
	}
	return msg
}

// loadDirectory builds the customer index once per run. Failures degrade to an empty index.
func (c *Coordinator) loadDirectory(rc *runContext) *customer.Index {
	opts := customer.Options{
		ExcludedCustomers: c.cfg.Business.ExcludedCustomers,
		UnknownCode:       c.cfg.Business.UnknownCode,
	}
	if c.directory == nil {
		c.emit(rc, "warning", "Chưa cấu hình danh sách khách hàng (DSKH); mọi mã khách sẽ là không xác định.", nil)
		return customer.NewIndex(nil, opts)
	}
	idx, err := customer.Load(rc.ctx, c.directory, opts)
	if err != nil {
		c.log.Warn().Err(err).Msg("load customer directory")
		c.emit(rc, "warning", fmt.Sprintf("Không đọc được DSKH: %v", err), nil)
		return customer.NewIndex(nil, opts)
	}
	c.emit(rc, "info", fmt.Sprintf("Đã tải DSKH: %d khách hàng.", idx.Len()), nil)
	return idx
}

// processAttempt fans the pending stores out over the worker pool; results keep the input order.
func (c *Coordinator) processAttempt(rc *runContext, pending []model.Store) []storeResult {
	workers := c.cfg.Run.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	results := make([]storeResult, len(pending))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.processStore(rc, pending[i])
			}
		}()
	}

feed:
	for i := range pending {
		select {
		case jobs <- i:
		case <-rc.ctx.Done():
			for j := i; j < len(pending); j++ {
				results[j] = storeResult{store: pending[j], err: rc.ctx.Err()}
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (c *Coordinator) processStore(rc *runContext, st model.Store) storeResult {
	if err := rc.ctx.Err(); err != nil {
		return storeResult{store: st, err: err}
	}
	g, err := c.source.Fetch(rc.ctx, st, rc.opts.Date)
	if err != nil {
		return storeResult{store: st, err: err}
	}
	res, ok := rc.parser.Parse(g, st)
	if !ok {
		return storeResult{store: st, err: errEmptyReport}
	}
	res.Aggregate.ReportDate = rc.opts.Date
	return storeResult{store: st, result: res}
}

// warnUnresolved reports debt customers missing from the directory, once per name, with the closest
// directory name when there is one.
func (c *Coordinator) warnUnresolved(rc *runContext, st model.Store, lines []model.DebtLine) {
	seen := map[string]bool{}
	for _, l := range lines {
		if rc.index.IsKnown(l.CustomerCode) || seen[l.CustomerName] {
			continue
		}
		seen[l.CustomerName] = true
		msg := fmt.Sprintf("%s: không tìm thấy mã khách cho \"%s\"", st.Name, l.CustomerName)
		data := map[string]string{"store_code": st.Code, "customer_name": l.CustomerName}
		if hint, ok := rc.index.Suggest(l.CustomerName); ok {
			msg += fmt.Sprintf(" (gần giống \"%s\")", hint)
			data["suggestion"] = hint
		}
		c.emit(rc, "warning", msg, data)
	}
}

// collect orders results by the configured store order.
func collect(stores []model.Store, results map[string]parser.Result) ([]model.StoreAggregate, []model.DebtLine) {
	var aggs []model.StoreAggregate
	var lines []model.DebtLine
	for _, s := range stores {
		r, ok := results[s.Code]
		if !ok {
			continue
		}
		aggs = append(aggs, r.Aggregate)
		lines = append(lines, r.DebtLines...)
	}
	return aggs, lines
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// emit sends a progress event without blocking the run.
func (c *Coordinator) emit(rc *runContext, typ, message string, data interface{}) {
	c.sendProgress(rc.progressChan, ProgressEvent{
		Type:      typ,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// emitFinal delivers the closing event of a run. Readers drain the channel until it closes, so
// the send blocks; once the run context is cancelled it waits at most finalEventGrace.
func (c *Coordinator) emitFinal(rc *runContext, typ, message string, data interface{}) {
	event := ProgressEvent{
		Type:      typ,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
	select {
	case rc.progressChan <- event:
		return
	case <-rc.ctx.Done():
	}

	t := time.NewTimer(finalEventGrace)
	defer t.Stop()
	select {
	case rc.progressChan <- event:
	case <-t.C:
		c.log.Warn().Str("run_id", rc.runID).Str("type", typ).Msg("final progress event not delivered")
	}
}

// sendProgress drops informational events when the channel is full.
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
	}
}
