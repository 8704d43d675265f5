package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"posrecon/internal/importer"
	"posrecon/internal/model"
	"posrecon/internal/server"
)

var runDate string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Import the POS reports of one day",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		date := yesterday(app.Config.Run.Location(), time.Now())
		if runDate != "" {
			if date, err = time.Parse(model.DateLayout, runDate); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
		}
		summary := runDay(cmd.Context(), app, date, cmd.OutOrStdout())
		if summary == nil || summary.Status == model.RunStatusFailed {
			return fmt.Errorf("run for %s failed", date.Format(model.DateLayout))
		}
		return nil
	},
}

var (
	batchStart string
	batchEnd   string
	batchYear  int
	batchMonth int
	batchDelay time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Import a range of days (--start/--end or --year/--month)",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := batchRange(batchStart, batchEnd, batchYear, batchMonth)
		if err != nil {
			return err
		}

		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		var failed []string
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			fmt.Fprintf(out, "==== %s ====\n", d.Format("02/01/2006"))
			summary := runDay(cmd.Context(), app, d, out)
			if summary == nil || summary.Status == model.RunStatusFailed {
				failed = append(failed, d.Format(model.DateLayout))
			}
			if cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
			if batchDelay > 0 && d.Before(end) {
				select {
				case <-time.After(batchDelay):
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("failed days: %v", failed)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "report date YYYY-MM-DD (default: yesterday)")
	batchCmd.Flags().StringVar(&batchStart, "start", "", "first day YYYY-MM-DD")
	batchCmd.Flags().StringVar(&batchEnd, "end", "", "last day YYYY-MM-DD")
	batchCmd.Flags().IntVar(&batchYear, "year", 0, "year, with --month")
	batchCmd.Flags().IntVar(&batchMonth, "month", 0, "month 1-12, with --year")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", 0, "pause between days")
	rootCmd.AddCommand(runCmd, batchCmd)
}

// runDay runs one import and prints its events; returns the final summary, nil when none arrived.
func runDay(ctx context.Context, app *server.App, date time.Time, out io.Writer) *model.RunSummary {
	var summary *model.RunSummary
	for ev := range app.Coordinator.Run(ctx, importer.RunOptions{Date: date}) {
		fmt.Fprintf(out, "[%s] %s\n", ev.Timestamp.Format("15:04:05"), ev.Message)
		if s, ok := ev.Data.(*model.RunSummary); ok {
			summary = s
		}
	}
	return summary
}

func yesterday(loc *time.Location, now time.Time) time.Time {
	d := now.In(loc).AddDate(0, 0, -1)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// batchRange resolves the batch flags into an inclusive day range.
func batchRange(startStr, endStr string, year, month int) (time.Time, time.Time, error) {
	if year > 0 || month > 0 {
		if year <= 0 || month < 1 || month > 12 {
			return time.Time{}, time.Time{}, fmt.Errorf("--year and --month must both be set (month 1-12)")
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1), nil
	}
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("either --start/--end or --year/--month is required")
	}
	start, err := time.Parse(model.DateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--start: %w", err)
	}
	end, err := time.Parse(model.DateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--end: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end is before --start")
	}
	return start, end, nil
}
