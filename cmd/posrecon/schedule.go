package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"posrecon/internal/importer"
	"posrecon/internal/logging"
	"posrecon/internal/model"
)

var scheduleAt string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Import yesterday's reports every day at a fixed time",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		at := app.Config.Run.ScheduleAt
		if scheduleAt != "" {
			at = scheduleAt
		}
		loc := app.Config.Run.Location()
		log := logging.WithComponent("schedule")

		for {
			next, err := nextRun(time.Now(), at, loc)
			if err != nil {
				return err
			}
			log.Info().Time("next_run", next).Msg("waiting")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Until(next)):
			}

			date := yesterday(loc, time.Now())
			summary := runDay(ctx, app, date, cmd.OutOrStdout())
			if summary != nil {
				log.Info().
					Str("report_date", date.Format(model.DateLayout)).
					Str("status", string(summary.Status)).
					Msg(importer.FinalMessage(summary))
			}
		}
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleAt, "at", "", "daily run time HH:MM (default: run.schedule_at)")
	rootCmd.AddCommand(scheduleCmd)
}

// nextRun first occurrence of the HH:MM wall-clock time in loc strictly after now.
func nextRun(now time.Time, at string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule time %q: %w", at, err)
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
