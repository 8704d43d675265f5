package store

import (
	"encoding/json"
	"fmt"
	"time"

	"posrecon/internal/model"
)

// RunLog a persisted run summary.
type RunLog struct {
	ID           string    `json:"id"`
	ReportDate   string    `json:"reportDate"`
	Status       string    `json:"status"`
	TotalStores  int       `json:"totalStores"`
	Succeeded    int       `json:"succeeded"`
	FailedStores []string  `json:"failedStores"`
	DebtLines    int       `json:"debtLines"`
	Attempts     int       `json:"attempts"`
	DurationMS   int64     `json:"durationMs"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
}

// CreateRunLog opens a run log in the running state.
func (s *Store) CreateRunLog(runID string, reportDate time.Time, totalStores int) error {
	_, err := s.db.Exec(`
		INSERT INTO run_logs (id, report_date, status, total_stores)
		VALUES (?, ?, ?, ?)
	`, runID, reportDate.Format(model.DateLayout), string(model.RunStatusRunning), totalStores)
	if err != nil {
		return fmt.Errorf("failed to create run log: %w", err)
	}
	return nil
}

// UpdateRunLog closes a run log with the run's outcome.
func (s *Store) UpdateRunLog(sum *model.RunSummary) error {
	failed, err := json.Marshal(nonNil(sum.Failed))
	if err != nil {
		return fmt.Errorf("failed to encode failed stores: %w", err)
	}
	_, err = s.db.Exec(`
		UPDATE run_logs SET
			status = ?,
			total_stores = ?,
			succeeded = ?,
			failed_stores = ?,
			debt_lines = ?,
			attempts = ?,
			duration_ms = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(sum.Status), sum.TotalStores, len(sum.Succeeded), string(failed), sum.DebtLines,
		sum.Attempts, sum.Duration.Milliseconds(), sum.ErrorMessage, sum.RunID)
	if err != nil {
		return fmt.Errorf("failed to update run log: %w", err)
	}
	return nil
}

// ListRunLogs most recent runs first.
func (s *Store) ListRunLogs(limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, report_date, status, total_stores, succeeded, failed_stores,
			debt_lines, attempts, duration_ms, error_message, started_at
		FROM run_logs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query run logs failed: %w", err)
	}
	defer rows.Close()

	var out []RunLog
	for rows.Next() {
		var it RunLog
		var failed string
		if err := rows.Scan(&it.ID, &it.ReportDate, &it.Status, &it.TotalStores, &it.Succeeded, &failed,
			&it.DebtLines, &it.Attempts, &it.DurationMS, &it.ErrorMessage, &it.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run log failed: %w", err)
		}
		if err := json.Unmarshal([]byte(failed), &it.FailedStores); err != nil {
			return nil, fmt.Errorf("decode failed stores: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
