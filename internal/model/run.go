package model

import "time"

// RunStatus state of a daily run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// RunSummary result of one daily run across all stores.
type RunSummary struct {
	RunID        string        `json:"runId"`
	ReportDate   time.Time     `json:"reportDate"`
	TotalStores  int           `json:"totalStores"`
	Succeeded    []string      `json:"succeeded"`    // store names
	Failed       []string      `json:"failed"`       // store names
	DebtLines    int           `json:"debtLines"`
	Attempts     int           `json:"attempts"`
	Status       RunStatus     `json:"status"`
	Duration     time.Duration `json:"duration"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// DateLayout is the canonical report date format used in storage and URLs.
const DateLayout = "2006-01-02"
