package model

import "time"

// ETLRun mirrors a row of `etl_runs`, one per ingestion run.
type ETLRun struct {
	ID           uint64     `json:"id"`
	RunUUID      string     `json:"run_id"`
	Kinds        string     `json:"kinds"`
	Pages        int        `json:"pages"`
	Status       string     `json:"status"` // running, succeeded, partial, failed, cancelled
	Inserted     int        `json:"inserted"`
	Updated      int        `json:"updated"`
	Skipped      int        `json:"skipped"`
	Failed       int        `json:"failed"`
	PagesFailed  int        `json:"pages_failed"`
	ErrorMessage *string    `json:"error_message"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`

	// Errors is written alongside the run by Finish and not read back.
	Errors []ETLError `json:"-"`
}

// ETLError is one record or page an ingestion run could not store. Rows
// live in `etl_errors` and are removed with their run.
type ETLError struct {
	RunUUID    string `json:"run_id"`
	Kind       string `json:"kind"`
	Page       int    `json:"page"`
	ExternalID int64  `json:"external_id,omitempty"`
	Reason     string `json:"reason"`
}

// ETLStats aggregates the runs started in the last Days days.
type ETLStats struct {
	Days        int     `json:"days"`
	Runs        int     `json:"runs"`
	Succeeded   int     `json:"succeeded"`
	Partial     int     `json:"partial"`
	Failed      int     `json:"failed"`
	Cancelled   int     `json:"cancelled"`
	Inserted    int     `json:"inserted"`
	Updated     int     `json:"updated"`
	Errors      int     `json:"errors"`
	SuccessRate float64 `json:"success_rate"`
}
