// Package queue defines the messages exchanged over the broker and the
// background consumer that reacts to them.
package queue

// IngestionCompletedEvent is published when an ingestion run finishes with
// status succeeded, partial or cancelled. It carries the counters of the run
// so consumers can log or react without querying the store.
type IngestionCompletedEvent struct {
	RunID       string   `json:"run_id"`
	Status      string   `json:"status"`
	Kinds       []string `json:"kinds"`
	Pages       int      `json:"pages"`
	Inserted    int      `json:"inserted"`
	Updated     int      `json:"updated"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	Total       int      `json:"total"`
	PagesFailed int      `json:"pages_failed"`
	StartedAt   string   `json:"started_at"`
	FinishedAt  string   `json:"finished_at"`
}
