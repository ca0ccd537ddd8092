// Package ingest merges an external catalog into the store. A run walks the
// listing pages of each requested kind, fetches every listed title and
// merges it in its own transaction, so one bad record never undoes the
// others. The result is a Summary of what happened.
package ingest

import (
	"context"
	"time"

	"github.com/iliyamo/movie-tracker/internal/model"
)

// ListedTitle is an entry of a listing page. VoteCount and HasPoster let the
// engine skip records before paying for a detail fetch.
type ListedTitle struct {
	ExternalID int64
	VoteCount  int
	HasPoster  bool
}

// Page is one listing page.
type Page struct {
	Number     int
	TotalPages int
	Items      []ListedTitle
}

// Source is the external catalog. Errors may implement Fatal() bool to
// abort the run, or Permanent() bool to skip retrying.
type Source interface {
	ListPage(ctx context.Context, kind model.Kind, page int) (Page, error)
	FetchTitle(ctx context.Context, kind model.Kind, externalID int64) (model.TitleRecord, error)
}

// Outcome of merging one record.
type Outcome int

const (
	OutcomeInserted Outcome = iota + 1
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	}
	return "unknown"
}

// Merger writes one record into the store atomically.
type Merger interface {
	Merge(ctx context.Context, rec model.TitleRecord) (Outcome, error)
}

// RunRecorder persists run bookkeeping.
type RunRecorder interface {
	Start(ctx context.Context, runUUID, kinds string, pages int, startedAt time.Time) error
	Finish(ctx context.Context, run model.ETLRun) error
}

// Notifier is told about finished runs.
type Notifier interface {
	IngestionCompleted(ctx context.Context, s Summary) error
}

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Failure describes a record or page that could not be ingested.
type Failure struct {
	Kind       model.Kind `json:"kind"`
	Page       int        `json:"page"`
	ExternalID int64      `json:"external_id,omitempty"`
	Reason     string     `json:"reason"`
}

// Summary is the result of a run. Total counts every listed record that was
// considered: Inserted + Updated + Skipped + Failed.
type Summary struct {
	RunID        string       `json:"run_id"`
	Status       string       `json:"status"`
	Kinds        []model.Kind `json:"kinds"`
	Pages        int          `json:"pages"`
	Inserted     int          `json:"inserted"`
	Updated      int          `json:"updated"`
	Skipped      int          `json:"skipped"`
	Failed       int          `json:"failed"`
	Total        int          `json:"total"`
	PagesFetched int          `json:"pages_fetched"`
	PagesFailed  int          `json:"pages_failed"`
	Failures     []Failure    `json:"failures"`
	Error        string       `json:"error,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
}
