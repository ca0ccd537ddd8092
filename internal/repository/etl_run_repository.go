package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// maxReasonLen is the width of etl_errors.reason.
const maxReasonLen = 500

// ETLRunRepo records ingestion runs in `etl_runs` and their failures in
// `etl_errors` for monitoring.
type ETLRunRepo struct{ db *sql.DB }

func NewETLRunRepo(db *sql.DB) *ETLRunRepo { return &ETLRunRepo{db: db} }

// Start inserts a run in status "running".
func (r *ETLRunRepo) Start(ctx context.Context, runUUID, kinds string, pages int, startedAt time.Time) error {
	const q = `INSERT INTO etl_runs (run_uuid, kinds, pages, status, started_at) VALUES (?,?,?,'running',?)`
	if _, err := r.db.ExecContext(ctx, q, runUUID, kinds, pages, startedAt.UTC()); err != nil {
		return fmt.Errorf("start etl run: %w", database.Classify(err))
	}
	return nil
}

// Finish stores the final counters and status of a run, then appends the
// run's failures to etl_errors.
func (r *ETLRunRepo) Finish(ctx context.Context, run model.ETLRun) error {
	const q = `
		UPDATE etl_runs
		SET status = ?, inserted = ?, updated = ?, skipped = ?, failed = ?, pages_failed = ?,
		    error_message = ?, finished_at = ?
		WHERE run_uuid = ?`
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	res, err := r.db.ExecContext(ctx, q, run.Status, run.Inserted, run.Updated, run.Skipped, run.Failed,
		run.PagesFailed, nullString(run.ErrorMessage), finished, run.RunUUID)
	if err != nil {
		return fmt.Errorf("finish etl run: %w", database.Classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish etl run %s: %w", run.RunUUID, sql.ErrNoRows)
	}
	return r.insertErrors(ctx, run.RunUUID, run.Errors)
}

func (r *ETLRunRepo) insertErrors(ctx context.Context, runUUID string, errs []model.ETLError) error {
	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO etl_errors (run_uuid, kind, page, external_id, reason) VALUES ")
	args := make([]any, 0, len(errs)*5)
	for i, e := range errs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?)")
		var ext any
		if e.ExternalID != 0 {
			ext = e.ExternalID
		}
		args = append(args, runUUID, e.Kind, e.Page, ext, truncateRunes(e.Reason, maxReasonLen))
	}
	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("record etl errors: %w", database.Classify(err))
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Stats aggregates the runs started since now minus days.
func (r *ETLRunRepo) Stats(ctx context.Context, days int, now time.Time) (model.ETLStats, error) {
	st := model.ETLStats{Days: days}
	since := now.UTC().AddDate(0, 0, -days)

	const runs = `
		SELECT COUNT(*),
		       COALESCE(SUM(status = 'succeeded'), 0),
		       COALESCE(SUM(status = 'partial'), 0),
		       COALESCE(SUM(status = 'failed'), 0),
		       COALESCE(SUM(status = 'cancelled'), 0),
		       COALESCE(SUM(inserted), 0),
		       COALESCE(SUM(updated), 0)
		FROM etl_runs WHERE started_at >= ?`
	if err := r.db.QueryRowContext(ctx, runs, since).Scan(&st.Runs, &st.Succeeded, &st.Partial, &st.Failed,
		&st.Cancelled, &st.Inserted, &st.Updated); err != nil {
		return st, fmt.Errorf("etl run stats: %w", database.Classify(err))
	}

	const errs = `SELECT COUNT(*) FROM etl_errors WHERE created_at >= ?`
	if err := r.db.QueryRowContext(ctx, errs, since).Scan(&st.Errors); err != nil {
		return st, fmt.Errorf("etl error count: %w", database.Classify(err))
	}
	if st.Runs > 0 {
		st.SuccessRate = float64(st.Succeeded) / float64(st.Runs)
	}
	return st, nil
}

// ErrorSummary groups the failures recorded since now minus days by kind and
// reason, most frequent first.
func (r *ETLRunRepo) ErrorSummary(ctx context.Context, days, limit int, now time.Time) ([]database.Row, error) {
	const q = `
		SELECT kind, reason, COUNT(*) AS occurrences, COUNT(DISTINCT run_uuid) AS runs,
		       MAX(created_at) AS last_seen
		FROM etl_errors
		WHERE created_at >= ?
		GROUP BY kind, reason
		ORDER BY occurrences DESC, last_seen DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, now.UTC().AddDate(0, 0, -days), limit)
	if err != nil {
		return nil, fmt.Errorf("etl error summary: %w", database.Classify(err))
	}
	return database.ScanRows(rows)
}

// Recent returns the latest runs, newest first.
func (r *ETLRunRepo) Recent(ctx context.Context, limit int) ([]model.ETLRun, error) {
	const q = `
		SELECT id, run_uuid, kinds, pages, status, inserted, updated, skipped, failed, pages_failed,
		       error_message, started_at, finished_at
		FROM etl_runs ORDER BY started_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent etl runs: %w", database.Classify(err))
	}
	defer rows.Close()

	out := []model.ETLRun{}
	for rows.Next() {
		var (
			run      model.ETLRun
			msg      sql.NullString
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.RunUUID, &run.Kinds, &run.Pages, &run.Status, &run.Inserted,
			&run.Updated, &run.Skipped, &run.Failed, &run.PagesFailed, &msg, &run.StartedAt, &finished); err != nil {
			return nil, err
		}
		run.ErrorMessage = strPtr(msg)
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
