package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/metrics"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// maxFailures bounds the failure list kept in a Summary; counters keep
// counting past it.
const maxFailures = 100

// Options tunes the engine.
type Options struct {
	MaxRetries     int           // retries per page or title fetch
	InitialBackoff time.Duration // first retry delay, doubled up to MaxBackoff
	MaxBackoff     time.Duration
	MinVoteCount   int  // listed titles with fewer votes are skipped
	RequirePoster  bool // listed titles without a poster are skipped
}

// RunOptions selects what a run ingests.
type RunOptions struct {
	Pages int
	Kinds []model.Kind
}

// Engine runs ingestion. It is safe to reuse across runs but a single run is
// sequential.
type Engine struct {
	src      Source
	merger   Merger
	opts     Options
	recorder RunRecorder
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewEngine(src Source, merger Merger, opts Options) *Engine {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Engine{
		src:    src,
		merger: merger,
		opts:   opts,
		log:    logging.Component("ingest"),
		now:    time.Now,
	}
}

// WithRecorder records every run through r.
func (e *Engine) WithRecorder(r RunRecorder) *Engine { e.recorder = r; return e }

// WithNotifier announces finished runs through n.
func (e *Engine) WithNotifier(n Notifier) *Engine { e.notifier = n; return e }

// errAbort carries a fatal source error out of the page loop.
type errAbort struct{ err error }

func (e errAbort) Error() string { return e.err.Error() }
func (e errAbort) Unwrap() error { return e.err }

// Run ingests Pages listing pages of every requested kind. Record and page
// failures are counted in the Summary and do not stop the run. A fatal
// source error (bad credentials) stops it with an error, as does
// cancellation of ctx; in both cases the partial Summary is returned too.
func (e *Engine) Run(ctx context.Context, ro RunOptions) (Summary, error) {
	kinds, err := normaliseKinds(ro.Kinds)
	if err != nil {
		return Summary{}, err
	}
	if ro.Pages < 1 {
		return Summary{}, apperr.Validation("pages must be at least 1")
	}

	s := Summary{
		RunID:     uuid.NewString(),
		Kinds:     kinds,
		Pages:     ro.Pages,
		Failures:  []Failure{},
		StartedAt: e.now().UTC(),
	}
	log := e.log.With().Str("run_id", s.RunID).Logger()
	log.Info().Int("pages", ro.Pages).Str("kinds", joinKinds(kinds)).Msg("ingestion started")

	if e.recorder != nil {
		if err := e.recorder.Start(ctx, s.RunID, joinKinds(kinds), ro.Pages, s.StartedAt); err != nil {
			log.Warn().Err(err).Msg("could not record run start")
		}
	}

	var runErr error
	for _, kind := range kinds {
		if runErr = e.runKind(ctx, &s, kind, ro.Pages, log); runErr != nil {
			break
		}
	}

	s.FinishedAt = e.now().UTC()
	s.Total = s.Inserted + s.Updated + s.Skipped + s.Failed
	switch {
	case runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)):
		s.Status = StatusCancelled
		s.Error = runErr.Error()
	case runErr != nil:
		s.Status = StatusFailed
		s.Error = runErr.Error()
	case s.Failed > 0 || s.PagesFailed > 0:
		s.Status = StatusPartial
	default:
		s.Status = StatusSucceeded
	}
	metrics.IngestRunDuration.Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())

	// bookkeeping must outlive a cancelled run context
	bg := context.WithoutCancel(ctx)
	if e.recorder != nil {
		if err := e.recorder.Finish(bg, s.toRun()); err != nil {
			log.Warn().Err(err).Msg("could not record run finish")
		}
	}
	if e.notifier != nil && s.Status != StatusFailed {
		if err := e.notifier.IngestionCompleted(bg, s); err != nil {
			log.Warn().Err(err).Msg("could not publish ingestion completed event")
		}
	}

	log.Info().
		Str("status", s.Status).
		Int("inserted", s.Inserted).
		Int("updated", s.Updated).
		Int("skipped", s.Skipped).
		Int("failed", s.Failed).
		Int("pages_failed", s.PagesFailed).
		Dur("took", s.FinishedAt.Sub(s.StartedAt)).
		Msg("ingestion finished")

	if runErr != nil {
		var ab errAbort
		if errors.As(runErr, &ab) {
			return s, ab.err
		}
		return s, runErr
	}
	return s, nil
}

func (e *Engine) runKind(ctx context.Context, s *Summary, kind model.Kind, pages int, log zerolog.Logger) error {
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var page Page
		err := e.retry(ctx, func() error {
			var err error
			page, err = e.src.ListPage(ctx, kind, n)
			return err
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if isFatal(err) {
				return errAbort{err}
			}
			s.PagesFailed++
			s.addFailure(Failure{Kind: kind, Page: n, Reason: apperr.MessageOf(err)})
			metrics.IngestPagesFailed.WithLabelValues(string(kind)).Inc()
			log.Warn().Err(err).Str("kind", string(kind)).Int("page", n).Msg("page failed after retries")
			continue
		}
		s.PagesFetched++
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.ingestOne(ctx, s, kind, n, item, log); err != nil {
				return err
			}
		}

		if page.TotalPages > 0 && n >= page.TotalPages {
			break
		}
	}
	return nil
}

// ingestOne fetches and merges one listed title. Only fatal and context
// errors are returned; everything else is counted.
func (e *Engine) ingestOne(ctx context.Context, s *Summary, kind model.Kind, page int, item ListedTitle, log zerolog.Logger) error {
	if reason := e.skipReason(item); reason != "" {
		s.Skipped++
		metrics.IngestRecords.WithLabelValues(string(kind), "skipped").Inc()
		log.Debug().Int64("external_id", item.ExternalID).Str("reason", reason).Msg("record skipped")
		return nil
	}

	var rec model.TitleRecord
	err := e.retry(ctx, func() error {
		var err error
		rec, err = e.src.FetchTitle(ctx, kind, item.ExternalID)
		return err
	})
	if err == nil {
		var outcome Outcome
		outcome, err = e.merger.Merge(ctx, rec)
		if err == nil {
			if outcome == OutcomeInserted {
				s.Inserted++
			} else {
				s.Updated++
			}
			metrics.IngestRecords.WithLabelValues(string(kind), outcome.String()).Inc()
			return nil
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if isFatal(err) {
		return errAbort{err}
	}
	s.Failed++
	s.addFailure(Failure{Kind: kind, Page: page, ExternalID: item.ExternalID, Reason: apperr.MessageOf(err)})
	metrics.IngestRecords.WithLabelValues(string(kind), "failed").Inc()
	log.Warn().Err(err).Str("kind", string(kind)).Int64("external_id", item.ExternalID).Msg("record failed")
	return nil
}

func (e *Engine) skipReason(item ListedTitle) string {
	if item.VoteCount < e.opts.MinVoteCount {
		return "below minimum vote count"
	}
	if e.opts.RequirePoster && !item.HasPoster {
		return "no poster"
	}
	return ""
}

// retry runs op with bounded exponential backoff. Fatal and permanent
// errors are not retried.
func (e *Engine) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.InitialBackoff
	b.MaxInterval = e.opts.MaxBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.opts.MaxRetries)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isFatal(err) || isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func isFatal(err error) bool {
	var f interface{ Fatal() bool }
	return errors.As(err, &f) && f.Fatal()
}

func isPermanent(err error) bool {
	var p interface{ Permanent() bool }
	if errors.As(err, &p) && p.Permanent() {
		return true
	}
	k := apperr.KindOf(err)
	return k == apperr.KindNotFound || k == apperr.KindValidation
}

func (s *Summary) addFailure(f Failure) {
	if len(s.Failures) < maxFailures {
		s.Failures = append(s.Failures, f)
	}
}

func (s Summary) toRun() model.ETLRun {
	finished := s.FinishedAt
	run := model.ETLRun{
		RunUUID:     s.RunID,
		Kinds:       joinKinds(s.Kinds),
		Pages:       s.Pages,
		Status:      s.Status,
		Inserted:    s.Inserted,
		Updated:     s.Updated,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		PagesFailed: s.PagesFailed,
		StartedAt:   s.StartedAt,
		FinishedAt:  &finished,
	}
	if s.Error != "" {
		msg := s.Error
		run.ErrorMessage = &msg
	}
	for _, f := range s.Failures {
		run.Errors = append(run.Errors, model.ETLError{
			RunUUID: s.RunID, Kind: string(f.Kind), Page: f.Page, ExternalID: f.ExternalID, Reason: f.Reason,
		})
	}
	return run
}

func normaliseKinds(in []model.Kind) ([]model.Kind, error) {
	if len(in) == 0 {
		return []model.Kind{model.KindMovie, model.KindTV}, nil
	}
	seen := map[model.Kind]bool{}
	out := make([]model.Kind, 0, len(in))
	for _, k := range in {
		if k != model.KindMovie && k != model.KindTV {
			return nil, apperr.Validation(fmt.Sprintf("unknown kind %q", k))
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out, nil
}

func joinKinds(kinds []model.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}
