package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iliyamo/movie-tracker/internal/metrics"
)

// TxOptions tunes WithTxOptions.
type TxOptions struct {
	Timeout    time.Duration // per attempt; zero keeps the caller's deadline
	MaxRetries int           // replays after a deadlock or lock wait timeout
}

// DefaultTxOptions is used by WithTx.
var DefaultTxOptions = TxOptions{Timeout: 10 * time.Second, MaxRetries: 3}

// WithTx runs fn inside one transaction using DefaultTxOptions.
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return WithTxOptions(ctx, db, DefaultTxOptions, fn)
}

// WithTxOptions begins a transaction, runs fn and commits. Any error or panic
// from fn rolls the transaction back; a panic is re-raised after the
// rollback. Conflicts reported by InnoDB replay the whole function, so fn
// must not keep state across calls.
func WithTxOptions(ctx context.Context, db *sql.DB, opts TxOptions, fn func(ctx context.Context, tx *sql.Tx) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(opts.MaxRetries, 0))), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			metrics.DBTxRetries.Inc()
		}
		err := runTx(ctx, db, opts, fn)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func runTx(ctx context.Context, db *sql.DB, opts TxOptions, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", Classify(err))
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", Classify(err))
	}
	committed = true
	return nil
}
