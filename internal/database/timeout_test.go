package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-tracker/internal/apperr"
)

func TestBoundedReportsSlowStatementAsTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillDelayFor(2 * time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(9))

	start := time.Now()
	_, err = Bounded(context.Background(), 50*time.Millisecond, func(ctx context.Context) (int, error) {
		var n int
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies").Scan(&n)
		return n, err
	})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
}

func TestBoundedPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	err := BoundedExec(context.Background(), time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	v, err := Bounded(context.Background(), 0, func(ctx context.Context) (string, error) {
		_, has := ctx.Deadline()
		assert.False(t, has)
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
