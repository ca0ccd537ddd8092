package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/model"
)

func TestReviewStats(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	first := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SUM(movie_id IS NOT NULL)")).
		WillReturnRows(sqlmock.NewRows([]string{"n", "m", "s"}).AddRow(5, 3, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DATE(created_at) AS day")).WithArgs(first).
		WillReturnRows(sqlmock.NewRows([]string{"day", "n"}).
			AddRow(first, 2).
			AddRow(first.AddDate(0, 0, 2), 3))
	mock.ExpectQuery(regexp.QuoteMeta("CAST(FLOOR(rating) AS SIGNED)")).
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "n"}).AddRow(7, 2).AddRow(9, 2).AddRow(10, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews x")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle", "cnt"}).AddRow(2, "bob", 4).AddRow(1, "admin", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM comments x")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle", "cnt"}))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY cnt DESC, avg_rating DESC")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "title", "cnt", "avg"}).
			AddRow(1, "movie", "The Matrix", 3, 8.5))

	st, err := NewAnalyticsRepo(db).ReviewStats(context.Background(), 3, 5, now)
	require.NoError(t, err)

	assert.Equal(t, 5, st.TotalReviews)
	assert.Equal(t, 3, st.MovieReviews)
	assert.Equal(t, 2, st.TVReviews)
	assert.Equal(t, []model.DailyCount{
		{Date: "2026-03-08", Count: 2},
		{Date: "2026-03-09", Count: 0},
		{Date: "2026-03-10", Count: 3},
	}, st.Daily)
	require.Len(t, st.Distribution, 11)
	assert.Equal(t, model.RatingBucket{Rating: 9, Count: 2}, st.Distribution[9])
	assert.Zero(t, st.Distribution[0].Count)
	assert.Equal(t, "bob", st.TopReviewers[0].Handle)
	assert.Empty(t, st.TopDiscussers)
	assert.Equal(t, []model.ReviewedTitle{{ID: 1, Kind: model.KindMovie, Title: "The Matrix", Reviews: 3, AvgRating: 8.5}},
		st.MostReviewed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewStatsClassifiesFailures(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews")).WillReturnError(context.DeadlineExceeded)

	_, err := NewAnalyticsRepo(db).ReviewStats(context.Background(), 30, 10, time.Now())
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
}
