package ingest

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

func newMerger(t *testing.T) (*SQLMerger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLMerger(db, database.TxOptions{Timeout: time.Second}), mock
}

func showRecord() model.TitleRecord {
	genreID := 18
	name := "Pilot"
	return model.TitleRecord{
		Kind:       model.KindTV,
		ExternalID: 1396,
		Title:      "Breaking Bad",
		Genres:     []model.GenreRef{{ExternalID: &genreID, Name: "Drama"}, {Name: ""}},
		Cast:       []model.CastRef{{PersonExternalID: 17419, Name: "Bryan Cranston", Character: "Walter White"}},
		Seasons: []model.SeasonRecord{{
			Number:   1,
			Episodes: []model.EpisodeRecord{{Number: 1, Name: &name}},
		}},
	}
}

func TestMergeShowWritesChildrenInOneTransaction(t *testing.T) {
	m, mock := newMerger(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shows")).WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO genres")).WithArgs("Drama", 18).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO show_genres")).WithArgs(uint64(4), uint64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO people")).WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO show_cast")).
		WithArgs(uint64(4), uint64(9), "Walter White", 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seasons")).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO episodes")).
		WithArgs(uint64(11), 1, "Pilot", nil, nil, nil).WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectCommit()

	out, err := m.Merge(context.Background(), showRecord())
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeExistingMovieIsUpdate(t *testing.T) {
	m, mock := newMerger(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movies")).WillReturnResult(sqlmock.NewResult(7, 2))
	mock.ExpectCommit()

	out, err := m.Merge(context.Background(), model.TitleRecord{Kind: model.KindMovie, ExternalID: 550, Title: "Fight Club"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeRollsBackOnChildFailure(t *testing.T) {
	m, mock := newMerger(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movies")).WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO genres")).
		WillReturnError(&mysql.MySQLError{Number: 1048, Message: "Column 'name' cannot be null"})
	mock.ExpectRollback()

	_, err := m.Merge(context.Background(), model.TitleRecord{
		Kind: model.KindMovie, ExternalID: 550, Title: "Fight Club",
		Genres: []model.GenreRef{{Name: "Drama"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeReplaysOnceAfterDuplicate(t *testing.T) {
	m, mock := newMerger(t)
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '12' for key 'uq_people_tmdb'"}
	rec := model.TitleRecord{
		Kind: model.KindMovie, ExternalID: 550, Title: "Fight Club",
		Cast: []model.CastRef{{PersonExternalID: 12, Name: "Edward Norton"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movies")).WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO people")).WillReturnError(dup)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movies")).WillReturnResult(sqlmock.NewResult(7, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO people")).WillReturnResult(sqlmock.NewResult(3, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movie_cast")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := m.Merge(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeRejectsUnknownKind(t *testing.T) {
	m, mock := newMerger(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := m.Merge(context.Background(), model.TitleRecord{Kind: "anime", ExternalID: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
