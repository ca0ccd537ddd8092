package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/movie-tracker/internal/apperr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       apperr.Kind
		constraint string
	}{
		{
			name:       "duplicate key",
			err:        &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '42' for key 'movies.uq_movies_tmdb'"},
			kind:       apperr.KindConstraint,
			constraint: "movies.uq_movies_tmdb",
		},
		{
			name:       "restricted delete",
			err:        &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row: a foreign key constraint fails (`catalog`.`reviews`, CONSTRAINT `fk_reviews_movie` FOREIGN KEY (`movie_id`) REFERENCES `movies` (`id`))"},
			kind:       apperr.KindConstraint,
			constraint: "fk_reviews_movie",
		},
		{
			name:       "missing parent",
			err:        &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails (`catalog`.`reviews`, CONSTRAINT `fk_reviews_user` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`))"},
			kind:       apperr.KindNotFound,
			constraint: "fk_reviews_user",
		},
		{
			name:       "check constraint",
			err:        &mysql.MySQLError{Number: 3819, Message: "Check constraint 'chk_reviews_rating' is violated."},
			kind:       apperr.KindConstraint,
			constraint: "chk_reviews_rating",
		},
		{
			name: "data too long",
			err:  &mysql.MySQLError{Number: 1406, Message: "Data too long for column 'character_name' at row 1"},
			kind: apperr.KindValidation,
		},
		{
			name: "out of range",
			err:  &mysql.MySQLError{Number: 1264, Message: "Out of range value for column 'vote_count' at row 1"},
			kind: apperr.KindValidation,
		},
		{name: "no rows", err: sql.ErrNoRows, kind: apperr.KindNotFound},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), kind: apperr.KindTimeout},
		{name: "unknown", err: errors.New("connection reset"), kind: apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.kind, apperr.KindOf(got))
			var ae *apperr.Error
			if errors.As(got, &ae) {
				assert.Equal(t, tt.constraint, ae.Constraint)
			}
		})
	}
	assert.NoError(t, Classify(nil))
}

func TestClassifyNamesOversizedColumn(t *testing.T) {
	err := Classify(&mysql.MySQLError{Number: 1406, Message: "Data too long for column 'title' at row 1"})
	assert.Equal(t, "value too long for its column title", apperr.MessageOf(err))
}

func TestIsDuplicate(t *testing.T) {
	raw := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'genres.uq_genres_name'"}
	assert.True(t, IsDuplicate(raw))
	assert.True(t, IsDuplicate(fmt.Errorf("upsert genre: %w", Classify(raw))))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsDuplicate(errors.New("nope")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1213})))
	assert.True(t, IsRetryable(&mysql.MySQLError{Number: 1205}))
	assert.False(t, IsRetryable(&mysql.MySQLError{Number: 1062}))
}
