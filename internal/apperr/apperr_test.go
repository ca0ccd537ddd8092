package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("get movie: %w", NotFound("movie not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConstraint))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "movie not found", MessageOf(err))
}

func TestConstraintCarriesKeyName(t *testing.T) {
	driver := errors.New("Error 1062: Duplicate entry '7' for key 'uq_movies_tmdb'")
	err := Constraint("uq_movies_tmdb", "duplicate movie", driver)

	assert.Equal(t, KindConstraint, KindOf(err))
	assert.Contains(t, err.Error(), "uq_movies_tmdb")
	assert.Equal(t, "duplicate movie", MessageOf(err))
	assert.ErrorIs(t, err, driver)
}

func TestForeignErrorsAreInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "internal error", MessageOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
