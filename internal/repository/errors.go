// Package repository holds the hand-written SQL of the catalog store. Every
// statement is a fixed, parameterised string; where a statement depends on
// the title kind, the variant is picked from a closed set, never built from
// caller text. Driver errors are passed through database.Classify so higher
// layers only see apperr kinds.
package repository

import (
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// ErrUnknownKind is returned for a title kind outside movie/tv.
var ErrUnknownKind = apperr.Validation("unknown title kind")

// ErrTitleNotFound is returned when a movie or show id does not exist.
var ErrTitleNotFound = apperr.NotFound("title not found")

// ErrUserNotFound is returned when a user id does not exist.
var ErrUserNotFound = apperr.NotFound("user not found")

// kindSQL holds the per-kind identifiers a statement may interpolate.
type kindSQL struct {
	table      string // movies | shows
	dateCol    string // release_date | first_air_date
	subjectCol string // movie_id | show_id in user content tables
	genreTable string
	castTable  string
}

var kinds = map[model.Kind]kindSQL{
	model.KindMovie: {table: "movies", dateCol: "release_date", subjectCol: "movie_id", genreTable: "movie_genres", castTable: "movie_cast"},
	model.KindTV:    {table: "shows", dateCol: "first_air_date", subjectCol: "show_id", genreTable: "show_genres", castTable: "show_cast"},
}

func sqlFor(k model.Kind) (kindSQL, error) {
	ks, ok := kinds[k]
	if !ok {
		return kindSQL{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return ks, nil
}

// ErrUnknownSort and ErrUnknownPeriod reject values outside the fixed sets
// the analytics queries are built from.
var (
	ErrUnknownSort   = apperr.Validation("unknown sort key")
	ErrUnknownPeriod = apperr.Validation("unknown trending period")
)
