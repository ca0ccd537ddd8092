package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two kinds of catalog title. Movies and shows live
// in separate tables, so the kind also selects the table a query runs on.
type Kind string

const (
	KindMovie Kind = "movie"
	KindTV    Kind = "tv"
)

// ParseKind accepts the spellings used by the API and the CLI.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return KindMovie, nil
	case "tv", "show", "shows":
		return KindTV, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Subject identifies the title a review, watchlist entry or comment is
// about. Exactly one title is referenced.
type Subject struct {
	Kind Kind   `json:"kind"`
	ID   uint64 `json:"id"`
}

// Movie represents a row of the `movies` table.
//
// Fields:
//
//	ID          – primary key identifier.
//	TMDBID      – external catalog identifier, unique per table.
//	ReleaseDate – YYYY-MM-DD or nil when unknown.
//	Popularity, VoteAverage, VoteCount – source-provided ranking signals.
type Movie struct {
	ID               uint64    `json:"id"`                // movies.id
	TMDBID           int64     `json:"tmdb_id"`           // movies.tmdb_id
	Title            string    `json:"title"`             // movies.title
	Overview         string    `json:"overview"`          // movies.overview
	ReleaseDate      *string   `json:"release_date"`      // movies.release_date (nullable)
	RuntimeMin       *int      `json:"runtime_min"`       // movies.runtime_min (nullable)
	PosterPath       *string   `json:"poster_path"`       // movies.poster_path (nullable)
	BackdropPath     *string   `json:"backdrop_path"`     // movies.backdrop_path (nullable)
	Popularity       float64   `json:"popularity"`        // movies.popularity
	VoteAverage      float64   `json:"vote_average"`      // movies.vote_average
	VoteCount        int       `json:"vote_count"`        // movies.vote_count
	OriginalLanguage *string   `json:"original_language"` // movies.original_language (nullable)
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Show represents a row of the `shows` table. FirstAirDate plays the role of
// the release date in listings and analytics.
type Show struct {
	ID               uint64    `json:"id"`
	TMDBID           int64     `json:"tmdb_id"`
	Title            string    `json:"title"`
	Overview         string    `json:"overview"`
	FirstAirDate     *string   `json:"first_air_date"`
	LastAirDate      *string   `json:"last_air_date"`
	NumberOfSeasons  *int      `json:"number_of_seasons"`
	PosterPath       *string   `json:"poster_path"`
	BackdropPath     *string   `json:"backdrop_path"`
	Popularity       float64   `json:"popularity"`
	VoteAverage      float64   `json:"vote_average"`
	VoteCount        int       `json:"vote_count"`
	OriginalLanguage *string   `json:"original_language"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Season is a numbered season of a show. Numbers are unique per show.
type Season struct {
	ID           uint64    `json:"id"`            // seasons.id
	ShowID       uint64    `json:"show_id"`       // seasons.show_id
	SeasonNumber int       `json:"season_number"` // seasons.season_number
	Name         *string   `json:"name"`
	Overview     *string   `json:"overview"`
	AirDate      *string   `json:"air_date"`
	PosterPath   *string   `json:"poster_path"`
	Episodes     []Episode `json:"episodes"`
}

// Episode is a numbered episode of a season. Numbers are unique per season.
type Episode struct {
	ID            uint64  `json:"id"`
	SeasonID      uint64  `json:"season_id"`
	EpisodeNumber int     `json:"episode_number"`
	Name          *string `json:"name"`
	Overview      *string `json:"overview"`
	AirDate       *string `json:"air_date"`
	RuntimeMin    *int    `json:"runtime_min"`
}

type Genre struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// CastMember is a person credited on a title with the character they play.
type CastMember struct {
	PersonID    uint64  `json:"person_id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	Order       int     `json:"order"`
	ProfilePath *string `json:"profile_path"`
}

// MovieDetail is the movie detail view: the row plus its genres, top cast and
// the aggregate of user reviews.
type MovieDetail struct {
	Movie
	Genres      []Genre      `json:"genres"`
	Cast        []CastMember `json:"cast"`
	UserRating  float64      `json:"user_rating"`
	ReviewCount int          `json:"review_count"`
}

// ShowDetail mirrors MovieDetail for shows.
type ShowDetail struct {
	Show
	Genres      []Genre      `json:"genres"`
	Cast        []CastMember `json:"cast"`
	UserRating  float64      `json:"user_rating"`
	ReviewCount int          `json:"review_count"`
}

// DateString renders a DATE column value as YYYY-MM-DD, nil when NULL.
func DateString(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
