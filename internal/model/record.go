package model

import "time"

// TitleRecord is a source-agnostic catalog record handed from the ingestion
// source to the merger. Optional fields are pointers; nil means the source
// did not report a value.
type TitleRecord struct {
	Kind             Kind
	ExternalID       int64
	Title            string
	Overview         string
	ReleaseDate      *time.Time // first air date for shows
	LastAirDate      *time.Time
	RuntimeMin       *int
	NumberOfSeasons  *int
	PosterPath       *string
	BackdropPath     *string
	Popularity       float64
	VoteAverage      float64
	VoteCount        int
	OriginalLanguage *string
	Genres           []GenreRef
	Cast             []CastRef
	Seasons          []SeasonRecord
}

type GenreRef struct {
	ExternalID *int
	Name       string
}

// CastRef is a credit; Character may be empty.
type CastRef struct {
	PersonExternalID int64
	Name             string
	ProfilePath      *string
	Biography        *string
	Birthday         *time.Time
	Character        string
	Order            int
}

type SeasonRecord struct {
	Number     int
	Name       *string
	Overview   *string
	AirDate    *time.Time
	PosterPath *string
	Episodes   []EpisodeRecord
}

type EpisodeRecord struct {
	Number     int
	Name       *string
	Overview   *string
	AirDate    *time.Time
	RuntimeMin *int
}
