// Package seed holds a small fixed catalog used for local development and
// the integration tests: six movies, three shows with two seasons of three
// episodes each, and two users.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/ingest"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/model"
)

type merger interface {
	Merge(ctx context.Context, rec model.TitleRecord) (ingest.Outcome, error)
}

type userCreator interface {
	Create(ctx context.Context, handle, email, password string, cost int) (uint64, error)
}

// User is a seeded account.
type User struct {
	Handle   string
	Email    string
	Password string
}

// Result counts what Load wrote.
type Result struct {
	Inserted int
	Updated  int
	Users    int
}

var genres = map[string]model.GenreRef{
	"action":    {ExternalID: ptr(28), Name: "Action"},
	"crime":     {ExternalID: ptr(80), Name: "Crime"},
	"drama":     {ExternalID: ptr(18), Name: "Drama"},
	"animation": {ExternalID: ptr(16), Name: "Animation"},
	"scifi":     {ExternalID: ptr(878), Name: "Science Fiction"},
	"comedy":    {ExternalID: ptr(35), Name: "Comedy"},
	"thriller":  {ExternalID: ptr(53), Name: "Thriller"},
}

// Users returns the seeded accounts.
func Users() []User {
	return []User{
		{Handle: "admin", Email: "admin@test.com", Password: "admin-password"},
		{Handle: "bob", Email: "bob@example.com", Password: "bob-password"},
	}
}

// Records returns the seeded titles. The slice is rebuilt on every call so
// callers may modify it.
func Records() []model.TitleRecord {
	return []model.TitleRecord{
		movie(603, "The Matrix", "1999-03-30", 136, 8.2, 26000, 85.1, "en", []string{"action", "scifi"},
			cast(6384, "Keanu Reeves", "Neo"), cast(2975, "Laurence Fishburne", "Morpheus")),
		movie(238, "The Godfather", "1972-03-14", 175, 8.7, 21000, 110.4, "en", []string{"crime", "drama"},
			cast(3084, "Marlon Brando", "Don Vito Corleone"), cast(1158, "Al Pacino", "Michael Corleone")),
		movie(27205, "Inception", "2010-07-15", 148, 8.4, 37000, 95.2, "en", []string{"action", "scifi", "thriller"},
			cast(6193, "Leonardo DiCaprio", "Cobb")),
		movie(496243, "Parasite", "2019-05-30", 133, 8.5, 18000, 70.8, "ko", []string{"comedy", "thriller", "drama"},
			cast(20738, "Song Kang-ho", "Kim Ki-taek")),
		movie(129, "Spirited Away", "2001-07-20", 125, 8.5, 16000, 90.0, "ja", []string{"animation"},
			cast(19587, "Rumi Hiiragi", "Chihiro")),
		movie(98, "Gladiator", "2000-05-01", 155, 8.2, 19000, 60.3, "en", []string{"action", "drama"},
			cast(934, "Russell Crowe", "Maximus")),
		show(1396, "Breaking Bad", "2008-01-20", "2013-09-29", 8.9, 14000, 300.5, []string{"crime", "drama"},
			cast(17419, "Bryan Cranston", "Walter White")),
		show(2316, "The Office", "2005-03-24", "2013-05-16", 8.6, 4500, 210.2, []string{"comedy"},
			cast(4495, "Steve Carell", "Michael Scott")),
		show(66732, "Stranger Things", "2016-07-15", "2025-12-31", 8.6, 17000, 250.9, []string{"drama", "scifi"},
			cast(35029, "Millie Bobby Brown", "Eleven")),
	}
}

// Load merges the seeded titles and creates the seeded users. Running it
// again updates the same rows; users that already exist are left alone.
func Load(ctx context.Context, m merger, users userCreator, bcryptCost int) (Result, error) {
	log := logging.Component("seed")
	var res Result
	for _, rec := range Records() {
		outcome, err := m.Merge(ctx, rec)
		if err != nil {
			return res, fmt.Errorf("seed %s %d: %w", rec.Kind, rec.ExternalID, err)
		}
		if outcome == ingest.OutcomeInserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	for _, u := range Users() {
		_, err := users.Create(ctx, u.Handle, u.Email, u.Password, bcryptCost)
		switch {
		case err == nil:
			res.Users++
		case apperr.KindOf(err) == apperr.KindConstraint:
			log.Debug().Str("email", u.Email).Msg("user already seeded")
		default:
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}
	log.Info().Int("inserted", res.Inserted).Int("updated", res.Updated).Int("users", res.Users).Msg("seed loaded")
	return res, nil
}

func movie(id int64, title, released string, runtime int, rating float64, votes int, pop float64, lang string,
	genreKeys []string, credits ...model.CastRef) model.TitleRecord {
	return model.TitleRecord{
		Kind:             model.KindMovie,
		ExternalID:       id,
		Title:            title,
		Overview:         title + " overview.",
		ReleaseDate:      date(released),
		RuntimeMin:       ptr(runtime),
		PosterPath:       sptr(fmt.Sprintf("/posters/movie-%d.jpg", id)),
		Popularity:       pop,
		VoteAverage:      rating,
		VoteCount:        votes,
		OriginalLanguage: sptr(lang),
		Genres:           pick(genreKeys),
		Cast:             ordered(credits),
	}
}

func show(id int64, title, first, last string, rating float64, votes int, pop float64,
	genreKeys []string, credits ...model.CastRef) model.TitleRecord {
	seasons := make([]model.SeasonRecord, 0, 2)
	start := *date(first)
	for s := 1; s <= 2; s++ {
		season := model.SeasonRecord{
			Number:  s,
			Name:    sptr(fmt.Sprintf("Season %d", s)),
			AirDate: tptr(start.AddDate(s-1, 0, 0)),
		}
		for e := 1; e <= 3; e++ {
			season.Episodes = append(season.Episodes, model.EpisodeRecord{
				Number:     e,
				Name:       sptr(fmt.Sprintf("Episode %d", e)),
				AirDate:    tptr(start.AddDate(s-1, 0, 7*(e-1))),
				RuntimeMin: ptr(45),
			})
		}
		seasons = append(seasons, season)
	}
	return model.TitleRecord{
		Kind:             model.KindTV,
		ExternalID:       id,
		Title:            title,
		Overview:         title + " overview.",
		ReleaseDate:      date(first),
		LastAirDate:      date(last),
		NumberOfSeasons:  ptr(2),
		PosterPath:       sptr(fmt.Sprintf("/posters/tv-%d.jpg", id)),
		Popularity:       pop,
		VoteAverage:      rating,
		VoteCount:        votes,
		OriginalLanguage: sptr("en"),
		Genres:           pick(genreKeys),
		Cast:             ordered(credits),
		Seasons:          seasons,
	}
}

func cast(personID int64, name, character string) model.CastRef {
	return model.CastRef{PersonExternalID: personID, Name: name, Character: character}
}

func ordered(credits []model.CastRef) []model.CastRef {
	for i := range credits {
		credits[i].Order = i
	}
	return credits
}

func pick(keys []string) []model.GenreRef {
	out := make([]model.GenreRef, 0, len(keys))
	for _, k := range keys {
		out = append(out, genres[k])
	}
	return out
}

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func ptr(n int) *int { return &n }
func sptr(s string) *string { return &s }
func tptr(t time.Time) *time.Time { return &t }
