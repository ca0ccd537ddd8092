package tmdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/movie-tracker/internal/ingest"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// SourceOptions trims what a fetched title carries into the store.
type SourceOptions struct {
	MaxCast              int // credits kept per title, in billing order
	MaxEpisodesPerSeason int // 0 keeps every episode
	PersonDetailsTop     int // leading cast members enriched with person details
}

// Source adapts the client to the ingestion engine.
type Source struct {
	client *Client
	opts   SourceOptions
}

func NewSource(c *Client, opts SourceOptions) *Source {
	if opts.MaxCast <= 0 {
		opts.MaxCast = 25
	}
	return &Source{client: c, opts: opts}
}

var _ ingest.Source = (*Source)(nil)

// ListPage returns one popularity page of the kind.
func (s *Source) ListPage(ctx context.Context, kind model.Kind, page int) (ingest.Page, error) {
	var (
		resp *PageResponse[ListItem]
		err  error
	)
	switch kind {
	case model.KindMovie:
		resp, err = s.client.PopularMovies(ctx, page)
	case model.KindTV:
		resp, err = s.client.PopularShows(ctx, page)
	default:
		return ingest.Page{}, fmt.Errorf("unsupported kind %q", kind)
	}
	if err != nil {
		return ingest.Page{}, err
	}
	out := ingest.Page{Number: resp.Page, TotalPages: resp.TotalPages, Items: make([]ingest.ListedTitle, 0, len(resp.Results))}
	for _, it := range resp.Results {
		out.Items = append(out.Items, ingest.ListedTitle{
			ExternalID: it.ID,
			VoteCount:  it.VoteCount,
			HasPoster:  it.PosterPath != nil && *it.PosterPath != "",
		})
	}
	return out, nil
}

// FetchTitle fetches the full record of one title. For shows every regular
// season is fetched as well; season 0 (specials) is not ingested.
func (s *Source) FetchTitle(ctx context.Context, kind model.Kind, id int64) (model.TitleRecord, error) {
	switch kind {
	case model.KindMovie:
		return s.fetchMovie(ctx, id)
	case model.KindTV:
		return s.fetchShow(ctx, id)
	}
	return model.TitleRecord{}, fmt.Errorf("unsupported kind %q", kind)
}

func (s *Source) fetchMovie(ctx context.Context, id int64) (model.TitleRecord, error) {
	d, err := s.client.Movie(ctx, id)
	if err != nil {
		return model.TitleRecord{}, err
	}
	rec := model.TitleRecord{
		Kind:             model.KindMovie,
		ExternalID:       d.ID,
		Title:            strings.TrimSpace(d.Title),
		Overview:         d.Overview,
		ReleaseDate:      parseDate(d.ReleaseDate),
		RuntimeMin:       positive(d.Runtime),
		PosterPath:       d.PosterPath,
		BackdropPath:     d.BackdropPath,
		Popularity:       d.Popularity,
		VoteAverage:      d.VoteAverage,
		VoteCount:        d.VoteCount,
		OriginalLanguage: optional(d.OriginalLanguage),
		Genres:           genreRefs(d.Genres),
	}
	for i, c := range d.Credits.Cast {
		if i >= s.opts.MaxCast {
			break
		}
		rec.Cast = append(rec.Cast, model.CastRef{
			PersonExternalID: c.ID,
			Name:             c.Name,
			ProfilePath:      c.ProfilePath,
			Character:        strings.TrimSpace(c.Character),
			Order:            c.Order,
		})
	}
	s.enrichPeople(ctx, rec.Cast)
	return rec, nil
}

func (s *Source) fetchShow(ctx context.Context, id int64) (model.TitleRecord, error) {
	d, err := s.client.Show(ctx, id)
	if err != nil {
		return model.TitleRecord{}, err
	}
	rec := model.TitleRecord{
		Kind:             model.KindTV,
		ExternalID:       d.ID,
		Title:            strings.TrimSpace(d.Name),
		Overview:         d.Overview,
		ReleaseDate:      parseDate(d.FirstAirDate),
		LastAirDate:      parseDate(d.LastAirDate),
		NumberOfSeasons:  d.NumberOfSeasons,
		PosterPath:       d.PosterPath,
		BackdropPath:     d.BackdropPath,
		Popularity:       d.Popularity,
		VoteAverage:      d.VoteAverage,
		VoteCount:        d.VoteCount,
		OriginalLanguage: optional(d.OriginalLanguage),
		Genres:           genreRefs(d.Genres),
	}
	for i, c := range d.AggregateCredits.Cast {
		if i >= s.opts.MaxCast {
			break
		}
		character := ""
		if len(c.Roles) > 0 {
			character = strings.TrimSpace(c.Roles[0].Character)
		}
		rec.Cast = append(rec.Cast, model.CastRef{
			PersonExternalID: c.ID,
			Name:             c.Name,
			ProfilePath:      c.ProfilePath,
			Character:        character,
			Order:            c.Order,
		})
	}
	s.enrichPeople(ctx, rec.Cast)

	for _, ss := range d.Seasons {
		if ss.SeasonNumber <= 0 {
			continue
		}
		sd, err := s.client.Season(ctx, d.ID, ss.SeasonNumber)
		if err != nil {
			return model.TitleRecord{}, fmt.Errorf("season %d: %w", ss.SeasonNumber, err)
		}
		season := model.SeasonRecord{
			Number:     ss.SeasonNumber,
			Name:       optional(firstNonEmpty(sd.Name, ss.Name)),
			Overview:   optional(firstNonEmpty(sd.Overview, ss.Overview)),
			AirDate:    parseDate(firstNonEmpty(sd.AirDate, ss.AirDate)),
			PosterPath: sd.PosterPath,
		}
		for i, ep := range sd.Episodes {
			if s.opts.MaxEpisodesPerSeason > 0 && i >= s.opts.MaxEpisodesPerSeason {
				break
			}
			season.Episodes = append(season.Episodes, model.EpisodeRecord{
				Number:     ep.EpisodeNumber,
				Name:       optional(ep.Name),
				Overview:   optional(ep.Overview),
				AirDate:    parseDate(ep.AirDate),
				RuntimeMin: positive(ep.Runtime),
			})
		}
		rec.Seasons = append(rec.Seasons, season)
	}
	return rec, nil
}

// enrichPeople adds biography and birthday to the leading cast members.
// Failures are ignored: the credit is stored without the extra details and
// existing details are kept by the person upsert.
func (s *Source) enrichPeople(ctx context.Context, cast []model.CastRef) {
	for i := range cast {
		if i >= s.opts.PersonDetailsTop {
			return
		}
		p, err := s.client.Person(ctx, cast[i].PersonExternalID)
		if err != nil {
			s.client.log.Debug().Err(err).Int64("person_id", cast[i].PersonExternalID).Msg("person details unavailable")
			continue
		}
		cast[i].Biography = optional(p.Biography)
		if p.Birthday != nil {
			cast[i].Birthday = parseDate(*p.Birthday)
		}
	}
}

func genreRefs(gs []Genre) []model.GenreRef {
	out := make([]model.GenreRef, 0, len(gs))
	for _, g := range gs {
		id := g.ID
		out = append(out, model.GenreRef{ExternalID: &id, Name: strings.TrimSpace(g.Name)})
	}
	return out
}

// parseDate reads YYYY-MM-DD; empty or malformed values are unknown.
func parseDate(s string) *time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &t
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func positive(n *int) *int {
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
