package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/metrics"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// Sort keys accepted by ListByKind.
const (
	SortPopularity  = "popularity"
	SortRating      = "rating"
	SortReleaseDate = "release_date"
)

// Trending windows accepted by Trending.
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodAll     = "all"
)

// SearchPageSize is the fixed page size of Search.
const SearchPageSize = 20

// undatedAgeDays is the age assumed for titles without a release date when
// weighting by recency.
const undatedAgeDays = 365

var sortOrder = map[string]string{
	SortPopularity:  "popularity DESC, id ASC",
	SortRating:      "vote_average DESC, id ASC",
	SortReleaseDate: "rdate DESC, id ASC",
}

var periodDays = map[string]int{
	PeriodWeekly:  7,
	PeriodMonthly: 30,
	PeriodAll:     0,
}

// AnalyticsRepo runs the read-only catalog queries. Every statement is
// assembled from the closed sets above; caller input only ever travels as a
// bound parameter.
type AnalyticsRepo struct{ db *sql.DB }

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// titleSelect is the per-table projection shared by listings, trending,
// new releases and search.
func titleSelect(k model.Kind) string {
	ks := kinds[k]
	return "SELECT id, '" + string(k) + "' AS kind, title, " + ks.dateCol + " AS rdate, poster_path, " +
		"popularity, vote_average, vote_count, overview FROM " + ks.table
}

// unionSelect covers both tables.
var unionSelect = titleSelect(model.KindMovie) + " UNION ALL " + titleSelect(model.KindTV)

func scanTitleItem(sc rowScanner, extra ...any) (model.TitleItem, error) {
	var (
		it     model.TitleItem
		kind   string
		rdate  sql.NullTime
		poster sql.NullString
	)
	dest := append([]any{&it.ID, &kind, &it.Title, &rdate, &poster, &it.Popularity, &it.VoteAverage, &it.VoteCount}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return it, err
	}
	it.Kind = model.Kind(kind)
	it.ReleaseDate = datePtr(rdate)
	it.PosterPath = strPtr(poster)
	return it, nil
}

const itemCols = "id, kind, title, rdate, poster_path, popularity, vote_average, vote_count"

// Summary computes the catalog aggregate. topN bounds both histograms.
func (r *AnalyticsRepo) Summary(ctx context.Context, topN int) (model.Summary, error) {
	defer metrics.ObserveQuery("summary", time.Now())

	var s model.Summary
	const counts = `SELECT (SELECT COUNT(*) FROM movies), (SELECT COUNT(*) FROM shows)`
	if err := r.db.QueryRowContext(ctx, counts).Scan(&s.Movies, &s.TV); err != nil {
		return s, fmt.Errorf("summary counts: %w", database.Classify(err))
	}
	s.TotalItems = s.Movies + s.TV

	// a review references exactly one of movie_id/show_id, so the pair
	// groups reviews per title
	const avgRating = `
		SELECT COALESCE(AVG(t.title_avg), 0) FROM (
			SELECT AVG(rating) AS title_avg FROM reviews GROUP BY movie_id, show_id
		) t`
	if err := r.db.QueryRowContext(ctx, avgRating).Scan(&s.AvgRating); err != nil {
		return s, fmt.Errorf("summary avg rating: %w", database.Classify(err))
	}

	const avgVote = `
		SELECT COALESCE(AVG(v), 0) FROM (
			SELECT vote_average AS v FROM movies UNION ALL SELECT vote_average FROM shows
		) t`
	if err := r.db.QueryRowContext(ctx, avgVote).Scan(&s.AvgVoteAverage); err != nil {
		return s, fmt.Errorf("summary avg vote: %w", database.Classify(err))
	}

	const topGenres = `
		SELECT g.name, COUNT(*) AS cnt FROM (
			SELECT genre_id FROM movie_genres UNION ALL SELECT genre_id FROM show_genres
		) l JOIN genres g ON g.id = l.genre_id
		GROUP BY g.id, g.name
		ORDER BY cnt DESC, g.name ASC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, topGenres, topN)
	if err != nil {
		return s, fmt.Errorf("summary genres: %w", database.Classify(err))
	}
	s.TopGenres = []model.GenreCount{}
	for rows.Next() {
		var g model.GenreCount
		if err := rows.Scan(&g.Genre, &g.Count); err != nil {
			rows.Close()
			return s, err
		}
		s.TopGenres = append(s.TopGenres, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	const languages = `
		SELECT COALESCE(NULLIF(lang, ''), 'unknown') AS language, COUNT(*) AS cnt FROM (
			SELECT original_language AS lang FROM movies UNION ALL SELECT original_language FROM shows
		) t
		GROUP BY language
		ORDER BY cnt DESC, language ASC
		LIMIT ?`
	rows, err = r.db.QueryContext(ctx, languages, topN)
	if err != nil {
		return s, fmt.Errorf("summary languages: %w", database.Classify(err))
	}
	defer rows.Close()
	s.Languages = []model.LanguageCount{}
	for rows.Next() {
		var l model.LanguageCount
		if err := rows.Scan(&l.Language, &l.Count); err != nil {
			return s, err
		}
		s.Languages = append(s.Languages, l)
	}
	return s, rows.Err()
}

// ListByKind returns one page of titles of a kind in the requested order.
// Ties are broken by id so pages never overlap.
func (r *AnalyticsRepo) ListByKind(ctx context.Context, kind model.Kind, sortBy string, page, limit int) (model.ListPage, error) {
	defer metrics.ObserveQuery("list", time.Now())

	out := model.ListPage{Page: page, Limit: limit, Results: []model.TitleItem{}}
	ks, err := sqlFor(kind)
	if err != nil {
		return out, err
	}
	order, ok := sortOrder[sortBy]
	if !ok {
		return out, fmt.Errorf("%w: sort %q", ErrUnknownSort, sortBy)
	}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ks.table).Scan(&out.Total); err != nil {
		return out, fmt.Errorf("list count: %w", database.Classify(err))
	}

	q := "SELECT " + itemCols + " FROM (" + titleSelect(kind) + ") t ORDER BY " + order + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, limit, (page-1)*limit)
	if err != nil {
		return out, fmt.Errorf("list titles: %w", database.Classify(err))
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanTitleItem(rows)
		if err != nil {
			return out, err
		}
		out.Results = append(out.Results, it)
	}
	return out, rows.Err()
}

// Trending ranks movies and shows together by
//
//	(popularity + vote_average * ln(1 + vote_count)) * w
//
// where w = 1 / (1 + age_days / window_days) for the weekly and monthly
// windows and w = 1 for all. Future releases count as age 0.
func (r *AnalyticsRepo) Trending(ctx context.Context, period string, limit int) ([]model.TrendingItem, error) {
	defer metrics.ObserveQuery("trending", time.Now())

	days, ok := periodDays[period]
	if !ok {
		return nil, fmt.Errorf("%w: period %q", ErrUnknownPeriod, period)
	}

	weight := "1"
	args := []any{}
	if days > 0 {
		weight = "1 / (1 + COALESCE(GREATEST(DATEDIFF(CURRENT_DATE, rdate), 0), ?) / ?)"
		args = append(args, undatedAgeDays, days)
	}
	q := "SELECT " + itemCols + ", (popularity + vote_average * LN(1 + vote_count)) * " + weight + " AS score " +
		"FROM (" + unionSelect + ") t ORDER BY score DESC, vote_count DESC, title ASC, id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("trending: %w", database.Classify(err))
	}
	defer rows.Close()

	out := []model.TrendingItem{}
	for rows.Next() {
		var score float64
		it, err := scanTitleItem(rows, &score)
		if err != nil {
			return nil, err
		}
		out = append(out, model.TrendingItem{TitleItem: it, Score: score})
	}
	return out, rows.Err()
}

// NewReleases returns titles released on or before today, newest first.
// kind may be empty for both kinds.
func (r *AnalyticsRepo) NewReleases(ctx context.Context, limit int, kind model.Kind) ([]model.TitleItem, error) {
	defer metrics.ObserveQuery("new_releases", time.Now())

	from := unionSelect
	if kind != "" {
		if _, err := sqlFor(kind); err != nil {
			return nil, err
		}
		from = titleSelect(kind)
	}
	q := "SELECT " + itemCols + " FROM (" + from + ") t " +
		"WHERE rdate IS NOT NULL AND rdate <= CURRENT_DATE ORDER BY rdate DESC, kind ASC, id ASC LIMIT ?"

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("new releases: %w", database.Classify(err))
	}
	defer rows.Close()

	out := []model.TitleItem{}
	for rows.Next() {
		it, err := scanTitleItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Search matches q case-insensitively as a substring of titles (and of
// overviews when withOverview is set) across movies and shows. Results rank
// exact title matches first, then prefix matches, then other title matches,
// then overview-only matches; within a rank by popularity, title, kind, id.
func (r *AnalyticsRepo) Search(ctx context.Context, q string, page int, withOverview bool) (model.SearchPage, error) {
	defer metrics.ObserveQuery("search", time.Now())

	out := model.SearchPage{Page: page, Results: []model.SearchItem{}}
	needle := strings.ToLower(strings.TrimSpace(q))
	exact := needle
	prefix := escapeLike(needle) + "%"
	contains := "%" + escapeLike(needle) + "%"

	where := "LOWER(title) LIKE ? ESCAPE '!'"
	whereArgs := []any{contains}
	if withOverview {
		where = "(" + where + " OR LOWER(COALESCE(overview, '')) LIKE ? ESCAPE '!')"
		whereArgs = append(whereArgs, contains)
	}
	filtered := "SELECT * FROM (" + unionSelect + ") u WHERE " + where

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+filtered+") c", whereArgs...).Scan(&out.TotalResults); err != nil {
		return out, fmt.Errorf("search count: %w", database.Classify(err))
	}

	sqlText := "SELECT " + itemCols + ", CASE " +
		"WHEN LOWER(title) = ? THEN 0 " +
		"WHEN LOWER(title) LIKE ? ESCAPE '!' THEN 1 " +
		"WHEN LOWER(title) LIKE ? ESCAPE '!' THEN 2 " +
		"ELSE 3 END AS rnk " +
		"FROM (" + filtered + ") t " +
		"ORDER BY rnk ASC, popularity DESC, title ASC, kind ASC, id ASC LIMIT ? OFFSET ?"
	args := append([]any{exact, prefix, contains}, whereArgs...)
	args = append(args, SearchPageSize, (page-1)*SearchPageSize)

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return out, fmt.Errorf("search: %w", database.Classify(err))
	}
	defer rows.Close()
	for rows.Next() {
		var rank int
		it, err := scanTitleItem(rows, &rank)
		if err != nil {
			return out, err
		}
		out.Results = append(out.Results, model.SearchItem{TitleItem: it, Rank: rank})
	}
	return out, rows.Err()
}

// escapeLike neutralises LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
