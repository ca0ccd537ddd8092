package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// TitleRepo reads and writes the `movies` and `shows` tables.
type TitleRepo struct{ db *sql.DB }

func NewTitleRepo(db *sql.DB) *TitleRepo { return &TitleRepo{db: db} }

// DB exposes the underlying handle for callers that open transactions.
func (r *TitleRepo) DB() *sql.DB { return r.db }

// UpsertMovieTx inserts a movie or refreshes the existing row with the same
// tmdb_id. LAST_INSERT_ID(id) makes LastInsertId report the existing id on
// the update path. Runtime is only overwritten when the source reports one.
func (r *TitleRepo) UpsertMovieTx(ctx context.Context, tx *sql.Tx, rec model.TitleRecord) (uint64, bool, error) {
	const q = `
		INSERT INTO movies
			(tmdb_id, title, overview, release_date, runtime_min, poster_path, backdrop_path,
			 popularity, vote_average, vote_count, original_language)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			id                = LAST_INSERT_ID(id),
			title             = VALUES(title),
			overview          = VALUES(overview),
			release_date      = VALUES(release_date),
			runtime_min       = COALESCE(VALUES(runtime_min), runtime_min),
			poster_path       = COALESCE(VALUES(poster_path), poster_path),
			backdrop_path     = COALESCE(VALUES(backdrop_path), backdrop_path),
			popularity        = VALUES(popularity),
			vote_average      = VALUES(vote_average),
			vote_count        = VALUES(vote_count),
			original_language = COALESCE(VALUES(original_language), original_language)`
	res, err := tx.ExecContext(ctx, q,
		rec.ExternalID, rec.Title, rec.Overview, nullTimePtr(rec.ReleaseDate), nullInt(rec.RuntimeMin),
		nullString(rec.PosterPath), nullString(rec.BackdropPath),
		rec.Popularity, rec.VoteAverage, rec.VoteCount, nullString(rec.OriginalLanguage))
	if err != nil {
		return 0, false, fmt.Errorf("upsert movie %d: %w", rec.ExternalID, database.Classify(err))
	}
	return upsertOutcome(res)
}

// UpsertShowTx is the show counterpart of UpsertMovieTx.
func (r *TitleRepo) UpsertShowTx(ctx context.Context, tx *sql.Tx, rec model.TitleRecord) (uint64, bool, error) {
	const q = `
		INSERT INTO shows
			(tmdb_id, title, overview, first_air_date, last_air_date, number_of_seasons, poster_path,
			 backdrop_path, popularity, vote_average, vote_count, original_language)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			id                = LAST_INSERT_ID(id),
			title             = VALUES(title),
			overview          = VALUES(overview),
			first_air_date    = VALUES(first_air_date),
			last_air_date     = COALESCE(VALUES(last_air_date), last_air_date),
			number_of_seasons = COALESCE(VALUES(number_of_seasons), number_of_seasons),
			poster_path       = COALESCE(VALUES(poster_path), poster_path),
			backdrop_path     = COALESCE(VALUES(backdrop_path), backdrop_path),
			popularity        = VALUES(popularity),
			vote_average      = VALUES(vote_average),
			vote_count        = VALUES(vote_count),
			original_language = COALESCE(VALUES(original_language), original_language)`
	res, err := tx.ExecContext(ctx, q,
		rec.ExternalID, rec.Title, rec.Overview, nullTimePtr(rec.ReleaseDate), nullTimePtr(rec.LastAirDate),
		nullInt(rec.NumberOfSeasons), nullString(rec.PosterPath), nullString(rec.BackdropPath),
		rec.Popularity, rec.VoteAverage, rec.VoteCount, nullString(rec.OriginalLanguage))
	if err != nil {
		return 0, false, fmt.Errorf("upsert show %d: %w", rec.ExternalID, database.Classify(err))
	}
	return upsertOutcome(res)
}

// GetMovie fetches a movie by id.
func (r *TitleRepo) GetMovie(ctx context.Context, id uint64) (model.Movie, error) {
	const q = `
		SELECT id, tmdb_id, title, COALESCE(overview, ''), release_date, runtime_min, poster_path,
		       backdrop_path, popularity, vote_average, vote_count, original_language, created_at, updated_at
		FROM movies WHERE id = ? LIMIT 1`
	var (
		m                      model.Movie
		release                sql.NullTime
		runtime                sql.NullInt64
		poster, backdrop, lang sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&m.ID, &m.TMDBID, &m.Title, &m.Overview, &release, &runtime, &poster,
		&backdrop, &m.Popularity, &m.VoteAverage, &m.VoteCount, &lang, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return m, ErrTitleNotFound
	}
	if err != nil {
		return m, fmt.Errorf("get movie: %w", database.Classify(err))
	}
	m.ReleaseDate = datePtr(release)
	m.RuntimeMin = intPtr(runtime)
	m.PosterPath = strPtr(poster)
	m.BackdropPath = strPtr(backdrop)
	m.OriginalLanguage = strPtr(lang)
	return m, nil
}

// GetShow fetches a show by id.
func (r *TitleRepo) GetShow(ctx context.Context, id uint64) (model.Show, error) {
	const q = `
		SELECT id, tmdb_id, title, COALESCE(overview, ''), first_air_date, last_air_date, number_of_seasons,
		       poster_path, backdrop_path, popularity, vote_average, vote_count, original_language,
		       created_at, updated_at
		FROM shows WHERE id = ? LIMIT 1`
	var (
		s                      model.Show
		first, last            sql.NullTime
		seasons                sql.NullInt64
		poster, backdrop, lang sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.TMDBID, &s.Title, &s.Overview, &first, &last, &seasons,
		&poster, &backdrop, &s.Popularity, &s.VoteAverage, &s.VoteCount, &lang,
		&s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrTitleNotFound
	}
	if err != nil {
		return s, fmt.Errorf("get show: %w", database.Classify(err))
	}
	s.FirstAirDate = datePtr(first)
	s.LastAirDate = datePtr(last)
	s.NumberOfSeasons = intPtr(seasons)
	s.PosterPath = strPtr(poster)
	s.BackdropPath = strPtr(backdrop)
	s.OriginalLanguage = strPtr(lang)
	return s, nil
}

// Exists reports whether the subject title exists.
func (r *TitleRepo) Exists(ctx context.Context, s model.Subject) (bool, error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return false, err
	}
	var one int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM "+ks.table+" WHERE id = ? LIMIT 1", s.ID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("title exists: %w", database.Classify(err))
	}
	return true, nil
}

// Delete removes a title. Seasons, episodes, cast and genre links go with it;
// reviews, watchlist entries and comments block the delete and surface as a
// constraint violation naming the restricting foreign key.
func (r *TitleRepo) Delete(ctx context.Context, s model.Subject) error {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+ks.table+" WHERE id = ?", s.ID)
	if err != nil {
		err = database.Classify(err)
		if apperr.KindOf(err) == apperr.KindConstraint {
			return apperr.Constraint(constraintOf(err), "title has user reviews, watchlist entries or comments", err)
		}
		return fmt.Errorf("delete title: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTitleNotFound
	}
	return nil
}

// Counts returns the number of movies and shows.
func (r *TitleRepo) Counts(ctx context.Context) (movies, shows int, err error) {
	const q = `SELECT (SELECT COUNT(*) FROM movies), (SELECT COUNT(*) FROM shows)`
	if err := r.db.QueryRowContext(ctx, q).Scan(&movies, &shows); err != nil {
		return 0, 0, fmt.Errorf("count titles: %w", database.Classify(err))
	}
	return movies, shows, nil
}

func constraintOf(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Constraint
	}
	return ""
}
