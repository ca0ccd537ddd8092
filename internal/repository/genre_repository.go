package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// GenreRepo manages genres and their links to titles. Names compare with a
// binary collation, so "Drama" and "drama" are distinct genres.
type GenreRepo struct{ db *sql.DB }

func NewGenreRepo(db *sql.DB) *GenreRepo { return &GenreRepo{db: db} }

// UpsertTx returns the id of the genre named exactly name, creating it if
// needed. The source genre id is recorded the first time it is seen.
func (r *GenreRepo) UpsertTx(ctx context.Context, tx *sql.Tx, g model.GenreRef) (uint64, error) {
	const q = `
		INSERT INTO genres (name, tmdb_genre_id) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE
			id            = LAST_INSERT_ID(id),
			tmdb_genre_id = COALESCE(tmdb_genre_id, VALUES(tmdb_genre_id))`
	res, err := tx.ExecContext(ctx, q, g.Name, nullInt(g.ExternalID))
	if err != nil {
		return 0, fmt.Errorf("upsert genre %q: %w", g.Name, database.Classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// LinkTx attaches a genre to a title. An existing link is left as is.
func (r *GenreRepo) LinkTx(ctx context.Context, tx *sql.Tx, kind model.Kind, titleID, genreID uint64) error {
	ks, err := sqlFor(kind)
	if err != nil {
		return err
	}
	q := "INSERT INTO " + ks.genreTable + " (" + ks.subjectCol + ", genre_id) VALUES (?, ?) " +
		"ON DUPLICATE KEY UPDATE genre_id = genre_id"
	if _, err := tx.ExecContext(ctx, q, titleID, genreID); err != nil {
		return fmt.Errorf("link genre: %w", database.Classify(err))
	}
	return nil
}

// ListForTitle returns the genres of a title ordered by name.
func (r *GenreRepo) ListForTitle(ctx context.Context, s model.Subject) ([]model.Genre, error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return nil, err
	}
	q := "SELECT g.id, g.name FROM genres g JOIN " + ks.genreTable + " l ON l.genre_id = g.id " +
		"WHERE l." + ks.subjectCol + " = ? ORDER BY g.name ASC"
	rows, err := r.db.QueryContext(ctx, q, s.ID)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", database.Classify(err))
	}
	defer rows.Close()

	out := []model.Genre{}
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
