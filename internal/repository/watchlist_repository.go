package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// WatchlistRepo stores watchlist entries. (user, title) is unique.
type WatchlistRepo struct{ db *sql.DB }

func NewWatchlistRepo(db *sql.DB) *WatchlistRepo { return &WatchlistRepo{db: db} }

// Add inserts the entry unless it already exists. added is false when the
// entry was already present. The no-op update keeps the row untouched, so
// RowsAffected is 1 only for a fresh insert.
func (r *WatchlistRepo) Add(ctx context.Context, userID uint64, s model.Subject) (bool, error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return false, err
	}
	q := "INSERT INTO watchlist_entries (user_id, " + ks.subjectCol + ") VALUES (?, ?) " +
		"ON DUPLICATE KEY UPDATE user_id = user_id"
	res, err := r.db.ExecContext(ctx, q, userID, s.ID)
	if err != nil {
		return false, fmt.Errorf("add to watchlist: %w", database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Remove deletes the entry if present. removed is false when there was none.
func (r *WatchlistRepo) Remove(ctx context.Context, userID uint64, s model.Subject) (bool, error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return false, err
	}
	q := "DELETE FROM watchlist_entries WHERE user_id = ? AND " + ks.subjectCol + " = ?"
	res, err := r.db.ExecContext(ctx, q, userID, s.ID)
	if err != nil {
		return false, fmt.Errorf("remove from watchlist: %w", database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByUser returns the user's watchlist, newest first.
func (r *WatchlistRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WatchlistEntry, error) {
	const q = `
		SELECT w.id, w.user_id, w.movie_id, w.show_id, COALESCE(m.title, s.title), w.created_at
		FROM watchlist_entries w
		LEFT JOIN movies m ON m.id = w.movie_id
		LEFT JOIN shows  s ON s.id = w.show_id
		WHERE w.user_id = ?
		ORDER BY w.created_at DESC, w.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", database.Classify(err))
	}
	defer rows.Close()

	out := []model.WatchlistEntry{}
	for rows.Next() {
		var (
			e               model.WatchlistEntry
			movieID, showID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &movieID, &showID, &e.Title, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Subject = subjectFrom(movieID, showID)
		out = append(out, e)
	}
	return out, rows.Err()
}

func subjectFrom(movieID, showID sql.NullInt64) model.Subject {
	if movieID.Valid {
		return model.Subject{Kind: model.KindMovie, ID: uint64(movieID.Int64)}
	}
	return model.Subject{Kind: model.KindTV, ID: uint64(showID.Int64)}
}
