package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// ReviewRepo stores user reviews. (user, title) is unique.
type ReviewRepo struct{ db *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Upsert writes the review of userID for the subject, replacing rating and
// body of an existing one. A missing user or title surfaces as not_found
// through the foreign keys; an out-of-range rating trips chk_reviews_rating.
func (r *ReviewRepo) Upsert(ctx context.Context, userID uint64, s model.Subject, rating float64, body string) (uint64, bool, error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return 0, false, err
	}
	q := "INSERT INTO reviews (user_id, " + ks.subjectCol + ", rating, body) VALUES (?,?,?,?) " +
		"ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), rating = VALUES(rating), body = VALUES(body)"
	res, err := r.db.ExecContext(ctx, q, userID, s.ID, rating, body)
	if err != nil {
		return 0, false, fmt.Errorf("upsert review: %w", database.Classify(err))
	}
	return upsertOutcome(res)
}

// Get returns the review of userID for the subject.
func (r *ReviewRepo) Get(ctx context.Context, userID uint64, s model.Subject) (model.Review, error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return model.Review{}, err
	}
	q := "SELECT id, user_id, rating, COALESCE(body, ''), created_at, updated_at FROM reviews " +
		"WHERE user_id = ? AND " + ks.subjectCol + " = ? LIMIT 1"
	rv := model.Review{Subject: s}
	err = r.db.QueryRowContext(ctx, q, userID, s.ID).Scan(
		&rv.ID, &rv.UserID, &rv.Rating, &rv.Body, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return rv, fmt.Errorf("get review: %w", database.Classify(err))
	}
	return rv, nil
}

// Stats returns the mean rating and number of reviews of a title.
func (r *ReviewRepo) Stats(ctx context.Context, s model.Subject) (avg float64, count int, err error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return 0, 0, err
	}
	q := "SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE " + ks.subjectCol + " = ?"
	if err := r.db.QueryRowContext(ctx, q, s.ID).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("review stats: %w", database.Classify(err))
	}
	return avg, count, nil
}
