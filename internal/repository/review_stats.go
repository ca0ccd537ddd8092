package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/metrics"
	"github.com/iliyamo/movie-tracker/internal/model"
)

const maxRating = 10

// ReviewStats computes the user activity figures. The daily series covers
// the days calendar days ending on now's UTC date; topN bounds the three
// rankings.
func (r *AnalyticsRepo) ReviewStats(ctx context.Context, days, topN int, now time.Time) (model.ReviewStats, error) {
	defer metrics.ObserveQuery("review_stats", time.Now())

	st := model.ReviewStats{Days: days}
	const split = `
		SELECT COUNT(*), COALESCE(SUM(movie_id IS NOT NULL), 0), COALESCE(SUM(show_id IS NOT NULL), 0)
		FROM reviews`
	if err := r.db.QueryRowContext(ctx, split).Scan(&st.TotalReviews, &st.MovieReviews, &st.TVReviews); err != nil {
		return st, fmt.Errorf("review split: %w", database.Classify(err))
	}

	var err error
	if st.Daily, err = r.dailyReviews(ctx, days, now); err != nil {
		return st, err
	}
	if st.Distribution, err = r.ratingDistribution(ctx); err != nil {
		return st, err
	}
	if st.TopReviewers, err = r.topUsers(ctx, "reviews", topN); err != nil {
		return st, err
	}
	if st.TopDiscussers, err = r.topUsers(ctx, "comments", topN); err != nil {
		return st, err
	}
	st.MostReviewed, err = r.mostReviewed(ctx, topN)
	return st, err
}

func (r *AnalyticsRepo) dailyReviews(ctx context.Context, days int, now time.Time) ([]model.DailyCount, error) {
	y, m, d := now.UTC().Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	const q = `
		SELECT DATE(created_at) AS day, COUNT(*) FROM reviews
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day`
	rows, err := r.db.QueryContext(ctx, q, first)
	if err != nil {
		return nil, fmt.Errorf("daily reviews: %w", database.Classify(err))
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			day sql.NullTime
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		if day.Valid {
			counts[day.Time.Format(time.DateOnly)] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.DailyCount, days)
	for i := range out {
		key := first.AddDate(0, 0, i).Format(time.DateOnly)
		out[i] = model.DailyCount{Date: key, Count: counts[key]}
	}
	return out, nil
}

func (r *AnalyticsRepo) ratingDistribution(ctx context.Context) ([]model.RatingBucket, error) {
	const q = `
		SELECT CAST(FLOOR(rating) AS SIGNED) AS bucket, COUNT(*) FROM reviews
		GROUP BY bucket
		ORDER BY bucket`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("rating distribution: %w", database.Classify(err))
	}
	defer rows.Close()

	out := make([]model.RatingBucket, maxRating+1)
	for i := range out {
		out[i].Rating = i
	}
	for rows.Next() {
		var bucket, n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, err
		}
		if bucket >= 0 && bucket <= maxRating {
			out[bucket].Count = n
		}
	}
	return out, rows.Err()
}

// topUsers ranks users by their rows in table, which is reviews or comments.
func (r *AnalyticsRepo) topUsers(ctx context.Context, table string, limit int) ([]model.UserCount, error) {
	q := `
		SELECT u.id, u.handle, COUNT(*) AS cnt FROM ` + table + ` x
		JOIN users u ON u.id = x.user_id
		GROUP BY u.id, u.handle
		ORDER BY cnt DESC, u.id ASC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("top users by %s: %w", table, database.Classify(err))
	}
	defer rows.Close()

	out := []model.UserCount{}
	for rows.Next() {
		var u model.UserCount
		if err := rows.Scan(&u.UserID, &u.Handle, &u.Count); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) mostReviewed(ctx context.Context, limit int) ([]model.ReviewedTitle, error) {
	const q = `
		SELECT id, kind, title, cnt, avg_rating FROM (
			SELECT m.id, 'movie' AS kind, m.title, COUNT(*) AS cnt, AVG(r.rating) AS avg_rating
			FROM reviews r JOIN movies m ON m.id = r.movie_id
			GROUP BY m.id, m.title
			UNION ALL
			SELECT s.id, 'tv' AS kind, s.title, COUNT(*) AS cnt, AVG(r.rating) AS avg_rating
			FROM reviews r JOIN shows s ON s.id = r.show_id
			GROUP BY s.id, s.title
		) t
		ORDER BY cnt DESC, avg_rating DESC, kind ASC, id ASC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("most reviewed: %w", database.Classify(err))
	}
	defer rows.Close()

	out := []model.ReviewedTitle{}
	for rows.Next() {
		var (
			t    model.ReviewedTitle
			kind string
		)
		if err := rows.Scan(&t.ID, &kind, &t.Title, &t.Reviews, &t.AvgRating); err != nil {
			return nil, err
		}
		t.Kind = model.Kind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}
