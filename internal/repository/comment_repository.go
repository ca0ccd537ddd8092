package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// CommentRepo stores threaded discussion comments on titles.
type CommentRepo struct{ db *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

// Create inserts a comment and returns its id. parentID is nil for a
// top-level comment.
func (r *CommentRepo) Create(ctx context.Context, userID uint64, s model.Subject, parentID *uint64, body string) (uint64, error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return 0, err
	}
	var parent any
	if parentID != nil {
		parent = *parentID
	}
	q := "INSERT INTO comments (user_id, " + ks.subjectCol + ", parent_id, body) VALUES (?,?,?,?)"
	res, err := r.db.ExecContext(ctx, q, userID, s.ID, parent, body)
	if err != nil {
		return 0, fmt.Errorf("create comment: %w", database.Classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one comment without replies.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (model.Comment, error) {
	const q = `
		SELECT c.id, c.user_id, u.handle, c.movie_id, c.show_id, c.parent_id, c.body, c.created_at
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.id = ? LIMIT 1`
	c, err := scanComment(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return c, fmt.Errorf("get comment: %w", database.Classify(err))
	}
	return c, nil
}

// ListBySubject returns the comments of a title as a forest: top-level
// comments oldest first, each with its replies nested in creation order.
func (r *CommentRepo) ListBySubject(ctx context.Context, s model.Subject) ([]*model.Comment, error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return nil, err
	}
	q := "SELECT c.id, c.user_id, u.handle, c.movie_id, c.show_id, c.parent_id, c.body, c.created_at " +
		"FROM comments c JOIN users u ON u.id = c.user_id " +
		"WHERE c." + ks.subjectCol + " = ? ORDER BY c.created_at ASC, c.id ASC"
	rows, err := r.db.QueryContext(ctx, q, s.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", database.Classify(err))
	}
	defer rows.Close()

	var all []*model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buildThread(all), nil
}

// buildThread nests replies under their parents. Input must be ordered so a
// parent precedes its replies, which creation order guarantees.
func buildThread(all []*model.Comment) []*model.Comment {
	byID := make(map[uint64]*model.Comment, len(all))
	roots := []*model.Comment{}
	for _, c := range all {
		byID[c.ID] = c
		if c.ParentID != nil {
			if p, ok := byID[*c.ParentID]; ok {
				p.Replies = append(p.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(sc rowScanner) (model.Comment, error) {
	var (
		c               model.Comment
		movieID, showID sql.NullInt64
		parent          sql.NullInt64
	)
	if err := sc.Scan(&c.ID, &c.UserID, &c.Handle, &movieID, &showID, &parent, &c.Body, &c.CreatedAt); err != nil {
		return c, err
	}
	c.Subject = subjectFrom(movieID, showID)
	if parent.Valid {
		p := uint64(parent.Int64)
		c.ParentID = &p
	}
	return c, nil
}
