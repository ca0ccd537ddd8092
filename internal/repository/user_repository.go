package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
	"github.com/iliyamo/movie-tracker/internal/utils"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// ErrEmailExists is returned when the normalised email is already taken.
var ErrEmailExists = apperr.New(apperr.KindConstraint, "email already exists")

// Create hashes the password and inserts the user, returning its id.
func (r *UserRepo) Create(ctx context.Context, handle, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (handle, email, password_hash) VALUES (?,?,?)",
		strings.TrimSpace(handle), email, hash)
	if err != nil {
		if database.IsDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("create user: %w", database.Classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, handle, email, password_hash, created_at FROM users WHERE id = ? LIMIT 1",
		id).Scan(&u.ID, &u.Handle, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("get user: %w", database.Classify(err))
	}
	return u, nil
}

// GetByEmail fetches a user by normalised email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, handle, email, password_hash, created_at FROM users WHERE email = ? LIMIT 1",
		email).Scan(&u.ID, &u.Handle, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("get user by email: %w", database.Classify(err))
	}
	return u, nil
}
