package model

import "time"

// User mirrors the `users` table. Users are never hard-deleted; their
// reviews, watchlist entries and comments reference them with RESTRICT.
type User struct {
	ID           uint64    `json:"id"`     // users.id
	Handle       string    `json:"handle"` // users.handle
	Email        string    `json:"email"`  // users.email (unique)
	PasswordHash string    `json:"-"`      // users.password_hash (bcrypt)
	CreatedAt    time.Time `json:"created_at"`
}
