package model

import "time"

// Review is one user's rating of one title. A user has at most one review
// per title; writing again replaces the rating and body.
//
// Fields:
//
//	Rating – 0.0 to 10.0 inclusive, one decimal place.
//	Body   – optional free text.
type Review struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Subject   Subject   `json:"subject"`
	Rating    float64   `json:"rating"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchlistEntry marks a title a user wants to watch.
type WatchlistEntry struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Subject   Subject   `json:"subject"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a discussion post on a title. ParentID links a reply to the
// comment it answers; deleting a comment removes its replies.
type Comment struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user_id"`
	Handle    string     `json:"handle"`
	Subject   Subject    `json:"subject"`
	ParentID  *uint64    `json:"parent_id"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	Replies   []*Comment `json:"replies,omitempty"`
}
