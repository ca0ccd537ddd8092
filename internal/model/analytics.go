package model

// TitleItem is the flattened listing row shared by listing, trending,
// new releases and search. ReleaseDate is first_air_date for shows.
type TitleItem struct {
	ID          uint64  `json:"id"`
	Kind        Kind    `json:"kind"`
	Title       string  `json:"title"`
	ReleaseDate *string `json:"release_date"`
	PosterPath  *string `json:"poster_path"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
}

// TrendingItem adds the computed score.
type TrendingItem struct {
	TitleItem
	Score float64 `json:"score"`
}

// SearchItem adds the match rank: 0 exact title, 1 prefix, 2 substring,
// 3 overview-only match.
type SearchItem struct {
	TitleItem
	Rank int `json:"rank"`
}

type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// Summary is the catalog-wide aggregate.
//
// Fields:
//
//	TotalItems     – movies + tv.
//	AvgRating      – mean over reviewed titles of their mean user rating; 0 with no reviews.
//	AvgVoteAverage – mean source vote average over all titles.
type Summary struct {
	TotalItems     int             `json:"total_items"`
	Movies         int             `json:"movies"`
	TV             int             `json:"tv"`
	AvgRating      float64         `json:"avg_rating"`
	AvgVoteAverage float64         `json:"avg_vote_average"`
	TopGenres      []GenreCount    `json:"top_genres"`
	Languages      []LanguageCount `json:"languages"`
}

// ListPage is one page of a listing.
type ListPage struct {
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	Results []TitleItem `json:"results"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	Page         int          `json:"page"`
	Results      []SearchItem `json:"results"`
	TotalResults int          `json:"total_results"`
}

// DailyCount is the number of reviews written on one UTC day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// RatingBucket counts reviews whose rating floors to Rating.
type RatingBucket struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// UserCount ranks users by how much they contributed.
type UserCount struct {
	UserID uint64 `json:"user_id"`
	Handle string `json:"handle"`
	Count  int    `json:"count"`
}

// ReviewedTitle ranks titles by review count.
type ReviewedTitle struct {
	ID        uint64  `json:"id"`
	Kind      Kind    `json:"kind"`
	Title     string  `json:"title"`
	Reviews   int     `json:"reviews"`
	AvgRating float64 `json:"avg_rating"`
}

// ReviewStats describes user activity. Daily covers the last Days days,
// oldest first, with a zero entry for quiet days; Distribution holds all
// eleven buckets 0 through 10.
type ReviewStats struct {
	Days          int             `json:"days"`
	TotalReviews  int             `json:"total_reviews"`
	MovieReviews  int             `json:"movie_reviews"`
	TVReviews     int             `json:"tv_reviews"`
	Daily         []DailyCount    `json:"daily"`
	Distribution  []RatingBucket  `json:"distribution"`
	TopReviewers  []UserCount     `json:"top_reviewers"`
	TopDiscussers []UserCount     `json:"top_discussers"`
	MostReviewed  []ReviewedTitle `json:"most_reviewed"`
}
