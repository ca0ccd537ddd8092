package tmdb

// Wire types of the TMDB v3 API. Only the fields the catalog stores are
// declared.

// PageResponse is the envelope of paginated listings.
type PageResponse[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// ListItem is an entry of /movie/popular or /tv/popular.
type ListItem struct {
	ID         int64   `json:"id"`
	VoteCount  int     `json:"vote_count"`
	PosterPath *string `json:"poster_path"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastCredit is an entry of credits.cast on a movie.
type CastCredit struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	Order       int     `json:"order"`
	ProfilePath *string `json:"profile_path"`
}

// AggregateCast is an entry of aggregate_credits.cast on a show; a person
// may have played several roles across seasons.
type AggregateCast struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Order       int     `json:"order"`
	ProfilePath *string `json:"profile_path"`
	Roles       []struct {
		Character    string `json:"character"`
		EpisodeCount int    `json:"episode_count"`
	} `json:"roles"`
}

type MovieDetails struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	Runtime          *int    `json:"runtime"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	OriginalLanguage string  `json:"original_language"`
	Genres           []Genre `json:"genres"`
	Credits          struct {
		Cast []CastCredit `json:"cast"`
	} `json:"credits"`
}

type SeasonSummary struct {
	SeasonNumber int     `json:"season_number"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	AirDate      string  `json:"air_date"`
	PosterPath   *string `json:"poster_path"`
	EpisodeCount int     `json:"episode_count"`
}

type ShowDetails struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Overview         string          `json:"overview"`
	FirstAirDate     string          `json:"first_air_date"`
	LastAirDate      string          `json:"last_air_date"`
	NumberOfSeasons  *int            `json:"number_of_seasons"`
	PosterPath       *string         `json:"poster_path"`
	BackdropPath     *string         `json:"backdrop_path"`
	Popularity       float64         `json:"popularity"`
	VoteAverage      float64         `json:"vote_average"`
	VoteCount        int             `json:"vote_count"`
	OriginalLanguage string          `json:"original_language"`
	Genres           []Genre         `json:"genres"`
	Seasons          []SeasonSummary `json:"seasons"`
	AggregateCredits struct {
		Cast []AggregateCast `json:"cast"`
	} `json:"aggregate_credits"`
}

type EpisodeDetails struct {
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	Runtime       *int   `json:"runtime"`
}

type SeasonDetails struct {
	SeasonNumber int              `json:"season_number"`
	Name         string           `json:"name"`
	Overview     string           `json:"overview"`
	AirDate      string           `json:"air_date"`
	PosterPath   *string          `json:"poster_path"`
	Episodes     []EpisodeDetails `json:"episodes"`
}

type PersonDetails struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Biography   string  `json:"biography"`
	Birthday    *string `json:"birthday"`
	ProfilePath *string `json:"profile_path"`
}

// errorBody is the error envelope TMDB returns with non-2xx statuses.
type errorBody struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
