// Package tmdb is the HTTP client for the external catalog source. Every
// call waits on a token-bucket limiter, runs through a circuit breaker and is
// bounded by a per-request timeout. Retrying is left to the caller, which
// knows whether a page or a single title is at stake.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/metrics"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	maxBodyBytes   = 8 << 20
)

// Options configures a Client. Zero values fall back to sensible defaults.
type Options struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	BreakerFailures int
	BreakerOpenFor  time.Duration
	HTTPClient      *http.Client
}

// Client talks to the TMDB v3 API.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	log        zerolog.Logger
}

// NewClient creates a client. The API key travels as the api_key query
// parameter.
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 4
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerOpenFor <= 0 {
		o.BreakerOpenFor = 30 * time.Second
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	c := &Client{
		baseURL:    o.BaseURL,
		apiKey:     o.APIKey,
		timeout:    o.Timeout,
		httpClient: hc,
		limiter:    rate.NewLimiter(rate.Limit(o.RatePerSecond), o.Burst),
		log:        logging.Component("tmdb"),
	}
	failures := uint32(o.BreakerFailures)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Timeout:     o.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a rejected request says nothing about the source's health
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500 && se.Code != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SourceBreakerState.Set(float64(to))
			c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return c
}

// StatusError is a non-2xx answer from the source.
type StatusError struct {
	Code    int
	Message string
	Path    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tmdb %s: %d %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("tmdb %s: status %d", e.Path, e.Code)
}

// Fatal reports credential problems, which no retry can fix and which make
// the rest of a run pointless.
func (e *StatusError) Fatal() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// Permanent reports client errors other than rate limiting.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests
}

// get fetches path with params and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, path, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return apperr.Wrap(apperr.KindSourceUnavailable, "catalog source circuit open", err)
		}
		return classify(err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "movie-tracker/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.SourceRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()
	metrics.SourceRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("source request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Path: path}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			se.Message = eb.StatusMessage
		}
		return nil, se
	}
	return body, nil
}

// classify turns transport failures into taxonomy errors, keeping the
// original in the chain so callers can still inspect a *StatusError.
func classify(err error) error {
	var se *StatusError
	switch {
	case errors.As(err, &se) && se.Fatal():
		return apperr.Wrap(apperr.KindSourceUnavailable, "catalog source rejected credentials", err)
	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		return apperr.Wrap(apperr.KindNotFound, "catalog source has no such record", err)
	case errors.As(err, &se):
		return apperr.Wrap(apperr.KindSourceUnavailable, "catalog source error", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindTimeout, "catalog source request timed out", err)
	case errors.Is(err, context.Canceled):
		return err
	}
	return apperr.Wrap(apperr.KindSourceUnavailable, "catalog source unreachable", err)
}

// PopularMovies returns one page of /movie/popular.
func (c *Client) PopularMovies(ctx context.Context, page int) (*PageResponse[ListItem], error) {
	var out PageResponse[ListItem]
	params := url.Values{"page": {strconv.Itoa(page)}}
	if err := c.get(ctx, "movie_popular", "/movie/popular", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PopularShows returns one page of /tv/popular.
func (c *Client) PopularShows(ctx context.Context, page int) (*PageResponse[ListItem], error) {
	var out PageResponse[ListItem]
	params := url.Values{"page": {strconv.Itoa(page)}}
	if err := c.get(ctx, "tv_popular", "/tv/popular", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Movie returns a movie with its credits.
func (c *Client) Movie(ctx context.Context, id int64) (*MovieDetails, error) {
	var out MovieDetails
	params := url.Values{"append_to_response": {"credits"}}
	if err := c.get(ctx, "movie", "/movie/"+strconv.FormatInt(id, 10), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Show returns a show with its aggregated credits and season summaries.
func (c *Client) Show(ctx context.Context, id int64) (*ShowDetails, error) {
	var out ShowDetails
	params := url.Values{"append_to_response": {"aggregate_credits"}}
	if err := c.get(ctx, "tv", "/tv/"+strconv.FormatInt(id, 10), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Season returns one season of a show with its episodes.
func (c *Client) Season(ctx context.Context, showID int64, number int) (*SeasonDetails, error) {
	var out SeasonDetails
	path := fmt.Sprintf("/tv/%d/season/%d", showID, number)
	if err := c.get(ctx, "tv_season", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Person returns the details of a person.
func (c *Client) Person(ctx context.Context, id int64) (*PersonDetails, error) {
	var out PersonDetails
	if err := c.get(ctx, "person", "/person/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
