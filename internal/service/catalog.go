package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

const (
	defaultLimit = 20
	defaultTopN  = 10
	detailCast   = 10

	defaultStatsDays = 30
	defaultErrorDays = 7
)

type analyticsStore interface {
	Summary(ctx context.Context, topN int) (model.Summary, error)
	ListByKind(ctx context.Context, kind model.Kind, sortBy string, page, limit int) (model.ListPage, error)
	Trending(ctx context.Context, period string, limit int) ([]model.TrendingItem, error)
	NewReleases(ctx context.Context, limit int, kind model.Kind) ([]model.TitleItem, error)
	Search(ctx context.Context, q string, page int, withOverview bool) (model.SearchPage, error)
	ReviewStats(ctx context.Context, days, topN int, now time.Time) (model.ReviewStats, error)
}

type titleReader interface {
	GetMovie(ctx context.Context, id uint64) (model.Movie, error)
	GetShow(ctx context.Context, id uint64) (model.Show, error)
	Exists(ctx context.Context, s model.Subject) (bool, error)
}

type genreLister interface {
	ListForTitle(ctx context.Context, s model.Subject) ([]model.Genre, error)
}

type castLister interface {
	TopCast(ctx context.Context, s model.Subject, limit int) ([]model.CastMember, error)
}

type reviewStats interface {
	Stats(ctx context.Context, s model.Subject) (float64, int, error)
}

type seasonLister interface {
	ListByShow(ctx context.Context, showID uint64) ([]model.Season, error)
}

type commentLister interface {
	ListBySubject(ctx context.Context, s model.Subject) ([]*model.Comment, error)
}

type runLister interface {
	Recent(ctx context.Context, limit int) ([]model.ETLRun, error)
	Stats(ctx context.Context, days int, now time.Time) (model.ETLStats, error)
	ErrorSummary(ctx context.Context, days, limit int, now time.Time) ([]database.Row, error)
}

// CatalogStores bundles the read side repositories.
type CatalogStores struct {
	Analytics analyticsStore
	Titles    titleReader
	Genres    genreLister
	Cast      castLister
	Reviews   reviewStats
	Seasons   seasonLister
	Comments  commentLister
	Runs      runLister
}

// CatalogService answers read-only catalog queries. Every method validates
// its paging input before a statement is issued.
type CatalogService struct {
	s       CatalogStores
	timeout time.Duration
	now     func() time.Time
}

func NewCatalogService(stores CatalogStores) *CatalogService {
	return &CatalogService{s: stores, now: time.Now}
}

// WithStatementTimeout bounds the store work of every query. A query cut off
// by the bound fails with a timeout error.
func (c *CatalogService) WithStatementTimeout(d time.Duration) *CatalogService {
	c.timeout = d
	return c
}

// Summary returns the catalog aggregate with the topN genres and languages.
// Zero selects the default.
func (c *CatalogService) Summary(ctx context.Context, topN int) (model.Summary, error) {
	if topN == 0 {
		topN = defaultTopN
	}
	if topN < 1 || topN > 50 {
		return model.Summary{}, apperr.Validation("top must be between 1 and 50")
	}
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) (model.Summary, error) {
		return c.s.Analytics.Summary(ctx, topN)
	})
}

// ListQuery selects one page of a kind. Zero Page, Limit and an empty Sort
// take their defaults.
type ListQuery struct {
	Kind  string `json:"kind" validate:"required"`
	Sort  string `json:"sort" validate:"oneof=popularity rating release_date"`
	Page  int    `json:"page" validate:"gte=1,lte=100000"` // bounds the offset
	Limit int    `json:"limit" validate:"gte=1,lte=100"`
}

func (c *CatalogService) List(ctx context.Context, q ListQuery) (model.ListPage, error) {
	if q.Sort == "" {
		q.Sort = "popularity"
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if err := validateStruct(q); err != nil {
		return model.ListPage{}, err
	}
	kind, err := model.ParseKind(q.Kind)
	if err != nil {
		return model.ListPage{}, apperr.Validation("kind must be one of [movie tv]")
	}
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) (model.ListPage, error) {
		return c.s.Analytics.ListByKind(ctx, kind, q.Sort, q.Page, q.Limit)
	})
}

type trendingQuery struct {
	Period string `json:"period" validate:"oneof=weekly monthly all"`
	Limit  int    `json:"limit" validate:"gte=1,lte=100"`
}

// Trending ranks titles over the weekly, monthly or all window.
func (c *CatalogService) Trending(ctx context.Context, period string, limit int) ([]model.TrendingItem, error) {
	q := trendingQuery{Period: strings.ToLower(period), Limit: limit}
	if q.Period == "" {
		q.Period = "weekly"
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if err := validateStruct(q); err != nil {
		return nil, err
	}
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) ([]model.TrendingItem, error) {
		return c.s.Analytics.Trending(ctx, q.Period, q.Limit)
	})
}

// NewReleases lists titles released up to today. kind is movie, tv, or
// empty / "all" for both.
func (c *CatalogService) NewReleases(ctx context.Context, limit int, kind string) ([]model.TitleItem, error) {
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 || limit > 100 {
		return nil, apperr.Validation("limit must be between 1 and 100")
	}
	var k model.Kind
	if kind != "" && !strings.EqualFold(kind, "all") {
		parsed, err := model.ParseKind(kind)
		if err != nil {
			return nil, apperr.Validation("kind must be one of [movie tv all]")
		}
		k = parsed
	}
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) ([]model.TitleItem, error) {
		return c.s.Analytics.NewReleases(ctx, limit, k)
	})
}

type searchQuery struct {
	Q    string `json:"q" validate:"required,max=200"`
	Page int    `json:"page" validate:"gte=1,lte=100000"`
}

// Search finds titles whose title (or overview, when asked) contains q.
// Pages hold a fixed number of results.
func (c *CatalogService) Search(ctx context.Context, q string, page int, withOverview bool) (model.SearchPage, error) {
	in := searchQuery{Q: strings.TrimSpace(q), Page: page}
	if in.Page == 0 {
		in.Page = 1
	}
	if err := validateStruct(in); err != nil {
		return model.SearchPage{}, err
	}
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) (model.SearchPage, error) {
		return c.s.Analytics.Search(ctx, in.Q, in.Page, withOverview)
	})
}

// Movie returns the movie detail view.
func (c *CatalogService) Movie(ctx context.Context, id uint64) (model.MovieDetail, error) {
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) (model.MovieDetail, error) {
		m, err := c.s.Titles.GetMovie(ctx, id)
		if err != nil {
			return model.MovieDetail{}, err
		}
		d := model.MovieDetail{Movie: m}
		d.Genres, d.Cast, d.UserRating, d.ReviewCount, err = c.extras(ctx, model.Subject{Kind: model.KindMovie, ID: id})
		return d, err
	})
}

// Show returns the show detail view. Seasons are served separately.
func (c *CatalogService) Show(ctx context.Context, id uint64) (model.ShowDetail, error) {
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) (model.ShowDetail, error) {
		s, err := c.s.Titles.GetShow(ctx, id)
		if err != nil {
			return model.ShowDetail{}, err
		}
		d := model.ShowDetail{Show: s}
		d.Genres, d.Cast, d.UserRating, d.ReviewCount, err = c.extras(ctx, model.Subject{Kind: model.KindTV, ID: id})
		return d, err
	})
}

func (c *CatalogService) extras(ctx context.Context, subj model.Subject) ([]model.Genre, []model.CastMember, float64, int, error) {
	genres, err := c.s.Genres.ListForTitle(ctx, subj)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	cast, err := c.s.Cast.TopCast(ctx, subj, detailCast)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	avg, n, err := c.s.Reviews.Stats(ctx, subj)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	return genres, cast, avg, n, nil
}

// Seasons lists the seasons of a show with their episodes.
func (c *CatalogService) Seasons(ctx context.Context, showID uint64) ([]model.Season, error) {
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) ([]model.Season, error) {
		if err := c.mustExist(ctx, model.Subject{Kind: model.KindTV, ID: showID}); err != nil {
			return nil, err
		}
		return c.s.Seasons.ListByShow(ctx, showID)
	})
}

// Comments returns the discussion thread of a title.
func (c *CatalogService) Comments(ctx context.Context, subj model.Subject) ([]*model.Comment, error) {
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) ([]*model.Comment, error) {
		if err := c.mustExist(ctx, subj); err != nil {
			return nil, err
		}
		return c.s.Comments.ListBySubject(ctx, subj)
	})
}

// RecentRuns lists the latest ingestion runs, newest first.
func (c *CatalogService) RecentRuns(ctx context.Context, limit int) ([]model.ETLRun, error) {
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 || limit > 100 {
		return nil, apperr.Validation("limit must be between 1 and 100")
	}
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) ([]model.ETLRun, error) {
		return c.s.Runs.Recent(ctx, limit)
	})
}

// ReviewStats reports review and discussion activity over the last days
// days (30 when zero) with rankings of length topN (10 when zero).
func (c *CatalogService) ReviewStats(ctx context.Context, days, topN int) (model.ReviewStats, error) {
	if days == 0 {
		days = defaultStatsDays
	}
	if topN == 0 {
		topN = defaultTopN
	}
	if days < 1 || days > 365 {
		return model.ReviewStats{}, apperr.Validation("days must be between 1 and 365")
	}
	if topN < 1 || topN > 50 {
		return model.ReviewStats{}, apperr.Validation("top must be between 1 and 50")
	}
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) (model.ReviewStats, error) {
		return c.s.Analytics.ReviewStats(ctx, days, topN, c.now())
	})
}

// ErrorReport is the ingestion health over a window: run statistics plus
// the recorded failures grouped by kind and reason.
type ErrorReport struct {
	Statistics model.ETLStats `json:"statistics"`
	Errors     []database.Row `json:"errors"`
}

// IngestionErrors builds the ErrorReport of the last days days (7 when
// zero). At most limit groups are listed (20 when zero).
func (c *CatalogService) IngestionErrors(ctx context.Context, days, limit int) (ErrorReport, error) {
	if days == 0 {
		days = defaultErrorDays
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if days < 1 || days > 90 {
		return ErrorReport{}, apperr.Validation("days must be between 1 and 90")
	}
	if limit < 1 || limit > 100 {
		return ErrorReport{}, apperr.Validation("limit must be between 1 and 100")
	}
	return database.Bounded(ctx, c.timeout, func(ctx context.Context) (ErrorReport, error) {
		now := c.now()
		st, err := c.s.Runs.Stats(ctx, days, now)
		if err != nil {
			return ErrorReport{}, err
		}
		rows, err := c.s.Runs.ErrorSummary(ctx, days, limit, now)
		if err != nil {
			return ErrorReport{}, err
		}
		return ErrorReport{Statistics: st, Errors: rows}, nil
	})
}

func (c *CatalogService) mustExist(ctx context.Context, subj model.Subject) error {
	ok, err := c.s.Titles.Exists(ctx, subj)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("title not found")
	}
	return nil
}
