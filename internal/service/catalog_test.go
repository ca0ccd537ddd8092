package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

type mockAnalytics struct{ mock.Mock }

func (m *mockAnalytics) Summary(ctx context.Context, topN int) (model.Summary, error) {
	args := m.Called(ctx, topN)
	return args.Get(0).(model.Summary), args.Error(1)
}

func (m *mockAnalytics) ListByKind(ctx context.Context, kind model.Kind, sortBy string, page, limit int) (model.ListPage, error) {
	args := m.Called(ctx, kind, sortBy, page, limit)
	return args.Get(0).(model.ListPage), args.Error(1)
}

func (m *mockAnalytics) Trending(ctx context.Context, period string, limit int) ([]model.TrendingItem, error) {
	args := m.Called(ctx, period, limit)
	return args.Get(0).([]model.TrendingItem), args.Error(1)
}

func (m *mockAnalytics) NewReleases(ctx context.Context, limit int, kind model.Kind) ([]model.TitleItem, error) {
	args := m.Called(ctx, limit, kind)
	return args.Get(0).([]model.TitleItem), args.Error(1)
}

func (m *mockAnalytics) Search(ctx context.Context, q string, page int, withOverview bool) (model.SearchPage, error) {
	args := m.Called(ctx, q, page, withOverview)
	return args.Get(0).(model.SearchPage), args.Error(1)
}

func (m *mockAnalytics) ReviewStats(ctx context.Context, days, topN int, now time.Time) (model.ReviewStats, error) {
	args := m.Called(ctx, days, topN, now)
	return args.Get(0).(model.ReviewStats), args.Error(1)
}

// stubReads serves the detail lookups from fixed data.
type stubReads struct {
	movies  map[uint64]model.Movie
	exists  map[model.Subject]bool
	genres  []model.Genre
	cast    []model.CastMember
	avg     float64
	reviews int
	seasons []model.Season
}

func (s *stubReads) GetMovie(_ context.Context, id uint64) (model.Movie, error) {
	m, ok := s.movies[id]
	if !ok {
		return m, apperr.NotFound("title not found")
	}
	return m, nil
}

func (s *stubReads) GetShow(context.Context, uint64) (model.Show, error) {
	return model.Show{}, apperr.NotFound("title not found")
}

func (s *stubReads) Exists(_ context.Context, subj model.Subject) (bool, error) {
	return s.exists[subj], nil
}

func (s *stubReads) ListForTitle(context.Context, model.Subject) ([]model.Genre, error) {
	return s.genres, nil
}

func (s *stubReads) TopCast(_ context.Context, _ model.Subject, limit int) ([]model.CastMember, error) {
	if len(s.cast) > limit {
		return s.cast[:limit], nil
	}
	return s.cast, nil
}

func (s *stubReads) Stats(context.Context, model.Subject) (float64, int, error) {
	return s.avg, s.reviews, nil
}

func (s *stubReads) ListByShow(context.Context, uint64) ([]model.Season, error) {
	return s.seasons, nil
}

func (s *stubReads) ListBySubject(context.Context, model.Subject) ([]*model.Comment, error) {
	return []*model.Comment{}, nil
}

// stubRuns serves the ingestion monitoring reads.
type stubRuns struct{}

func (stubRuns) Recent(_ context.Context, limit int) ([]model.ETLRun, error) {
	return make([]model.ETLRun, 0, limit), nil
}

func (stubRuns) Stats(_ context.Context, days int, _ time.Time) (model.ETLStats, error) {
	return model.ETLStats{Days: days, Runs: 2, Succeeded: 1, SuccessRate: 0.5}, nil
}

func (stubRuns) ErrorSummary(_ context.Context, _, limit int, _ time.Time) ([]database.Row, error) {
	return []database.Row{{{Name: "kind", Value: "movie"}, {Name: "occurrences", Value: int64(limit)}}}, nil
}

func newCatalog(a *mockAnalytics, r *stubReads) *CatalogService {
	if r == nil {
		r = &stubReads{}
	}
	return NewCatalogService(CatalogStores{
		Analytics: a, Titles: r, Genres: r, Cast: r, Reviews: r, Seasons: r, Comments: r, Runs: stubRuns{},
	})
}

func TestListAppliesDefaults(t *testing.T) {
	a := &mockAnalytics{}
	a.On("ListByKind", mock.Anything, model.KindTV, "popularity", 1, 20).Return(model.ListPage{Page: 1, Limit: 20}, nil)

	page, err := newCatalog(a, nil).List(context.Background(), ListQuery{Kind: "shows"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	a.AssertExpectations(t)
}

func TestListRejectsMalformedPaging(t *testing.T) {
	svc := newCatalog(&mockAnalytics{}, nil)
	cases := []ListQuery{
		{Kind: "movie", Page: -1},
		{Kind: "movie", Limit: 101},
		{Kind: "movie", Page: 1 << 60},
		{Kind: "movie", Page: 100001},
		{Kind: "movie", Sort: "title"},
		{Kind: "anime"},
	}
	for _, q := range cases {
		_, err := svc.List(context.Background(), q)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", q)
	}
}

func TestTrendingValidatesPeriod(t *testing.T) {
	a := &mockAnalytics{}
	a.On("Trending", mock.Anything, "monthly", 5).Return([]model.TrendingItem{}, nil)
	svc := newCatalog(a, nil)

	_, err := svc.Trending(context.Background(), "Monthly", 5)
	require.NoError(t, err)

	_, err = svc.Trending(context.Background(), "daily", 5)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	a.AssertNumberOfCalls(t, "Trending", 1)
}

func TestNewReleasesKindFilter(t *testing.T) {
	a := &mockAnalytics{}
	a.On("NewReleases", mock.Anything, 20, model.Kind("")).Return([]model.TitleItem{}, nil)
	a.On("NewReleases", mock.Anything, 5, model.KindMovie).Return([]model.TitleItem{}, nil)
	svc := newCatalog(a, nil)

	_, err := svc.NewReleases(context.Background(), 0, "all")
	require.NoError(t, err)
	_, err = svc.NewReleases(context.Background(), 5, "movie")
	require.NoError(t, err)
	_, err = svc.NewReleases(context.Background(), 5, "book")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	a.AssertExpectations(t)
}

func TestSearchRequiresQuery(t *testing.T) {
	a := &mockAnalytics{}
	a.On("Search", mock.Anything, "the", 2, false).Return(model.SearchPage{Page: 2}, nil)
	svc := newCatalog(a, nil)

	_, err := svc.Search(context.Background(), "   ", 1, false)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Search(context.Background(), "the", 1<<60, false)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	res, err := svc.Search(context.Background(), " the ", 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Page)
}

func TestMovieDetailAssemblesExtras(t *testing.T) {
	r := &stubReads{
		movies:  map[uint64]model.Movie{3: {ID: 3, Title: "Heat"}},
		genres:  []model.Genre{{ID: 1, Name: "Crime"}},
		cast:    make([]model.CastMember, 15),
		avg:     8.25,
		reviews: 4,
	}
	d, err := newCatalog(&mockAnalytics{}, r).Movie(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Heat", d.Title)
	assert.Len(t, d.Genres, 1)
	assert.Len(t, d.Cast, 10)
	assert.Equal(t, 8.25, d.UserRating)
	assert.Equal(t, 4, d.ReviewCount)

	_, err = newCatalog(&mockAnalytics{}, r).Movie(context.Background(), 4)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSeasonsOfMissingShow(t *testing.T) {
	r := &stubReads{exists: map[model.Subject]bool{{Kind: model.KindTV, ID: 1}: true}, seasons: []model.Season{{SeasonNumber: 1}}}
	svc := newCatalog(&mockAnalytics{}, r)

	seasons, err := svc.Seasons(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, seasons, 1)

	_, err = svc.Seasons(context.Background(), 2)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSummaryTopBounds(t *testing.T) {
	a := &mockAnalytics{}
	a.On("Summary", mock.Anything, 10).Return(model.Summary{TotalItems: 9}, nil)
	svc := newCatalog(a, nil)

	s, err := svc.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 9, s.TotalItems)

	_, err = svc.Summary(context.Background(), 51)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// slowAnalytics blocks Summary until its context ends.
type slowAnalytics struct{ mockAnalytics }

func (*slowAnalytics) Summary(ctx context.Context, _ int) (model.Summary, error) {
	<-ctx.Done()
	return model.Summary{}, context.Canceled
}

func TestStatementTimeoutBoundsQueries(t *testing.T) {
	svc := NewCatalogService(CatalogStores{Analytics: &slowAnalytics{}}).WithStatementTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := svc.Summary(context.Background(), 0)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
}

func TestReviewStatsDefaultsAndBounds(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	a := &mockAnalytics{}
	a.On("ReviewStats", mock.Anything, 30, 10, now).Return(model.ReviewStats{Days: 30}, nil)
	svc := newCatalog(a, nil)
	svc.now = func() time.Time { return now }

	st, err := svc.ReviewStats(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, st.Days)

	_, err = svc.ReviewStats(context.Background(), 366, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.ReviewStats(context.Background(), 7, 51)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	a.AssertNumberOfCalls(t, "ReviewStats", 1)
}

func TestIngestionErrorsReport(t *testing.T) {
	svc := newCatalog(&mockAnalytics{}, nil)

	rep, err := svc.IngestionErrors(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, rep.Statistics.Days)
	require.Len(t, rep.Errors, 1)
	n, _ := rep.Errors[0].Get("occurrences")
	assert.Equal(t, int64(20), n)

	_, err = svc.IngestionErrors(context.Background(), 91, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
