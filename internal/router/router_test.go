package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/movie-tracker/internal/handler"
	"github.com/iliyamo/movie-tracker/internal/middleware"
	"github.com/iliyamo/movie-tracker/internal/model"
)

func TestRegisterRoutesExposesOperationalEndpoints(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, Deps{
		Catalog:  handler.NewCatalogHandler(nil),
		Commands: handler.NewCommandHandler(nil),
		Admin:    handler.NewAdminHandler(nil, nil, nil, 1),
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUserRoutesRequireIdentity(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, Deps{
		Catalog:  handler.NewCatalogHandler(nil),
		Commands: handler.NewCommandHandler(nil),
		Admin:    handler.NewAdminHandler(nil, nil, nil, 1),
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/v1/reviews"},
		{http.MethodGet, "/v1/watchlist"},
		{http.MethodPost, "/v1/comments"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
	}
}

func TestRouteTable(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, Deps{
		Catalog:  handler.NewCatalogHandler(nil),
		Commands: handler.NewCommandHandler(nil),
		Admin:    handler.NewAdminHandler(nil, nil, nil, 1),
	})

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /v1/summary", "GET /v1/titles/:kind", "GET /v1/search", "GET /v1/trending",
		"GET /v1/new-releases", "GET /v1/movies/:id", "GET /v1/shows/:id", "GET /v1/shows/:id/seasons",
		"GET /v1/:kind/:id/comments", "POST /v1/reviews", "POST /v1/watchlist", "DELETE /v1/watchlist",
		"POST /v1/comments", "POST /v1/users", "GET /v1/watchlist", "POST /v1/admin/ingest", "DELETE /v1/admin/titles/:kind/:id", "GET /v1/admin/runs",
		"GET /v1/stats/reviews", "GET /v1/admin/errors",
	} {
		assert.True(t, got[want], want)
	}
}

type okRemover struct{}

func (okRemover) RemoveTitle(context.Context, model.Subject) error { return nil }

func TestWritesInvalidateCache(t *testing.T) {
	purges := 0
	e := echo.New()
	RegisterRoutes(e, Deps{
		Catalog:    handler.NewCatalogHandler(nil),
		Commands:   handler.NewCommandHandler(nil),
		Admin:      handler.NewAdminHandler(nil, okRemover{}, nil, 1),
		Invalidate: middleware.InvalidateOnSuccess(func(context.Context) (int64, error) {
			purges++
			return 1, nil
		}),
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/admin/titles/movie/4", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, purges)

	// rejected before the handler: nothing changed
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/reviews", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, purges)
}
