// Package router wires the HTTP handlers and middleware onto an Echo
// instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/movie-tracker/internal/handler"
	"github.com/iliyamo/movie-tracker/internal/middleware"
)

// Deps bundles what RegisterRoutes needs. Cache, Invalidate and RateLimit
// may be nil, which disables them. Invalidate runs after the writes that
// change cached responses.
type Deps struct {
	DB         handler.Pinger
	Catalog    *handler.CatalogHandler
	Commands   *handler.CommandHandler
	Admin      *handler.AdminHandler
	Cache      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
	RateLimit  echo.MiddlewareFunc
}

// RegisterRoutes registers every endpoint. Operational endpoints sit outside
// the rate limiter and the cache.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Use(middleware.Metrics())
	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var mw []echo.MiddlewareFunc
	mw = append(mw, middleware.Identity())
	if d.RateLimit != nil {
		mw = append(mw, d.RateLimit)
	}
	v1 := e.Group("/v1", mw...)

	registerCatalog(v1, d.Catalog, d.Cache)
	var inv []echo.MiddlewareFunc
	if d.Invalidate != nil {
		inv = append(inv, d.Invalidate)
	}
	registerUser(v1, d.Commands, inv)
	registerAdmin(v1, d.Admin, inv)
}

func registerCatalog(g *echo.Group, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	g.GET("/summary", h.Summary, mw...)
	g.GET("/titles/:kind", h.List, mw...)
	g.GET("/search", h.Search, mw...)
	g.GET("/trending", h.Trending, mw...)
	g.GET("/new-releases", h.NewReleases, mw...)
	g.GET("/stats/reviews", h.ReviewStats, mw...)
	g.GET("/movies/:id", h.Movie, mw...)
	g.GET("/shows/:id", h.Show, mw...)
	g.GET("/shows/:id/seasons", h.Seasons, mw...)
	// comments change on every post, so they bypass the cache
	g.GET("/:kind/:id/comments", h.Comments)
}
