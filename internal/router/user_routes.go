package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-tracker/internal/handler"
	"github.com/iliyamo/movie-tracker/internal/middleware"
)

// registerUser registers the endpoints that act on behalf of a user. All of
// them except registration require the caller identity header. Reviews feed
// the cached ratings, so a stored review runs inv.
func registerUser(g *echo.Group, h *handler.CommandHandler, inv []echo.MiddlewareFunc) {
	g.POST("/users", h.Register)

	auth := middleware.RequireUser()
	g.POST("/reviews", h.AddReview, append([]echo.MiddlewareFunc{auth}, inv...)...)
	g.GET("/watchlist", h.Watchlist, auth)
	g.POST("/watchlist", h.AddToWatchlist, auth)
	g.DELETE("/watchlist", h.RemoveFromWatchlist, auth)
	g.POST("/comments", h.AddComment, auth)
}
