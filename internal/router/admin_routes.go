package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-tracker/internal/handler"
)

// registerAdmin registers the operator endpoints under /v1/admin. Access
// control is left to the gateway in front of the service. Ingestion and
// title removal change cached listings and run inv.
func registerAdmin(g *echo.Group, h *handler.AdminHandler, inv []echo.MiddlewareFunc) {
	a := g.Group("/admin")
	a.POST("/ingest", h.Ingest, inv...)
	a.GET("/runs", h.Runs)
	a.GET("/errors", h.Errors)
	a.DELETE("/titles/:kind/:id", h.RemoveTitle, inv...)
}
