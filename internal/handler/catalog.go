package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-tracker/internal/model"
	"github.com/iliyamo/movie-tracker/internal/service"
)

type catalogReader interface {
	Summary(ctx context.Context, topN int) (model.Summary, error)
	List(ctx context.Context, q service.ListQuery) (model.ListPage, error)
	Trending(ctx context.Context, period string, limit int) ([]model.TrendingItem, error)
	NewReleases(ctx context.Context, limit int, kind string) ([]model.TitleItem, error)
	Search(ctx context.Context, q string, page int, withOverview bool) (model.SearchPage, error)
	Movie(ctx context.Context, id uint64) (model.MovieDetail, error)
	Show(ctx context.Context, id uint64) (model.ShowDetail, error)
	Seasons(ctx context.Context, showID uint64) ([]model.Season, error)
	Comments(ctx context.Context, subj model.Subject) ([]*model.Comment, error)
	RecentRuns(ctx context.Context, limit int) ([]model.ETLRun, error)
	ReviewStats(ctx context.Context, days, topN int) (model.ReviewStats, error)
}

// CatalogHandler serves the read-only catalog endpoints.
type CatalogHandler struct {
	catalog catalogReader
}

func NewCatalogHandler(catalog catalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Summary handles GET /v1/summary?top=N.
func (h *CatalogHandler) Summary(c echo.Context) error {
	top, err := intQuery(c, "top")
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.catalog.Summary(c.Request().Context(), top)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ReviewStats handles GET /v1/stats/reviews?days=N&top=N.
func (h *CatalogHandler) ReviewStats(c echo.Context) error {
	days, err := intQuery(c, "days")
	if err != nil {
		return respondError(c, err)
	}
	top, err := intQuery(c, "top")
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.catalog.ReviewStats(c.Request().Context(), days, top)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// List handles GET /v1/titles/:kind?sort=&page=&limit=.
func (h *CatalogHandler) List(c echo.Context) error {
	page, err := intQuery(c, "page")
	if err != nil {
		return respondError(c, err)
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.catalog.List(c.Request().Context(), service.ListQuery{
		Kind:  c.Param("kind"),
		Sort:  c.QueryParam("sort"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Trending handles GET /v1/trending?period=weekly|monthly|all&limit=.
func (h *CatalogHandler) Trending(c echo.Context) error {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	items, err := h.catalog.Trending(c.Request().Context(), c.QueryParam("period"), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"period": periodOrDefault(c.QueryParam("period")), "items": items})
}

// NewReleases handles GET /v1/new-releases?kind=&limit=.
func (h *CatalogHandler) NewReleases(c echo.Context) error {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	items, err := h.catalog.NewReleases(c.Request().Context(), limit, c.QueryParam("kind"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Search handles GET /v1/search?q=&page=&overview=true.
func (h *CatalogHandler) Search(c echo.Context) error {
	page, err := intQuery(c, "page")
	if err != nil {
		return respondError(c, err)
	}
	withOverview := false
	if raw := c.QueryParam("overview"); raw != "" {
		if withOverview, err = strconv.ParseBool(raw); err != nil {
			return badRequest(c, "overview must be a boolean")
		}
	}
	out, err := h.catalog.Search(c.Request().Context(), c.QueryParam("q"), page, withOverview)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Movie handles GET /v1/movies/:id.
func (h *CatalogHandler) Movie(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.catalog.Movie(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Show handles GET /v1/shows/:id.
func (h *CatalogHandler) Show(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.catalog.Show(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Seasons handles GET /v1/shows/:id/seasons.
func (h *CatalogHandler) Seasons(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	seasons, err := h.catalog.Seasons(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"show_id": id, "seasons": seasons})
}

// Comments handles GET /v1/:kind/:id/comments and returns the thread tree.
func (h *CatalogHandler) Comments(c echo.Context) error {
	subj, err := subjectParams(c)
	if err != nil {
		return respondError(c, err)
	}
	thread, err := h.catalog.Comments(c.Request().Context(), subj)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"subject": subj, "comments": thread})
}

func periodOrDefault(p string) string {
	if p == "" {
		return "weekly"
	}
	return p
}
