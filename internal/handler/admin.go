package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/ingest"
	"github.com/iliyamo/movie-tracker/internal/model"
	"github.com/iliyamo/movie-tracker/internal/service"
)

type ingestionRunner interface {
	Run(ctx context.Context, req service.IngestRequest) (ingest.Summary, error)
}

type titleRemover interface {
	RemoveTitle(ctx context.Context, subj model.Subject) error
}

type runLister interface {
	RecentRuns(ctx context.Context, limit int) ([]model.ETLRun, error)
	IngestionErrors(ctx context.Context, days, limit int) (service.ErrorReport, error)
}

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	ingestion ingestionRunner
	titles    titleRemover
	runs      runLister
	pages     int
}

// NewAdminHandler builds the handler. defaultPages applies when an ingest
// request names no page count.
func NewAdminHandler(ingestion ingestionRunner, titles titleRemover, runs runLister, defaultPages int) *AdminHandler {
	if defaultPages < 1 {
		defaultPages = 1
	}
	return &AdminHandler{ingestion: ingestion, titles: titles, runs: runs, pages: defaultPages}
}

// Ingest handles POST /v1/admin/ingest. The run executes in the request and
// its summary is returned. A run that started but ended failed or cancelled
// still answers with its summary, under the status of the error.
func (h *AdminHandler) Ingest(c echo.Context) error {
	var req service.IngestRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}
	if req.Pages == 0 {
		req.Pages = h.pages
	}
	sum, err := h.ingestion.Run(c.Request().Context(), req)
	if err != nil {
		if sum.RunID == "" {
			return respondError(c, err)
		}
		status, ok := statusByKind[apperr.KindOf(err)]
		if !ok {
			status = http.StatusInternalServerError
		}
		return c.JSON(status, sum)
	}
	return c.JSON(http.StatusOK, sum)
}

// RemoveTitle handles DELETE /v1/admin/titles/:kind/:id.
func (h *AdminHandler) RemoveTitle(c echo.Context) error {
	subj, err := subjectParams(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.titles.RemoveTitle(c.Request().Context(), subj); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Runs handles GET /v1/admin/runs?limit=N.
func (h *AdminHandler) Runs(c echo.Context) error {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	runs, err := h.runs.RecentRuns(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"runs": runs})
}

// Errors handles GET /v1/admin/errors?days=N&limit=N.
func (h *AdminHandler) Errors(c echo.Context) error {
	days, err := intQuery(c, "days")
	if err != nil {
		return respondError(c, err)
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return respondError(c, err)
	}
	rep, err := h.runs.IngestionErrors(c.Request().Context(), days, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}
