package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/middleware"
	"github.com/iliyamo/movie-tracker/internal/model"
	"github.com/iliyamo/movie-tracker/internal/service"
)

type commander interface {
	AddReview(ctx context.Context, in service.ReviewInput) (service.ReviewResult, error)
	AddToWatchlist(ctx context.Context, in service.WatchlistInput) (bool, error)
	RemoveFromWatchlist(ctx context.Context, in service.WatchlistInput) (bool, error)
	Watchlist(ctx context.Context, userID uint64) ([]model.WatchlistEntry, error)
	AddComment(ctx context.Context, in service.CommentInput) (uint64, error)
	RegisterUser(ctx context.Context, in service.RegisterInput) (uint64, error)
}

// CommandHandler serves the user-facing write endpoints. The acting user is
// taken from the identity middleware, never from the request body.
type CommandHandler struct {
	commands commander
}

func NewCommandHandler(commands commander) *CommandHandler {
	return &CommandHandler{commands: commands}
}

type titleRef struct {
	Kind    string `json:"kind"`
	TitleID uint64 `json:"title_id"`
}

type reviewRequest struct {
	titleRef
	Rating float64 `json:"rating"`
	Body   string  `json:"body"`
}

type commentRequest struct {
	titleRef
	ParentID *uint64 `json:"parent_id"`
	Body     string  `json:"body"`
}

// AddReview handles POST /v1/reviews. 201 for a new review, 200 when an
// existing one was replaced.
func (h *CommandHandler) AddReview(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	uid, _ := middleware.UserID(c)
	res, err := h.commands.AddReview(c.Request().Context(), service.ReviewInput{
		UserID: uid, Kind: req.Kind, TitleID: req.TitleID, Rating: req.Rating, Body: req.Body,
	})
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}

// AddToWatchlist handles POST /v1/watchlist.
func (h *CommandHandler) AddToWatchlist(c echo.Context) error {
	in, err := h.watchlistInput(c)
	if err != nil {
		return respondError(c, err)
	}
	added, err := h.commands.AddToWatchlist(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"added": added})
}

// RemoveFromWatchlist handles DELETE /v1/watchlist.
func (h *CommandHandler) RemoveFromWatchlist(c echo.Context) error {
	in, err := h.watchlistInput(c)
	if err != nil {
		return respondError(c, err)
	}
	removed, err := h.commands.RemoveFromWatchlist(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}

// Watchlist handles GET /v1/watchlist.
func (h *CommandHandler) Watchlist(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	items, err := h.commands.Watchlist(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *CommandHandler) watchlistInput(c echo.Context) (service.WatchlistInput, error) {
	var req titleRef
	if err := c.Bind(&req); err != nil {
		return service.WatchlistInput{}, apperr.Validation("invalid JSON body")
	}
	uid, _ := middleware.UserID(c)
	return service.WatchlistInput{UserID: uid, Kind: req.Kind, TitleID: req.TitleID}, nil
}

// AddComment handles POST /v1/comments.
func (h *CommandHandler) AddComment(c echo.Context) error {
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	uid, _ := middleware.UserID(c)
	id, err := h.commands.AddComment(c.Request().Context(), service.CommentInput{
		UserID: uid, Kind: req.Kind, TitleID: req.TitleID, ParentID: req.ParentID, Body: req.Body,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Register handles POST /v1/users.
func (h *CommandHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	id, err := h.commands.RegisterUser(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}
