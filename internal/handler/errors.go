// Package handler is the thin HTTP adapter over the catalog services. It
// parses parameters, calls one service method and renders the result or an
// error body of the form {"error": <kind>, "message": <text>}.
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/model"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindConstraint:        http.StatusConflict,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindSourceUnavailable: http.StatusServiceUnavailable,
	apperr.KindTimeout:           http.StatusGatewayTimeout,
}

// respondError renders err by kind. Driver text never reaches the client;
// internal errors are logged with the route instead.
func respondError(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
		kind = apperr.KindInternal
		log := logging.Component("http")
		log.Error().Err(err).Str("method", c.Request().Method).Str("route", c.Path()).Msg("request failed")
	}
	return c.JSON(status, echo.Map{"error": string(kind), "message": apperr.MessageOf(err)})
}

func badRequest(c echo.Context, msg string) error {
	return respondError(c, apperr.Validation(msg))
}

// intQuery reads an optional integer query parameter; absent is 0.
func intQuery(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name + " must be an integer")
	}
	return n, nil
}

func idParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(name + " must be a positive integer")
	}
	return id, nil
}

// subjectParams reads :kind and :id.
func subjectParams(c echo.Context) (model.Subject, error) {
	kind, err := model.ParseKind(c.Param("kind"))
	if err != nil {
		return model.Subject{}, apperr.Validation("kind must be one of [movie tv]")
	}
	id, err := idParam(c, "id")
	if err != nil {
		return model.Subject{}, err
	}
	return model.Subject{Kind: kind, ID: id}, nil
}
