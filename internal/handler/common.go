package handler // handler defines http handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/repository"
)

// TournamentReader resolves the :tournament path segment.
type TournamentReader interface {
	GetBySlug(ctx context.Context, slug string) (*model.Tournament, error)
}

// loadTournament resolves :tournament. An unknown slug is ErrNotFound.
func loadTournament(c echo.Context, tournaments TournamentReader) (*model.Tournament, error) {
	return tournaments.GetBySlug(c.Request().Context(), c.Param("tournament"))
}

// parseID parses a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// respondError maps service and repository errors onto the JSON error
// shape used by every handler. Unexpected errors are logged and hidden.
func respondError(c echo.Context, logger *slog.Logger, err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
	case errors.Is(err, repository.ErrPermissionDenied):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not released"})
	case errors.Is(err, context.Canceled):
		return c.NoContent(499)
	}
	logger.Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// objectURL is the absolute reference to a checkable in API responses.
func objectURL(c echo.Context, t *model.Tournament, collection string, id uint64) string {
	scheme := c.Scheme()
	return scheme + "://" + c.Request().Host + "/v1/tournaments/" + t.Slug + "/" + collection + "/" + strconv.FormatUint(id, 10)
}
