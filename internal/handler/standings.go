package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tournament-checkin/internal/middleware"
	"github.com/iliyamo/tournament-checkin/internal/service"
)

// StandingsHandler serves gated, ranked standings.
type StandingsHandler struct {
	Tournaments TournamentReader
	Projector   *service.StandingsProjector
	Logger      *slog.Logger
}

// NewStandingsHandler panics if a dependency is nil.
func NewStandingsHandler(tournaments TournamentReader, p *service.StandingsProjector, logger *slog.Logger) *StandingsHandler {
	if tournaments == nil || p == nil || logger == nil {
		panic("nil dependency passed to NewStandingsHandler")
	}
	return &StandingsHandler{Tournaments: tournaments, Projector: p, Logger: logger}
}

// List handles GET /v1/tournaments/:tournament/standings/:kind. The
// optional ?category= restricts speakers to a speaker category and teams
// to a break category.
func (h *StandingsHandler) List(c echo.Context) error {
	kind, ok := service.StandingsKindByName(c.Param("kind"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown standings kind"})
	}
	var category *uint64
	if raw := c.QueryParam("category"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
		}
		category = &id
	}
	t, err := loadTournament(c, h.Tournaments)
	if err != nil {
		return respondError(c, h.Logger, err, "tournament")
	}
	entries, err := h.Projector.Standings(c.Request().Context(), t, kind, category, middleware.Requester(c))
	if err != nil {
		return respondError(c, h.Logger, err, "standings")
	}
	return c.JSON(http.StatusOK, entries)
}
