package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tournament-checkin/internal/middleware"
	"github.com/iliyamo/tournament-checkin/internal/service"
)

// PairingHandler serves a round's draw behind the public_draw gate.
type PairingHandler struct {
	Tournaments TournamentReader
	Service     *service.PairingService
	Logger      *slog.Logger
}

// NewPairingHandler panics if a dependency is nil.
func NewPairingHandler(tournaments TournamentReader, svc *service.PairingService, logger *slog.Logger) *PairingHandler {
	if tournaments == nil || svc == nil || logger == nil {
		panic("nil dependency passed to NewPairingHandler")
	}
	return &PairingHandler{Tournaments: tournaments, Service: svc, Logger: logger}
}

// Round handles GET /v1/tournaments/:tournament/pairing/:round.
func (h *PairingHandler) Round(c echo.Context) error {
	roundID, ok := parseID(c, "round")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid round id"})
	}
	t, err := loadTournament(c, h.Tournaments)
	if err != nil {
		return respondError(c, h.Logger, err, "tournament")
	}
	pairings, err := h.Service.RoundPairings(c.Request().Context(), t, roundID, middleware.Requester(c))
	if err != nil {
		return respondError(c, h.Logger, err, "round")
	}
	return c.JSON(http.StatusOK, pairings)
}
