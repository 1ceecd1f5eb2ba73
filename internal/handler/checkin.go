package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tournament-checkin/internal/middleware"
	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/realtime"
	"github.com/iliyamo/tournament-checkin/internal/service"
)

// CheckInHandler exposes check-in status, writes and identifier creation
// for adjudicators, speakers and venues, plus the live update stream. All
// routes are for administrators; middleware enforces that.
type CheckInHandler struct {
	Tournaments TournamentReader
	Service     *service.CheckInService
	Hub         *realtime.Hub
	Logger      *slog.Logger
}

// NewCheckInHandler panics if a required dependency is nil. hub may be
// nil, in which case the stream route answers 503.
func NewCheckInHandler(tournaments TournamentReader, svc *service.CheckInService, hub *realtime.Hub, logger *slog.Logger) *CheckInHandler {
	if tournaments == nil || svc == nil || logger == nil {
		panic("nil dependency passed to NewCheckInHandler")
	}
	return &CheckInHandler{Tournaments: tournaments, Service: svc, Hub: hub, Logger: logger}
}

type checkInResponse struct {
	Object  string `json:"object"`
	Barcode string `json:"barcode"`
	Checked bool   `json:"checked"`
}

type createRequest struct {
	IDs []uint64 `json:"ids"`
}

func (h *CheckInHandler) render(c echo.Context, t *model.Tournament, rk service.ResourceKind, st service.Status) checkInResponse {
	return checkInResponse{
		Object:  objectURL(c, t, rk.Collection, st.Checkable.ID),
		Barcode: st.Identifier.Barcode,
		Checked: st.Checked,
	}
}

// target resolves :tournament, :kind and :id. On failure it has already
// written the response and returns ok=false.
func (h *CheckInHandler) target(c echo.Context, withID bool) (*model.Tournament, service.ResourceKind, uint64, bool, error) {
	rk, ok := service.ResourceKindByCollection(c.Param("kind"))
	if !ok {
		return nil, rk, 0, false, c.JSON(http.StatusNotFound, echo.Map{"error": "unknown check-in kind"})
	}
	var id uint64
	if withID {
		if id, ok = parseID(c, "id"); !ok {
			return nil, rk, 0, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
	}
	t, err := loadTournament(c, h.Tournaments)
	if err != nil {
		return nil, rk, 0, false, respondError(c, h.Logger, err, "tournament")
	}
	return t, rk, id, true, nil
}

type checkInOp func(c echo.Context, t *model.Tournament, rk service.ResourceKind, id, actor uint64) (service.Status, error)

func (h *CheckInHandler) handle(c echo.Context, op checkInOp) error {
	t, rk, id, ok, err := h.target(c, true)
	if !ok {
		return err
	}
	st, err := op(c, t, rk, id, middleware.Requester(c).UserID)
	if err != nil {
		return respondError(c, h.Logger, err, "check-in identifier")
	}
	return c.JSON(http.StatusOK, h.render(c, t, rk, st))
}

// Get handles GET /v1/tournaments/:tournament/checkin/:kind/:id.
func (h *CheckInHandler) Get(c echo.Context) error {
	return h.handle(c, func(c echo.Context, t *model.Tournament, rk service.ResourceKind, id, _ uint64) (service.Status, error) {
		return h.Service.Get(c.Request().Context(), t, rk, id)
	})
}

type scanResponse struct {
	checkInResponse
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// Scan handles GET .../checkin/scan/:barcode, used by barcode scanners
// that know the code but not what it belongs to.
func (h *CheckInHandler) Scan(c echo.Context) error {
	t, err := loadTournament(c, h.Tournaments)
	if err != nil {
		return respondError(c, h.Logger, err, "tournament")
	}
	rk, st, err := h.Service.Scan(c.Request().Context(), t, c.Param("barcode"))
	if err != nil {
		return respondError(c, h.Logger, err, "check-in identifier")
	}
	return c.JSON(http.StatusOK, scanResponse{
		checkInResponse: h.render(c, t, rk, st),
		Kind:            string(rk.Kind),
		Name:            st.Checkable.Name,
	})
}

// CheckIn handles PUT: the checkable is checked in regardless of its
// current status.
func (h *CheckInHandler) CheckIn(c echo.Context) error {
	return h.handle(c, func(c echo.Context, t *model.Tournament, rk service.ResourceKind, id, actor uint64) (service.Status, error) {
		return h.Service.CheckIn(c.Request().Context(), t, rk, id, actor)
	})
}

// CheckOut handles DELETE.
func (h *CheckInHandler) CheckOut(c echo.Context) error {
	return h.handle(c, func(c echo.Context, t *model.Tournament, rk service.ResourceKind, id, actor uint64) (service.Status, error) {
		return h.Service.CheckOut(c.Request().Context(), t, rk, id, actor)
	})
}

// Toggle handles PATCH.
func (h *CheckInHandler) Toggle(c echo.Context) error {
	return h.handle(c, func(c echo.Context, t *model.Tournament, rk service.ResourceKind, id, actor uint64) (service.Status, error) {
		return h.Service.Toggle(c.Request().Context(), t, rk, id, actor)
	})
}

// Create handles POST .../checkin/:kind/:id: attach an identifier to one
// checkable. Repeating the call returns the existing barcode. The status
// is always 201 and checked is always false.
func (h *CheckInHandler) Create(c echo.Context) error {
	t, rk, id, ok, err := h.target(c, true)
	if !ok {
		return err
	}
	sts, err := h.Service.CreateIdentifiers(c.Request().Context(), t, rk, []uint64{id}, middleware.Requester(c).UserID)
	if err != nil {
		return respondError(c, h.Logger, err, string(rk.Kind))
	}
	return c.JSON(http.StatusCreated, h.render(c, t, rk, sts[0]))
}

// CreateBulk handles POST .../checkin/:kind. With {"ids": [...]} it
// creates identifiers for exactly those checkables (all must exist);
// without ids it covers every checkable of the kind in the tournament.
func (h *CheckInHandler) CreateBulk(c echo.Context) error {
	t, rk, _, ok, err := h.target(c, false)
	if !ok {
		return err
	}
	var body createRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	actor := middleware.Requester(c).UserID

	var sts []service.Status
	if len(body.IDs) > 0 {
		sts, err = h.Service.CreateIdentifiers(ctx, t, rk, body.IDs, actor)
	} else {
		sts, err = h.Service.CreateAllIdentifiers(ctx, t, rk, actor)
	}
	if err != nil {
		return respondError(c, h.Logger, err, string(rk.Kind))
	}
	out := make([]checkInResponse, 0, len(sts))
	for _, st := range sts {
		out = append(out, h.render(c, t, rk, st))
	}
	return c.JSON(http.StatusCreated, out)
}

// Stream handles GET .../checkin/ws: a WebSocket receiving every check-in
// broadcast of the tournament.
func (h *CheckInHandler) Stream(c echo.Context) error {
	if h.Hub == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "live updates disabled"})
	}
	t, err := loadTournament(c, h.Tournaments)
	if err != nil {
		return respondError(c, h.Logger, err, "tournament")
	}
	if err := h.Hub.Serve(c.Response(), c.Request(), t.Slug); err != nil {
		h.Logger.Debug("websocket closed", "tournament", t.Slug, "error", err)
	}
	return nil
}
