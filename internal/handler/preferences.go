package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// PreferenceStore reads and writes tournament preferences.
type PreferenceStore interface {
	GetPreference(ctx context.Context, tournamentID uint64, key model.PrefKey) (string, bool, error)
	SetPreference(ctx context.Context, tournamentID uint64, key model.PrefKey, value string) error
}

// PreferenceHandler lets administrators read and change release and
// check-in window preferences. Changes apply to the next request; nothing
// caches them.
type PreferenceHandler struct {
	Tournaments TournamentReader
	Prefs       PreferenceStore
	Logger      *slog.Logger
}

// NewPreferenceHandler panics if a dependency is nil. prefs is used for
// both reads and writes.
func NewPreferenceHandler(tournaments TournamentReader, prefs PreferenceStore, logger *slog.Logger) *PreferenceHandler {
	if tournaments == nil || prefs == nil || logger == nil {
		panic("nil dependency passed to NewPreferenceHandler")
	}
	return &PreferenceHandler{Tournaments: tournaments, Prefs: prefs, Logger: logger}
}

type preferenceBody struct {
	Key   model.PrefKey `json:"key"`
	Value string        `json:"value"`
	Set   bool          `json:"set"`
}

func prefKey(c echo.Context) (model.PrefKey, bool) {
	key := model.PrefKey(c.Param("key"))
	return key, model.KnownPrefKeys[key]
}

// Get handles GET /v1/tournaments/:tournament/preferences/:key.
func (h *PreferenceHandler) Get(c echo.Context) error {
	key, ok := prefKey(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown preference"})
	}
	t, err := loadTournament(c, h.Tournaments)
	if err != nil {
		return respondError(c, h.Logger, err, "tournament")
	}
	v, set, err := h.Prefs.GetPreference(c.Request().Context(), t.ID, key)
	if err != nil {
		return respondError(c, h.Logger, err, "preference")
	}
	return c.JSON(http.StatusOK, preferenceBody{Key: key, Value: v, Set: set})
}

// Put handles PUT /v1/tournaments/:tournament/preferences/:key with body
// {"value": "..."}. Release preferences accept off, current and
// all-released; window preferences accept a positive number of hours.
func (h *PreferenceHandler) Put(c echo.Context) error {
	key, ok := prefKey(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown preference"})
	}
	var body preferenceBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	value, ok := normalisePreference(key, body.Value)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid value for " + string(key)})
	}
	t, err := loadTournament(c, h.Tournaments)
	if err != nil {
		return respondError(c, h.Logger, err, "tournament")
	}
	if err := h.Prefs.SetPreference(c.Request().Context(), t.ID, key, value); err != nil {
		return respondError(c, h.Logger, err, "preference")
	}
	h.Logger.Info("preference updated", "tournament", t.Slug, "key", key, "value", value)
	return c.JSON(http.StatusOK, preferenceBody{Key: key, Value: value, Set: true})
}

func normalisePreference(key model.PrefKey, raw string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if model.IsReleasePrefKey(key) {
		switch model.ReleasePreference(v) {
		case model.ReleaseOff, model.ReleaseCurrent, model.ReleaseAllReleased:
			return v, true
		}
		return "", false
	}
	if _, ok := model.ParseWindowHours(v); !ok {
		return "", false
	}
	return v, true
}
