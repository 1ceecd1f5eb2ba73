package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/tournament-checkin/internal/handler"
	"github.com/iliyamo/tournament-checkin/internal/middleware"
	"github.com/iliyamo/tournament-checkin/internal/model"
)

// Handlers bundles everything Register wires up.
type Handlers struct {
	Health      echo.HandlerFunc
	CheckIn     *handler.CheckInHandler
	Standings   *handler.StandingsHandler
	Pairing     *handler.PairingHandler
	Preferences *handler.PreferenceHandler
}

// Register mounts the API. Check-in and preference routes require an
// administrator token; standings and pairings accept an optional token
// and apply their release gates. limiter guards the check-in routes and
// may be nil.
func Register(e *echo.Echo, h Handlers, jwtSecret string, limiter echo.MiddlewareFunc) {
	e.GET("/healthz", h.Health)

	t := e.Group("/v1/tournaments/:tournament")

	// Public, gated per request. No response caching on these routes.
	public := t.Group("", middleware.OptionalJWT(jwtSecret))
	public.GET("/standings/:kind", h.Standings.List)
	public.GET("/pairing/:round", h.Pairing.Round)

	admin := t.Group("", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdministrator))
	admin.GET("/preferences/:key", h.Preferences.Get)
	admin.PUT("/preferences/:key", h.Preferences.Put)

	checkin := admin.Group("/checkin")
	checkin.GET("/ws", h.CheckIn.Stream)
	if limiter != nil {
		checkin.Use(limiter)
	}
	checkin.GET("/scan/:barcode", h.CheckIn.Scan)
	checkin.POST("/:kind", h.CheckIn.CreateBulk)
	checkin.GET("/:kind/:id", h.CheckIn.Get)
	checkin.PUT("/:kind/:id", h.CheckIn.CheckIn)
	checkin.DELETE("/:kind/:id", h.CheckIn.CheckOut)
	checkin.PATCH("/:kind/:id", h.CheckIn.Toggle)
	checkin.POST("/:kind/:id", h.CheckIn.Create)
}

// RegisterMetrics exposes the Prometheus registry at /metrics.
func RegisterMetrics(e *echo.Echo, g prometheus.Gatherer) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
