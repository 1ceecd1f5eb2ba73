package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/tournament-checkin/internal/config"
	"github.com/iliyamo/tournament-checkin/internal/handler"
	"github.com/iliyamo/tournament-checkin/internal/lock"
	"github.com/iliyamo/tournament-checkin/internal/metrics"
	"github.com/iliyamo/tournament-checkin/internal/middleware"
	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/queue"
	"github.com/iliyamo/tournament-checkin/internal/realtime"
	"github.com/iliyamo/tournament-checkin/internal/router"
	"github.com/iliyamo/tournament-checkin/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	ckCfg := config.LoadCheckInConfig()
	rlCfg := config.LoadRateLimitConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.close()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and toggle lock disabled")
	} else {
		defer rdb.Close()
	}

	m := metrics.New()

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	// Broadcasts go straight to the local hub unless RabbitMQ is
	// configured, in which case every replica publishes to the exchange
	// and each replica's consumer feeds its own hub.
	var publisher service.Publisher = hub
	var amqpPub *queue.Publisher
	if ckCfg.RabbitMQURL != "" {
		amqpPub = queue.NewPublisher(ckCfg.RabbitMQURL, logger)
		publisher = amqpPub
		consumer := queue.NewConsumer(ckCfg.RabbitMQURL, hub, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("broadcast consumer stopped", "error", err)
			}
		}()
		logger.Info("check-in broadcasts fanned out through rabbitmq", "exchange", queue.CheckInExchange)
	}

	common := []service.Option{service.WithLogger(logger), service.WithMetrics(m)}
	dispatcher := service.NewDispatcher(publisher, append(common, service.WithPublishTimeout(ckCfg.BroadcastTimeout))...)
	registry := service.NewRegistry(st.identifiers, st.events, common...)

	ckOpts := append([]service.Option{
		service.WithDefaultWindow(model.PrefCheckInWindowPeople, ckCfg.PeopleWindow),
		service.WithDefaultWindow(model.PrefCheckInWindowVenues, ckCfg.VenueWindow),
	}, common...)
	if ckCfg.ToggleLock && rdb != nil {
		ckOpts = append(ckOpts, service.WithLocker(lock.NewRedisLocker(rdb, "lock:checkin", ckCfg.ToggleLockTTL)))
	}
	checkins := service.NewCheckInService(st.checkables, st.identifiers, registry, st.prefs, dispatcher, ckOpts...)
	pairings := service.NewPairingService(st.rounds, st.prefs, st.pairings, common...)
	standings := service.NewStandingsProjector(st.rounds, st.prefs, st.scores, common...)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))

	var limiter echo.MiddlewareFunc
	if rdb != nil {
		limiter = middleware.NewTokenBucket(rlCfg, rdb, logger)
	}
	router.Register(e, router.Handlers{
		Health:      handler.Health(st.pinger),
		CheckIn:     handler.NewCheckInHandler(st.tournaments, checkins, hub, logger),
		Standings:   handler.NewStandingsHandler(st.tournaments, standings, logger),
		Pairing:     handler.NewPairingHandler(st.tournaments, pairings, logger),
		Preferences: handler.NewPreferenceHandler(st.tournaments, st.prefs, logger),
	}, cfg.JWTSecret, limiter)
	router.RegisterMetrics(e, prometheus.DefaultGatherer)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.Store)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	dispatcher.Wait()
	if amqpPub != nil {
		if err := amqpPub.Close(); err != nil {
			logger.Warn("close rabbitmq publisher", "error", err)
		}
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				logger.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	})
}
