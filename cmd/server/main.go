package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/movie-tracker/internal/app"
	"github.com/iliyamo/movie-tracker/internal/config"
	"github.com/iliyamo/movie-tracker/internal/handler"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/middleware"
	"github.com/iliyamo/movie-tracker/internal/queue"
	"github.com/iliyamo/movie-tracker/internal/router"
	"github.com/iliyamo/movie-tracker/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	app.InitLogging(cfg)
	etl := config.LoadETLConfig()
	broker := config.LoadBrokerConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()

	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	var cache, invalidate, limiter echo.MiddlewareFunc
	purge := func(ctx context.Context) (int64, error) {
		if rdb == nil {
			return 0, nil
		}
		return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix)
	}
	if rdb == nil {
		logging.Warn().Msg("redis unreachable; response cache and rate limit disabled")
	} else {
		defer rdb.Close()
		cache = middleware.NewRedisCache(cacheCfg, rdb)
		invalidate = middleware.InvalidateOnSuccess(purge)
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	}

	if etl.PublishEvents {
		consumer := queue.NewConsumer(broker, purge)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("ingestion consumer stopped")
			}
		}()
	}

	svc := app.NewServices(db, cfg)
	ingestion := service.NewIngestionService(app.NewEngine(db, cfg, etl, broker), 0)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	router.RegisterRoutes(e, router.Deps{
		DB:         db,
		Catalog:    handler.NewCatalogHandler(svc.Catalog),
		Commands:   handler.NewCommandHandler(svc.Commands),
		Admin:      handler.NewAdminHandler(ingestion, svc.Commands, svc.Catalog, etl.Pages),
		Cache:      cache,
		Invalidate: invalidate,
		RateLimit:  limiter,
	})

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown")
	}
}
