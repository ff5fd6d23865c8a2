package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"podstudio/internal/adapter/repo"
	"podstudio/internal/bootstrap"
	"podstudio/internal/http/handlers"
	"podstudio/internal/http/httpapi"
	"podstudio/internal/infra"
	"podstudio/internal/infra/credentials"
	"podstudio/internal/infra/geoip"
	"podstudio/internal/middleware"
	"podstudio/internal/session"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if err := cfg.RequireAPI(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	pipe, err := bootstrap.Build(ctx, cfg, &logger, credentials.NewStore(runner), repo.NewDesignRepository(runner))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("geoip disabled")
	case resolver != nil:
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		Sessions: session.NewStore(cfg.SessionTTL, &logger),
		Flow:     pipe.Flow,
		Gateway:  pipe.Gateway,
		Catalog:  pipe.Catalog,
		Logger:   &logger,
	}

	staticDir := ""
	if cfg.StorageDriver == "file" {
		staticDir = cfg.StoragePath
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   "en",
		CountryLookup:   countryLookup,
		StaticDir:       staticDir,
		Logger:          &logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("api listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// In-flight renders may be polling; give them the write timeout to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPWriteTimeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	_ = resolver.Close()
	logger.Info().Msg("server stopped")
}
