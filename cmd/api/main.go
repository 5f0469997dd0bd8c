package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/bootstrap"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/geoip"
	"studio/internal/render"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	svc, err := bootstrap.Build(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: bootstrap failed")
	}
	defer svc.Close()

	if _, err := svc.Runner.ResetStale(ctx, svc.StaleAfter()); err != nil {
		logger.Warn().Err(err).Msg("api: reset stale scenes")
	}

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}
	defer resolver.Close()

	batchCtx, cancelBatches := context.WithCancel(ctx)
	defer cancelBatches()

	app := &handlers.App{
		Logger:       &logger,
		Projects:     svc.Projects,
		Scenes:       svc.Scenes,
		Jobs:         svc.Jobs,
		Adapters:     svc.Adapters,
		Router:       svc.Router,
		Runner:       svc.Runner,
		Tracker:      render.NewTracker(nil),
		Estimator:    svc.Estimator,
		History:      svc.History,
		Writer:       svc.Writer,
		Blobs:        svc.Blobs,
		BatchContext: batchCtx,
	}
	if svc.Speech != nil {
		app.Speech = svc.Speech
	}
	if svc.Keyframes != nil {
		app.Keyframes = svc.Keyframes
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          &logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.Lookup(),
		RateLimitPerMin: cfg.RateLimitPerMin,
		MediaDir:        svc.MediaDir,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}

	// In-flight batches stop after their current scene settles; the poll
	// context is cut only when that outlasts the shutdown window.
	for _, projectID := range app.Tracker.Running() {
		app.Tracker.Cancel(projectID)
	}
	drained := make(chan struct{})
	go func() {
		app.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("api: aborting in-flight renders")
		cancelBatches()
		<-drained
	}
	logger.Info().Msg("api: stopped")
}
