package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"studio/internal/bootstrap"
	"studio/internal/infra"
	"studio/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: bootstrap failed")
	}
	defer svc.Close()

	// Renders keep their own context so a signal lets the current scene
	// settle instead of abandoning a paid provider job.
	renderCtx, cancelRenders := context.WithCancel(context.Background())
	defer cancelRenders()

	sweeper := worker.New(worker.Options{
		Projects:   svc.Projects,
		Runner:     svc.Runner,
		Logger:     &logger,
		StaleAfter: svc.StaleAfter(),
	})

	c := cron.New()
	if _, err := sweeper.Schedule(renderCtx, c, cfg.RenderSweepSchedule); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.RenderSweepSchedule).Msg("worker: invalid sweep schedule")
	}
	c.Start()
	logger.Info().Str("schedule", cfg.RenderSweepSchedule).Msg("worker: started")

	<-ctx.Done()
	logger.Info().Msg("worker: stopping")
	sweeper.Stop()
	<-c.Stop().Done()
	logger.Info().Msg("worker: stopped")
}
