package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"installment_app_echo/internal/bootstrap"
	"installment_app_echo/internal/config"
	"installment_app_echo/internal/logger"
	"installment_app_echo/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logger")
	}
	workerLog := logger.WithComponent("worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		workerLog.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer app.Close()

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry, app.TaskDependencies())
	workerLog.Info().Strs("tasks", registry.Names()).Msg("Registered tasks")

	scan, created, err := tasks.EnsureOverdueScan(ctx, app.DB, cfg.OverdueScanRule, time.Now())
	if err != nil {
		workerLog.Fatal().Err(err).Msg("Failed to schedule overdue scan")
	}
	if created {
		workerLog.Info().Time("due", scan.Due).Msg("Scheduled recurring overdue scan")
	}

	runner := tasks.NewRunner(app.DB, registry, app.Cache)
	tick := func() {
		if _, err := runner.RunDue(ctx); err != nil {
			workerLog.Error().Err(err).Msg("Task run failed")
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.WorkerSchedule, tick); err != nil {
		workerLog.Fatal().Err(err).Str("schedule", cfg.WorkerSchedule).Msg("Invalid worker schedule")
	}

	// Run once immediately so pending tasks do not wait for the first tick
	tick()
	c.Start()
	workerLog.Info().Str("schedule", cfg.WorkerSchedule).Msg("Worker started")

	<-ctx.Done()
	workerLog.Info().Msg("Shutting down worker...")
	<-c.Stop().Done()
}
