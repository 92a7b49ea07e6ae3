package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/pipeline"
	"econ-calendar-bot/internal/scheduler"
	"econ-calendar-bot/internal/store"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	once := flag.String("once", "", "run a single job and exit: digest|poll|remind")
	dry := flag.Bool("dry", false, "print notifications to stdout and never commit posted state")
	flag.Parse()

	must(initializeSystem())
	defer logger.Sync()
	defer shutdownTracer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	must(err)

	jr, err := initializeJournal(ctx, cfg)
	must(err)

	st, closePosted, err := initializePosted(ctx, cfg)
	must(err)
	defer closePosted()

	sink, closeSink, err := initializeSink(ctx, cfg, jr, *dry)
	must(err)
	defer closeSink()

	rec := initializeMetrics(ctx, cfg)

	pl, err := pipeline.New(cfg, st, initializeProvider(ctx, cfg), sink,
		pipeline.WithInferrer(initializeInferrer(ctx, cfg)),
		pipeline.WithMetrics(rec),
		pipeline.WithDryRun(*dry),
	)
	must(err)

	if *once != "" {
		if err := runOnce(ctx, cfg, pl, *once); err != nil {
			logger.ErrorWithErr(ctx, "Single run failed", err, "job", *once)
			os.Exit(1)
		}
		return
	}

	sched, err := scheduler.New(cfg, pl, scheduler.WithMetrics(rec))
	must(err)

	logger.Info(ctx, "Bot started", "version", version, "dry_run", *dry)
	if err := sched.Run(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Scheduler stopped with error", err)
	}
	logger.Info(ctx, "Shutting down")
}

// runOnce executes one job immediately, ignoring the active window.
func runOnce(ctx context.Context, cfg *store.Config, pl *pipeline.Pipeline, job string) error {
	sched, err := scheduler.New(cfg, pl)
	if err != nil {
		return err
	}
	dates := sched.LiveDates(pl.Now())

	switch job {
	case "digest":
		_, err := pl.Digest(ctx, scheduler.Tomorrow(pl.Now()))
		return err
	case "poll":
		res, err := pl.Poll(ctx, cfg.Reminder.Enabled, dates...)
		if err != nil {
			return err
		}
		logger.Info(ctx, "Poll finished", "fetched", res.Fetched, "emitted", res.Emitted())
		return nil
	case "remind":
		res, err := pl.Remind(ctx, dates...)
		if err != nil {
			return err
		}
		logger.Info(ctx, "Reminder run finished", "reminded", res.Reminded)
		return nil
	default:
		return fmt.Errorf("unknown job '%s' (want digest, poll or remind)", job)
	}
}
