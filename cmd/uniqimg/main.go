package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/artemlk/uniqimg/internal/config"
	"github.com/artemlk/uniqimg/internal/model"
	"github.com/artemlk/uniqimg/internal/pipeline"
	"github.com/artemlk/uniqimg/internal/publish"
)

func main() {
	// Context & signals: stop submitting new tasks on interrupt; in-flight
	// tasks run to completion and still make it into the report.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "./config/config.yml", "path to the job config file")
	flag.Parse()

	zlog.Init()
	cfg := config.MustLoad(*configPath)

	// Progress sink: one log line per finished task.
	progress := func(u model.ProgressUpdate) {
		zlog.Logger.Info().
			Int("completed", u.Completed).
			Int("total", u.Total).
			Str("status", u.Status).
			Msg("task finished")
	}

	batch, err := pipeline.New(cfg, progress).Run(ctx)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("batch failed")
	}

	ev := zlog.Logger.Info().
		Str("batch_id", batch.ID.String()).
		Str("report", batch.ReportPath)
	for _, status := range model.Statuses {
		if n := batch.Summary[status]; n > 0 {
			ev = ev.Int(status, n)
		}
	}
	ev.Msg("batch finished")

	// Retry strategy for publisher calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	if cfg.Publish.Enabled {
		uploader, err := publish.NewUploader(ctx, cfg.Publish, strategy)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
		}
		if err := uploader.UploadBatch(ctx, batch, cfg.Output.Dir); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to upload batch")
		}
	}

	if cfg.Events.Enabled {
		events := publish.NewEvents(cfg.Events, strategy)
		if err := events.PublishBatch(ctx, batch); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to publish batch event")
		}
		if err := events.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
}
