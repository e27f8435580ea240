package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"clipstream/server/internal/config"
	"clipstream/server/internal/database"
	"clipstream/server/internal/events"
	"clipstream/server/internal/handlers"
	"clipstream/server/internal/jobs"
	"clipstream/server/internal/log"
	"clipstream/server/internal/media/ffmpeg"
	"clipstream/server/internal/media/moderation"
	"clipstream/server/internal/media/transcode"
	"clipstream/server/internal/notify"
	"clipstream/server/internal/queue"
	"clipstream/server/internal/repository"
	"clipstream/server/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	mediaRepo := repository.NewPostgresMediaRepository(dbPool)
	hub := notify.NewHub()
	producer := events.NewProducer(cfg.Events.Brokers, cfg.Events.Topic, logger)

	engine := ffmpeg.NewEngine(cfg.Media.FFmpegPath, cfg.Media.FFprobePath, cfg.Media.StageTimeout, logger)
	scorer := moderation.NewScorer(engine, cfg.Moderation.SampleInterval, cfg.Moderation.FrameWidth, logger)
	pipeline := transcode.NewPipeline(mediaRepo, engine, scorer, producer, hub, cfg.Storage, cfg.Media, logger)
	jobQueue := queue.New(pipeline, hub, logger)

	scheduler := jobs.NewScheduler(cfg.Jobs, mediaRepo, producer, hub, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, mediaRepo, jobQueue, hub, dbPool)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, producer)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, producer *events.Producer) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop()

	if err := producer.Close(); err != nil {
		logger.Error().Err(err).Msg("event producer close error")
	}

	db.Close()

	logger.Info().Msg("server exited cleanly")
}
