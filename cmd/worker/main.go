package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/clipvault-dev/clipvault/internal/config"
	"github.com/clipvault-dev/clipvault/internal/logger"
	"github.com/clipvault-dev/clipvault/internal/media"
	"github.com/clipvault-dev/clipvault/internal/metrics"
	"github.com/clipvault-dev/clipvault/internal/server"
	"github.com/clipvault-dev/clipvault/internal/tasks"
	"github.com/clipvault-dev/clipvault/internal/videos"
	"github.com/clipvault-dev/clipvault/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	log.Info().Str("version", version).Msg("Starting clipvault Asynq worker")

	db, err := server.OpenDatabase(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	host, err := media.New(cfg.Media)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize media host")
	}

	// Initialize Asynq client and inspector (used by the purge sweep to re-enqueue)
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	asynqInspector := asynq.NewInspector(redisOpt)
	defer asynqInspector.Close()
	enqueuer := tasks.NewEnqueuer(asynqClient, asynqInspector)

	service := videos.NewService(db, host, enqueuer, metrics.New(), log)

	// Initialize Asynq server
	asynqServer := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10, // Number of concurrent workers
			Queues: map[string]int{
				tasks.DefaultQueue: 1,
			},
			// Logging
			Logger: &asynqLogger{log: log},
		},
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeMediaDestroy, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandleMediaDestroy(ctx, t, service, log)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Re-enqueue deletions whose destroy task never ran
	sweeper := workers.NewPurgeSweeper(service, enqueuer, cfg.Worker.PurgeGrace, log)
	if err := workers.StartPurgeScheduler(ctx, cfg.Worker.PurgeSchedule, sweeper, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to start purge scheduler")
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Info().Msg("Starting Asynq worker server...")
		if err := asynqServer.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("Asynq worker server failed")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")
	cancel()

	// Shutdown Asynq server gracefully
	log.Info().Msg("Stopping Asynq worker - waiting for tasks to finish (30s timeout)...")
	asynqServer.Shutdown()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("Worker shutdown complete")
}

// asynqLogger is a wrapper to make zerolog compatible with Asynq's logger interface
type asynqLogger struct {
	log zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.log.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Fatal().Msg(fmt.Sprint(args...))
}
