package main

import (
	"context"

	"gorm.io/gorm"

	"github.com/commitlens/commitlens/internal/analysis"
	"github.com/commitlens/commitlens/internal/config"
	"github.com/commitlens/commitlens/internal/handlers"
	"github.com/commitlens/commitlens/internal/models"
	"github.com/commitlens/commitlens/internal/scoring"
	"github.com/commitlens/commitlens/internal/store"
	"github.com/commitlens/commitlens/internal/syncer"
	"github.com/commitlens/commitlens/internal/taskqueue"
	"github.com/commitlens/commitlens/internal/webhook"
	"github.com/commitlens/commitlens/pkg/logger"
)

// app holds every wired dependency. Construction happens exactly once,
// here; nothing else in the codebase reaches for globals.
type app struct {
	db           *gorm.DB
	store        store.Store
	orchestrator *syncer.Orchestrator
	scheduler    *syncer.Scheduler
	queue        taskqueue.Queue
	worker       *taskqueue.Worker

	tokenHandler      *handlers.TokenHandler
	repositoryHandler *handlers.RepositoryHandler
	syncHandler       *handlers.SyncHandler
	webhookHandler    *handlers.WebhookHandler
	healthHandler     *handlers.HealthHandler
}

// bootstrap initializes database, pipeline, queue, and handlers.
func bootstrap(cfg *config.Config) *app {
	db, err := models.OpenDB(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	st := store.NewGormStore(db)
	scorer := scoring.NewLLMScorer(cfg.Scorer)
	engine := analysis.NewEngine(scorer)
	orchestrator := syncer.New(st, engine, nil, cfg.Sync)

	processor := func(ctx context.Context, task *taskqueue.CommitTask) error {
		_, err := orchestrator.ProcessWebhookCommit(ctx, task.RepositoryID, task.Descriptor())
		return err
	}

	queue := taskqueue.New(&cfg.Redis, processor)

	var worker *taskqueue.Worker
	if cfg.Redis.Enabled && queue.IsAsync() {
		worker = taskqueue.NewWorker(&cfg.Redis, processor)
		if worker != nil {
			worker.Start()
		}
	}

	scheduler := syncer.NewScheduler(orchestrator)
	if err := scheduler.Start(cfg.Sync.IntervalMinutes); err != nil {
		logger.Fatalf("Failed to start sync scheduler: %v", err)
	}

	webhookService := webhook.NewHandler(st, queue)

	return &app{
		db:                db,
		store:             st,
		orchestrator:      orchestrator,
		scheduler:         scheduler,
		queue:             queue,
		worker:            worker,
		tokenHandler:      handlers.NewTokenHandler(st, cfg.Sync),
		repositoryHandler: handlers.NewRepositoryHandler(st, orchestrator),
		syncHandler:       handlers.NewSyncHandler(orchestrator),
		webhookHandler:    handlers.NewWebhookHandler(webhookService),
		healthHandler:     handlers.NewHealthHandler(db, queue),
	}
}

// shutdown gracefully stops schedulers, workers, and the queue.
func (a *app) shutdown() {
	a.scheduler.Stop()
	if a.worker != nil {
		a.worker.Stop()
	}
	if a.queue != nil {
		a.queue.Close()
	}
	logger.Info().Msg("Shutdown complete")
}
