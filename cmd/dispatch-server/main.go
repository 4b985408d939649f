package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/fieldops/dispatch/internal/area"
	arearepo "github.com/fieldops/dispatch/internal/area/repositoryimpl"
	"github.com/fieldops/dispatch/internal/asset"
	assetrepo "github.com/fieldops/dispatch/internal/asset/repositoryimpl"
	"github.com/fieldops/dispatch/internal/assignment"
	"github.com/fieldops/dispatch/internal/config"
	"github.com/fieldops/dispatch/internal/dispatcher"
	"github.com/fieldops/dispatch/internal/eventbus"
	"github.com/fieldops/dispatch/internal/query"
	"github.com/fieldops/dispatch/internal/scoring"
	"github.com/fieldops/dispatch/internal/task"
	taskrepo "github.com/fieldops/dispatch/internal/task/repositoryimpl"
	"github.com/fieldops/dispatch/internal/worker"
	workerrepo "github.com/fieldops/dispatch/internal/worker/repositoryimpl"
	"github.com/fieldops/dispatch/pkg/clog"
	"github.com/fieldops/dispatch/pkg/storage"

	server "github.com/fieldops/dispatch/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}
	store = storage.WithRetry(store)

	// Setup event bus
	bus := eventbus.New()

	// Setup repositories
	taskRepo := taskrepo.NewYAMLRepository(store)
	workerRepo := workerrepo.NewYAMLRepository(store)
	areaRepo := arearepo.NewYAMLRepository(store)
	assetRepo := assetrepo.NewYAMLRepository(store)

	// Setup scoring config with optional hot-reloaded weights file
	scoreCfg := scoring.Config{
		Weights: scoring.Weights{
			Expertise:    env.WeightExpertise,
			Availability: env.WeightAvailability,
			Load:         env.WeightLoad,
			Experience:   env.WeightExperience,
		},
		LoadCap:             env.LoadCap,
		ExperienceThreshold: env.ExperienceThreshold,
	}
	scoreProvider, err := scoring.NewProvider(scoreCfg, env.WeightsFile)
	if err != nil {
		slog.Error("failed to create scoring provider", "error", err)
		os.Exit(1)
	}

	// Setup domain services
	// The tracker reads the cap from the provider so a weights-file
	// override applies to slot enforcement, not just scoring.
	loads := worker.NewLoadTracker(workerRepo, func() int { return scoreProvider.Config().LoadCap })
	manager := task.NewManager(taskRepo, areaRepo, assetRepo, loads, bus)
	engine := assignment.NewEngine(taskRepo, workerRepo, loads, manager, scoreProvider, bus)
	facade := query.NewFacade(taskRepo, workerRepo, areaRepo, assetRepo)

	// Setup servers
	taskServer := task.NewServer(manager, engine)
	workerServer := worker.NewServer(workerRepo, bus)
	areaServer := area.NewServer(areaRepo)
	assetServer := asset.NewServer(assetRepo)
	queryServer := query.NewServer(facade)

	srv := server.NewServer(env, taskServer, workerServer, areaServer, assetServer, queryServer)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	var wg conc.WaitGroup
	if env.WeightsFile != "" {
		wg.Go(func() {
			if err := scoreProvider.Watch(ctx); err != nil {
				slog.Error("weights watcher stopped", "error", err)
			}
		})
	}
	if env.AutoAssign {
		d := dispatcher.New(bus, engine)
		wg.Go(func() { d.Start(ctx) })
	}

	wg.Go(func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	})

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after request contexts are
	// cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	wg.Wait()
}
