package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/regnews/app/api"
	"github.com/lysyi3m/regnews/app/cfg"
	"github.com/lysyi3m/regnews/app/classify"
	"github.com/lysyi3m/regnews/app/database"
	"github.com/lysyi3m/regnews/app/feed"
	"github.com/lysyi3m/regnews/app/pipeline"
	"github.com/lysyi3m/regnews/app/region"
	"github.com/lysyi3m/regnews/app/tasks"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if config == nil {
		return
	}

	logLevel := slog.LevelInfo
	if config.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if err := run(config); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(config *cfg.Cfg) error {
	slog.Info("Starting RegNews", "version", config.Version, "db", config.DBPath)

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := database.NewNewsRepository(db, config.Markets, config.DefaultStartDate)
	if err := repo.Initialize(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	catalog := region.NewCatalog(config.RegionsDir)
	if err := catalog.Run(); err != nil {
		return fmt.Errorf("failed to load regions: %w", err)
	}
	slog.Info("Regions loaded", "count", catalog.Count(), "dir", config.RegionsDir)

	httpClient := &http.Client{Timeout: config.GetHTTPTimeout()}
	reader := feed.NewReader(httpClient, feed.NewContentExtractor(), config.UserAgent, config.GetHTTPTimeout(), config.MaxEntries)
	completer := classify.NewOpenAICompleter(config.LLMBaseURL, config.LLMAPIKey, config.LLMRPM, config.GetHTTPTimeout())
	pipe := pipeline.New(catalog, reader, repo, completer, config.Markets, config.DefaultStartDate, config.DefaultModel)

	newRefresh := func(regions []string, opts tasks.RefreshOptions) tasks.TaskInterface {
		return tasks.NewRefreshTask(regions, opts, pipe, repo)
	}
	refreshAll := func() tasks.TaskInterface {
		return newRefresh(catalog.Names(), tasks.RefreshOptions{UseModel: config.UseModel})
	}

	if config.RefreshOnce {
		task := refreshAll()
		task.Start()
		return task.Execute(context.Background())
	}

	scheduler := tasks.NewScheduler(time.Duration(config.SchedulerInterval)*time.Second, refreshAll)
	scheduler.Start()
	defer scheduler.Stop()

	if config.RefreshOnStart {
		if err := scheduler.EnqueueTask(refreshAll()); err != nil {
			slog.Warn("Failed to enqueue startup refresh", "error", err)
		}
	}

	handler := api.NewHandler(repo, catalog, scheduler, newRefresh, api.Settings{
		Markets:      config.Markets,
		Models:       config.Models,
		DefaultModel: config.DefaultModel,
		UseModel:     config.UseModel,
		Bootstrap:    config.DefaultStartDate,
		Version:      config.Version,
	})

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      api.NewServer(handler, config.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case serveErr = <-serverErrChan:
		slog.Error("Server error, shutting down", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("RegNews shutdown complete")
	return serveErr
}
