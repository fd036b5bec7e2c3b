package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/snatch/config"
	httpadapter "github.com/bnema/snatch/internal/adapter/http"
	ytdlpadapter "github.com/bnema/snatch/internal/adapter/ytdlp"
	"github.com/bnema/snatch/internal/infrastructure/logger"
	"github.com/bnema/snatch/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(cfg.LogLevel)

	logger.Info().Int("port", cfg.Port).Str("download_dir", cfg.DownloadDir).Msg("starting snatch")

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DownloadDir).Msg("failed to create download directory")
	}

	installCtx, installCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	err = ytdlpadapter.Install(installCtx)
	installCancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("yt-dlp is not available")
	}

	bus := service.NewEventBus()
	registry := service.NewRegistry(bus, cfg.MaxJobs, cfg.JobTTL)
	extractor := ytdlpadapter.New(ytdlpadapter.Options{
		Dir:           cfg.DownloadDir,
		SocketTimeout: cfg.SocketTimeout,
		GeoCountry:    cfg.GeoCountry,
		UserAgent:     cfg.UserAgent,
	})
	downloadSvc := service.NewDownloadService(registry, extractor)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	pool := service.NewWorkerPool(downloadSvc, registry, cfg.MaxWorkers, cfg.QueueSize)
	pool.Start(workerCtx)

	sweeper := service.NewSweeper(cfg.DownloadDir, cfg.Retention, cfg.SweepInterval)
	sweeper.Start()

	// Expired terminal jobs leave the registry on the same cadence as files
	// leave the disk.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				registry.EvictExpired()
			case <-workerCtx.Done():
				return
			}
		}
	}()

	server := httpadapter.NewServer(registry, pool, downloadSvc, bus, cfg.DownloadDir)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  1 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown. ListenAndServe returns the moment Shutdown is
	// called, so main waits on shutdownDone for the drain to finish.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}

		// Lets in-flight downloads finish, fails whatever is still queued.
		if err := pool.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("worker shutdown error")
		}
		sweeper.Stop()
		workerCancel()

		logger.Info().Msg("shutdown complete")
	}()

	logger.Info().Str("addr", addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	<-shutdownDone
}
