package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"analysis-suite/internal/analyzer"
	"analysis-suite/internal/config"
	"analysis-suite/internal/gemini"
	"analysis-suite/internal/server"
	"analysis-suite/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const logFileName = "analysis-suite.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open log file")
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize analysis store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("analysis store initialized")

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini client")
	}
	log.Info().Msg("gemini client initialized")

	driverCfg := analyzer.DefaultConfig()
	driverCfg.MaxAttempts = cfg.MaxAttempts
	driverCfg.PollDelay = cfg.PollDelay
	driverCfg.Timeout = cfg.Timeout

	driver, err := analyzer.NewDriver(driverCfg, geminiClient, geminiClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize analysis driver")
	}

	// Wrap with cache so repeated questions about the same video skip
	// the upload entirely.
	cached := analyzer.NewCachedAnalyzer(driver, store)
	log.Info().Msg("analysis caching enabled")

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(server.Opts{
		Analyzer:         cached,
		Store:            store,
		StagingDir:       cfg.StagingDir,
		SupportedFormats: driverCfg.SupportedFormats,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx, cfg.ListenAddr)
	})

	// Sweep orphaned staged uploads in the background.
	sweeper := server.NewSweeper(cfg.StagingDir)
	g.Go(func() error {
		sweeper.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
