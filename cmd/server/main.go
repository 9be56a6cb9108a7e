package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourusername/tunepipe/api"
	"github.com/yourusername/tunepipe/internal/app"
	"github.com/yourusername/tunepipe/internal/infrastructure"
	"github.com/yourusername/tunepipe/internal/instagram"
	"github.com/yourusername/tunepipe/internal/recognition"
	"github.com/yourusername/tunepipe/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (defaults to ~/.config/tunepipe/config.yaml)")

func main() {
	flag.Parse()

	// Secrets come from the environment; .env is optional
	_ = godotenv.Load()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting tunepipe server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("workdir_base", config.Download.WorkDirBase))

	if err := os.MkdirAll(config.Download.WorkDirBase, 0755); err != nil {
		log.Fatal("Failed to create working directory base", zap.Error(err))
	}

	// Shared subprocess runner for yt-dlp, ffmpeg and fpcalc
	runner := infrastructure.NewExecRunner(log)
	transcoder := infrastructure.NewTranscoder(runner, &config.Download, log)
	prober := infrastructure.NewSizeProber(runner, &config.Download, log)
	strategyDownloader := infrastructure.NewStrategyDownloader(runner, &config.Download, log)

	igClient := instagram.NewClient(log)
	igDownloader := infrastructure.NewInstagramDownloader(igClient, transcoder, &config.Instagram, log)

	// Identification chain: fingerprint -> MusicBrainz, with AudD and
	// Spotify search as fallbacks
	acoustid := recognition.NewAcoustIDClient(config.Recognition.AcoustIDKey, config.Recognition.FpcalcBinary, runner, log)
	musicbrainz := recognition.NewMusicBrainzClient()
	audd := recognition.NewAudDClient(config.Recognition.AudDKey)
	spotify := recognition.NewSpotifyClient(config.Recognition.SpotifyClientID, config.Recognition.SpotifyClientSecret)
	chain := recognition.NewChain(transcoder, acoustid, musicbrainz, audd, spotify, log)

	limiter := app.NewRateLimiter(config.RateLimit.MaxRequests, config.RateLimit.TimeWindow)

	service := app.NewMediaService(
		strategyDownloader,
		igDownloader,
		prober,
		transcoder,
		chain,
		runner,
		limiter,
		config,
		log,
	)

	router := api.SetupRouter(service, config, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
