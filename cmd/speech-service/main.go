// main package for the speech-service
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/api"
	"github.com/book-expert/speech-service/internal/config"
	"github.com/book-expert/speech-service/internal/gemini"
	"github.com/book-expert/speech-service/internal/metrics"
	"github.com/book-expert/speech-service/internal/speech"
	"github.com/book-expert/speech-service/internal/worker"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

const (
	envFile         = ".env"
	shutdownTimeout = 30 * time.Second
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

func loadConfig(log *logger.Logger) (*config.Config, error) {
	if path := os.Getenv(config.EnvConfigFile); path != "" {
		log.Info("Loading configuration from %s", path)

		return config.LoadFile(path)
	}

	return config.Load(log)
}

func loadEnvFile(log *logger.Logger) {
	err := godotenv.Load(envFile)
	if err == nil {
		log.Info("Loaded environment from %s", envFile)

		return
	}

	if !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Failed to load %s: %v", envFile, err)
	}
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), "speech-service-bootstrap.log")
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load .env and configuration
	loadEnvFile(bootstrapLog)

	cfg, err := loadConfig(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, "speech-service.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, finalLog)
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// 4. Build the upstream client and the shared pipeline
	collectors := metrics.New()

	client, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.Gemini.APIKey, BaseURL: cfg.Gemini.BaseURL}, log)
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}

	service, err := speech.NewService(client, cfg.Audio, collectors, log)
	if err != nil {
		return fmt.Errorf("failed to create speech service: %w", err)
	}

	// 5. Optional NATS transport
	if cfg.NATS.Enabled {
		stopWorker, workerErr := startWorker(cfg, service, collectors, log)
		if workerErr != nil {
			return workerErr
		}

		defer stopWorker()
	}

	// 6. HTTP server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(service, collectors, cfg.Server.MaxBodyBytes, log).Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}

	serverErr := make(chan error, 1)

	go func() {
		log.System("Speech-Service listening on %s", cfg.Addr())

		listenErr := server.ListenAndServe()
		if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serverErr <- listenErr
		}

		close(serverErr)
	}()

	select {
	case listenErr := <-serverErr:
		if listenErr != nil {
			return fmt.Errorf("http server failed: %w", listenErr)
		}

		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	log.Info("Server stopped")

	return nil
}

func startWorker(
	cfg *config.Config,
	service *speech.Service,
	collectors *metrics.Metrics,
	log *logger.Logger,
) (func(), error) {
	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name("speech-service"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	natsWorker, err := worker.NewNatsWorker(
		natsConnection, cfg.NATS.SpeechSubject, cfg.NATS.QueueGroup, service, collectors, log,
	)
	if err != nil {
		natsConnection.Close()

		return nil, fmt.Errorf("failed to create NATS worker: %w", err)
	}

	err = natsWorker.Start()
	if err != nil {
		natsConnection.Close()

		return nil, fmt.Errorf("failed to start NATS worker: %w", err)
	}

	return func() {
		stopErr := natsWorker.Stop()
		if stopErr != nil {
			log.Warn("Failed to stop NATS worker: %v", stopErr)
		}

		drainErr := natsConnection.Drain()
		if drainErr != nil {
			log.Warn("Failed to drain NATS connection: %v", drainErr)
		}
	}, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
