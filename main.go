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

	appchat "github.com/richardiffusion/mrga/application/chat"
	"github.com/richardiffusion/mrga/domain/chat"
	"github.com/richardiffusion/mrga/domain/persistence"
	"github.com/richardiffusion/mrga/domain/station"
	"github.com/richardiffusion/mrga/infrastructure/catalog"
	"github.com/richardiffusion/mrga/infrastructure/llm"
	infrapersistence "github.com/richardiffusion/mrga/infrastructure/persistence"
	httpiface "github.com/richardiffusion/mrga/interfaces/http"
	"github.com/richardiffusion/mrga/internal/config"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx := context.Background()

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("Failed to read .env file")
	}

	cfg, err := config.LoadYAML(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	configureLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"port":               cfg.Server.Port,
		"host":               cfg.Server.Host,
		"default_provider":   cfg.Chat.DefaultProvider,
		"catalog_backend":    cfg.Catalog.Backend,
		"enable_persistence": cfg.Database.EnablePersistence,
	}).Info("Starting MRGA API")

	registry := buildRegistry(cfg)

	breaker := llm.NewCircuitBreakerTransport(llm.NewTransport(cfg.Chat.Timeout), llm.CircuitBreakerConfig{
		Enabled:          cfg.CircuitBreaker.Enabled,
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		Timeout:          cfg.CircuitBreaker.Timeout,
		MaxRequests:      cfg.CircuitBreaker.MaxRequests,
	})

	logrus.WithFields(logrus.Fields{
		"enabled":           cfg.CircuitBreaker.Enabled,
		"failure_threshold": cfg.CircuitBreaker.FailureThreshold,
		"timeout":           cfg.CircuitBreaker.Timeout,
	}).Info("Circuit breaker configured")

	var dbManager *infrapersistence.DatabaseManager
	if cfg.NeedsDatabase() {
		dbManager = infrapersistence.NewDatabaseManager()
		if err := dbManager.Connect(ctx, cfg.Database.Driver, cfg.GetDatabaseDSN()); err != nil {
			logrus.WithError(err).Fatal("Failed to connect to database")
		}
		if err := dbManager.Migrate(); err != nil {
			logrus.WithError(err).Fatal("Failed to run database migrations")
		}
	}

	stations, err := openCatalog(ctx, cfg, dbManager)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open station catalog")
	}

	serviceConfig := appchat.Config{
		Timeout:         cfg.Chat.Timeout,
		MaxPromptLength: cfg.Chat.MaxPromptLength,
	}
	decoder := llm.NewStreamDecoder()

	var (
		tracker        persistence.RequestTracker
		eventProcessor *infrapersistence.EventProcessor
	)
	if cfg.Database.EnablePersistence {
		eventProcessor = infrapersistence.NewEventProcessor(
			dbManager.ChatRepository(),
			cfg.Database.Workers,
			cfg.Database.BufferSize,
		)
		if err := eventProcessor.Start(ctx); err != nil {
			logrus.WithError(err).Fatal("Failed to start event processor")
		}
		tracker = infrapersistence.NewRequestTracker(eventProcessor)
		logrus.Info("Persistence layer initialized successfully")
	} else {
		logrus.Info("Running without chat history")
	}

	service := appchat.NewService(registry, breaker, decoder, stations, tracker, serviceConfig)

	router := httpiface.NewRouter(service, stations, cfg.Server.CorsOrigins).
		WithProviders(registry, breaker).
		WithDefaultProvider(cfg.Chat.DefaultProvider).
		WithAppName(cfg.Server.AppName)
	switch {
	case eventProcessor != nil:
		router.WithPersistence(dbManager.ChatRepository(), dbManager, eventProcessor)
	case dbManager != nil:
		// database backed catalog without history
		router.WithPersistence(nil, dbManager, nil)
	}

	address := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// streams may run for the whole chat timeout
		WriteTimeout: cfg.Chat.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logrus.WithField("address", address).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-c
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	} else {
		logrus.Info("Server shutdown complete")
	}

	if eventProcessor != nil {
		if err := eventProcessor.Stop(); err != nil {
			logrus.WithError(err).Error("Failed to stop event processor")
		}
	}

	if err := stations.Close(); err != nil {
		logrus.WithError(err).Error("Failed to close station catalog")
	}

	if dbManager != nil {
		if err := dbManager.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database connection")
		}
	}
}

func configureLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logrus.SetReportCaller(cfg.ReportCaller)
}

func buildRegistry(cfg *config.Config) *llm.Registry {
	var providers []chat.Provider
	for _, pc := range cfg.ProviderConfigs() {
		var adapter *llm.CompatAdapter
		switch pc.ID {
		case llm.ProviderOpenAI:
			adapter = llm.NewOpenAIAdapter()
		case llm.ProviderDeepSeek:
			adapter = llm.NewDeepSeekAdapter()
		default:
			continue
		}
		adapter.WithSystemPrompt(cfg.Chat.SystemPrompt)

		if !pc.HasCredential() {
			logrus.WithField("provider", pc.ID).Warn("No API key configured, chat will use fallback answers")
		}
		providers = append(providers, chat.Provider{Config: pc, Adapter: adapter})
	}
	return llm.NewRegistry(providers...)
}

func openCatalog(ctx context.Context, cfg *config.Config, dbManager *infrapersistence.DatabaseManager) (station.Catalog, error) {
	if cfg.Catalog.Backend == "database" {
		return catalog.NewGormStore(ctx, dbManager.GetDB())
	}
	return catalog.NewJSONStore(cfg.Catalog.File, cfg.Catalog.Watch)
}
