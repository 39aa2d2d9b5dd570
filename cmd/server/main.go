package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackd-backend/application/ports"
	"trackd-backend/application/services"
	domaincfg "trackd-backend/domain/config"
	"trackd-backend/infrastructure/config"
	"trackd-backend/infrastructure/messaging/eventbridge"
	dynamostore "trackd-backend/infrastructure/persistence/dynamodb"
	"trackd-backend/infrastructure/persistence/memory"
	"trackd-backend/interfaces/http/rest"
	"trackd-backend/pkg/observability"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.EnableTracing {
		tp, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName: "trackd-backend",
			Environment: cfg.Environment,
			Endpoint:    cfg.TracingEndpoint,
			SampleRate:  cfg.TracingSampleRate,
		})
		if err != nil {
			logger.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to shut down tracer provider", zap.Error(err))
			}
		}()
	}

	var registry *prometheus.Registry
	var metrics *observability.ScopeMetrics
	if cfg.EnableMetrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewScopeMetrics(registry)
	}

	domainCfg := domaincfg.NewHolder(cfg.DomainConfig())

	uow, err := buildUnitOfWork(ctx, cfg, domainCfg, logger, metrics)
	if err != nil {
		logger.Fatal("failed to build persistence", zap.Error(err))
	}

	// In development the collection caps can be tuned live from a limits file.
	// Reloads publish a fresh config through the holder; in-flight scopes keep
	// the one they opened with.
	if path := os.Getenv("LIMITS_FILE"); path != "" && cfg.IsDevelopment() {
		watcher, err := config.NewLimitsWatcher(path, logger)
		if err != nil {
			logger.Fatal("failed to start limits watcher", zap.Error(err))
		}
		watcher.OnChange(func(config.LimitsConfig) {
			domainCfg.Store(watcher.DomainConfig())
		})
		domainCfg.Store(watcher.DomainConfig())
		watcher.Start()
		defer watcher.Stop()
	}

	issueService := services.NewIssueService(uow, domainCfg, logger)
	milestoneService := services.NewMilestoneService(uow, domainCfg, logger)

	router := rest.NewRouter(issueService, milestoneService, logger, registry, cfg.EnableCORS)
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("address", cfg.ServerAddress),
			zap.String("storage", cfg.StorageDriver),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	zapCfg := zap.NewProductionConfig()
	if err := zapCfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, err
	}
	return zapCfg.Build()
}

func buildUnitOfWork(
	ctx context.Context,
	cfg *config.Config,
	domainCfg *domaincfg.Holder,
	logger *zap.Logger,
	metrics *observability.ScopeMetrics,
) (ports.UnitOfWork, error) {
	switch cfg.StorageDriver {
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		var bus ports.EventBus
		if cfg.EventBusName != "" {
			bus = eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
		}
		client := awsdynamodb.NewFromConfig(awsCfg)
		return dynamostore.NewUnitOfWork(client, cfg.DynamoDBTable, bus, domainCfg, logger, metrics), nil

	default:
		return memory.NewUnitOfWork(memory.NewStore(), nil, domainCfg, logger, metrics), nil
	}
}
