package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-quicknotif/internal/application/audit"
	"github.com/go-quicknotif/internal/application/permission"
	"github.com/go-quicknotif/internal/application/scheduling"
	"github.com/go-quicknotif/internal/config"
	"github.com/go-quicknotif/internal/infrastructure/alarms"
	"github.com/go-quicknotif/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-quicknotif/internal/infrastructure/jwt"
	"github.com/go-quicknotif/internal/infrastructure/platform"
	s3infra "github.com/go-quicknotif/internal/infrastructure/s3"
	"github.com/go-quicknotif/internal/infrastructure/sns"
	"github.com/go-quicknotif/internal/logsink"
	"github.com/go-quicknotif/internal/store"
	transporthttp "github.com/go-quicknotif/internal/transport/http"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(cfg *config.Config) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	var zcfg zap.Config
	if cfg.AppEnv == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	return logger
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// Bootstrap the DynamoDB preferences table (creates it if missing).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.PreferencesTable, logger)
	prefs := dynamo.NewPreferenceRepo(dynamoClient, cfg.PreferencesTable)

	// Debug log sink, with S3 archiving of rotated segments when configured.
	var archiver logsink.Archiver
	if cfg.S3LogBucket != "" {
		archiver = s3infra.NewStore(s3infra.NewClient(cfg), cfg.S3LogBucket)
	}
	sink := logsink.NewFileSink(cfg.DebugLogPath, archiver, logger)

	// Notification store, hydrated from persistence.
	st := store.New(prefs, cfg.MaxSavedNames, logger)
	if err := st.Load(ctx); err != nil {
		logger.Fatal("loading persisted notifications failed", zap.Error(err))
	}
	sink.SetNameLookup(func(id string) (string, bool) {
		n, ok := st.Get(id)
		return n.Name, ok
	})

	// Fire delivery via SNS (optional — graceful fallback).
	var publisher alarms.Publisher
	if cfg.SNSTopicARN != "" {
		if p, err := sns.NewPublisher(cfg); err == nil {
			publisher = p
		} else {
			logger.Warn("SNS publisher not available", zap.Error(err))
		}
	}

	runner := alarms.NewRunner(publisher, sink, logger)
	defer runner.Shutdown()

	flow := permission.New(platform.NewHost(logger), permission.Callbacks{
		SetupComplete: func() { logger.Info("permission setup complete") },
	}, logger, 0)
	if err := flow.Initialize(ctx); err != nil {
		logger.Warn("permission flow initialization failed", zap.Error(err))
	}

	engine := scheduling.NewService(scheduling.Deps{
		Store:  st,
		Alarms: runner,
		Sink:   sink,
		// Native scheduling is blocked until notification permission clears.
		Gate:        func() bool { return flow.Step() != permission.StepNotification },
		Log:         logger,
		SettleDelay: cfg.SettleDelay,
	})

	auditor := audit.NewService(audit.Deps{
		Store:  st,
		Alarms: runner,
		Probe:  runner,
		Engine: engine,
		Sink:   sink,
		Log:    logger,
	})

	sink.Record(ctx, logsink.Boot())
	if err := auditor.Start(ctx, cfg.AuditInterval); err != nil {
		logger.Fatal("starting reconciliation runner failed", zap.Error(err))
	}
	defer auditor.Stop()

	// JWT provider (optional — auth disabled without a secret).
	var jwtProvider *jwtinfra.Provider
	if cfg.AuthSecret != "" {
		jwtProvider = jwtinfra.NewProvider(cfg)
	} else {
		logger.Warn("AUTH_SECRET not set, API authentication disabled")
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Scheduler:   engine,
		Auditor:     auditor,
		Flow:        flow,
		DebugLog:    sink,
		JWTProvider: jwtProvider,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
