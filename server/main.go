package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/phenotree"
	"github.com/meikuraledutech/phenotree/config"
	"github.com/meikuraledutech/phenotree/dynamo"
	"github.com/meikuraledutech/phenotree/llm"
	"github.com/meikuraledutech/phenotree/memory"
	"github.com/meikuraledutech/phenotree/metrics"
	"github.com/meikuraledutech/phenotree/postgres"
	"github.com/meikuraledutech/phenotree/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load(os.Getenv("PHENOTREE_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := provideLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	svc := llm.NewService(newProvider(cfg.Backend), llm.CompletionOptions{
		Temperature:     cfg.Backend.Temperature,
		MaxOutputTokens: cfg.Backend.MaxOutputTokens,
		MimeType:        "application/json",
	}, llm.BreakerConfig{
		Name:             "gemini",
		MaxRequests:      cfg.Backend.Breaker.MaxRequests,
		Interval:         cfg.Backend.Breaker.Interval,
		Timeout:          cfg.Backend.Breaker.Timeout,
		FailureThreshold: cfg.Backend.Breaker.FailureThreshold,
		MinRequests:      cfg.Backend.Breaker.MinRequests,
	}, logger)
	if !svc.IsAvailable() {
		logger.Warn("backend not available, every turn will fail", zap.String("provider", cfg.Backend.Provider))
	}

	mc := metrics.NewCollector("phenotree")
	feed := &renderFeed{}

	sess, err := session.Open(ctx, session.Deps{
		Store:   store,
		Backend: svc,
		Canvas:  feed,
		Logger:  logger,
		Metrics: mc,
	})
	if err != nil {
		logger.Fatal("open session", zap.Error(err))
	}

	app := newApp(appDeps{
		sess:      sess,
		feed:      feed,
		metrics:   mc,
		logger:    logger,
		backendUp: svc.IsAvailable,
	})

	logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("store", cfg.Store.Driver))
	if err := app.Listen(cfg.Server.Addr); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func newProvider(cfg config.BackendConfig) llm.Provider {
	if cfg.Provider == "mock" {
		return llm.NewMockProvider()
	}
	return llm.NewGeminiProvider(llm.GeminiConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
}

// openStore builds the slot store for the configured driver. Durable stores
// without a configured session id get a fresh one.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (phenotree.Store, func(), error) {
	sessionID := cfg.SessionID
	if sessionID == "" && cfg.Driver != "memory" {
		sessionID = uuid.NewString()
		logger.Info("no SESSION_ID configured, starting a new session", zap.String("session_id", sessionID))
	}

	switch cfg.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		store := postgres.New(pool, sessionID)
		if err := store.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("create schema: %w", err)
		}
		logger.Info("postgres store ready", zap.String("session_id", store.SessionID()))
		return store, pool.Close, nil
	case "dynamodb":
		client, err := dynamo.NewClient(ctx, cfg.Region, cfg.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return dynamo.New(client, cfg.Table, sessionID), func() {}, nil
	default:
		return memory.New(), func() {}, nil
	}
}
