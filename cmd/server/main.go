// Package main provides the API server entry point for the Lucra chat backend.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucra-chat/internal/adapter"
	"github.com/lucra-chat/internal/api"
	"github.com/lucra-chat/internal/config"
	"github.com/lucra-chat/internal/llm"
	"github.com/lucra-chat/internal/logging"
	"github.com/lucra-chat/internal/retry"
	"github.com/lucra-chat/internal/service"
	"github.com/lucra-chat/internal/storage"
	"github.com/lucra-chat/internal/types"
	"github.com/lucra-chat/internal/wallet"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	ctx = logging.WithLogger(ctx, logger)

	// Postgres is required
	var postgres *storage.PostgresDB
	err := retry.WithRetry(ctx, nil, func(ctx context.Context, attempt int) error {
		var err error
		postgres, err = storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
		return err
	})
	if err != nil {
		return err
	}
	defer postgres.Close()

	healthChecks := map[string]api.HealthCheck{"postgres": postgres.Ping}

	// Redis and ClickHouse are optional; a configured but unreachable backend is skipped
	var (
		userCache    service.UserCache
		balanceCache service.BalanceCache
		intentEvents service.IntentEventStore
	)

	if cfg.Database.Redis.Enabled() {
		redisCache, err := connectOptional(ctx, "redis", func(ctx context.Context) (*storage.RedisCache, error) {
			return storage.NewRedisCache(ctx, &cfg.Database.Redis)
		})
		if redisCache != nil {
			defer redisCache.Close()
			cacheService := storage.NewCacheService(redisCache, cfg.Cache.UserTTL, cfg.Cache.BalanceTTL)
			userCache, balanceCache = cacheService, cacheService
			healthChecks["redis"] = redisCache.Ping
		} else if errors.Is(err, context.Canceled) {
			return err
		}
	}

	if cfg.Database.ClickHouse.Enabled() {
		clickhouse, err := connectOptional(ctx, "clickhouse", func(ctx context.Context) (*storage.ClickHouseDB, error) {
			return storage.NewClickHouseDB(ctx, &cfg.Database.ClickHouse)
		})
		if clickhouse != nil {
			defer clickhouse.Close()
			intentEvents = storage.NewIntentEventRepository(clickhouse)
			healthChecks["clickhouse"] = clickhouse.Ping
		} else if errors.Is(err, context.Canceled) {
			return err
		}
	}

	var chain adapter.ChainAdapter
	if cfg.Chain.RPCURL != "" {
		ethAdapter, err := adapter.NewEthereumAdapter(ctx, types.ChainID(cfg.Chain.Name), cfg.Chain.RPCURL)
		if err != nil {
			logger.WithError(err).Warn("Chain adapter disabled")
		} else {
			defer ethAdapter.Close()
			chain = ethAdapter
			logger.WithField("chain", cfg.Chain.Name).Info("Chain adapter initialized")
		}
	}

	var extractor service.IntentExtractor
	llmExtractor, err := llm.NewExtractorFromConfig(ctx, &cfg.LLM)
	switch {
	case err == nil:
		extractor = llmExtractor
		logger.WithField("provider", llmExtractor.Provider()).Info("LLM intent extraction enabled")
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Info("No LLM API key configured, using fallback intent parser only")
	default:
		logger.WithError(err).Warn("LLM provider unavailable, using fallback intent parser only")
	}

	userRepo := storage.NewUserRepository(postgres)
	conversationRepo := storage.NewConversationRepository(postgres)
	messageRepo := storage.NewChatMessageRepository(postgres)
	transactionRepo := storage.NewTransactionRepository(postgres)
	signatureRepo := storage.NewWalletSignatureRepository(postgres)

	tokens := wallet.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	userService := service.NewUserService(userRepo, userCache)
	conversationService := service.NewConversationService(conversationRepo, messageRepo, userService)
	transactionService := service.NewTransactionService(transactionRepo, userService, chain, balanceCache)

	services := api.Services{
		Chat:          service.NewChatService(extractor, userService, conversationService, transactionService, intentEvents),
		Conversations: conversationService,
		Transactions:  transactionService,
		Users:         userService,
		Wallet:        service.NewWalletService(signatureRepo, userService, tokens, cfg.Auth.MaxMsgAge, cfg.Auth.MaxClockSkew),
		Balance:       service.NewBalanceService(chain, balanceCache),
		Analytics:     service.NewAnalyticsService(intentEvents),
		Tokens:        tokens,
		HealthChecks:  healthChecks,
	}

	server := api.NewServer(&api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		AuthRequired:      cfg.Auth.Required,
	}, services)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		return server.PruneRateLimiters(gctx, 5*time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// connectOptional dials an optional backend with backoff. It returns nil when
// every attempt failed.
func connectOptional[T any](ctx context.Context, name string, dial func(context.Context) (*T, error)) (*T, error) {
	var conn *T
	err := retry.WithRetry(ctx, &retry.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}, func(ctx context.Context, attempt int) error {
		var err error
		conn, err = dial(ctx)
		return err
	})
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("backend", name).Warn("Optional backend disabled")
		return nil, err
	}
	return conn, nil
}
