// Package app wires configuration, connections and services for the Lambda
// entrypoints
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/pkg/auth"
	"gitlab.connectwisedev.com/paint-service/pkg/cache"
	"gitlab.connectwisedev.com/paint-service/pkg/codegen"
	"gitlab.connectwisedev.com/paint-service/pkg/config"
	"gitlab.connectwisedev.com/paint-service/pkg/database"
	"gitlab.connectwisedev.com/paint-service/pkg/handlers"
	"gitlab.connectwisedev.com/paint-service/pkg/inventory"
	"gitlab.connectwisedev.com/paint-service/pkg/logging"
	"gitlab.connectwisedev.com/paint-service/pkg/sales"
	"gitlab.connectwisedev.com/paint-service/pkg/store"
)

// App owns the connections of one function instance
type App struct {
	Handler *handlers.Handler
	Logger  *zap.Logger

	dbClient    *database.DBClient
	redisClient *cache.RedisClient
}

// New loads the environment, connects to PostgreSQL and Redis and builds the
// handler. Redis is optional: without it listings always hit the database
func New() (*App, error) {
	config.LoadEnv() // Load environment variables first
	cfg := config.Load()
	logger := logging.Must(cfg.App.Env)

	dbClient, err := database.NewPostgresClient(cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DB client: %w", err)
	}

	a := &App{Logger: logger, dbClient: dbClient}
	var rdb *redis.Client
	if redisClient, err := cache.NewRedisClient(cfg.Redis, logger); err != nil {
		logger.Warn("Redis unavailable, running without cache", zap.Error(err))
	} else {
		a.redisClient = redisClient
		rdb = redisClient.GetClient()
	}

	h, err := Wire(cfg, dbClient.GetDB(), rdb, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Handler = h
	return a, nil
}

// Wire builds the handler over open connections. rdb may be nil
func Wire(cfg config.Config, db *sql.DB, rdb *redis.Client, logger *zap.Logger) (*handlers.Handler, error) {
	vat, err := decimal.NewFromString(cfg.App.VATRate)
	if err != nil {
		return nil, fmt.Errorf("invalid VAT_RATE %q: %w", cfg.App.VATRate, err)
	}
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}
	now := config.Clock(loc)

	batchStore := store.NewBatchStore(db, logger)
	saleStore := store.NewSaleStore(db, logger)
	codes := codegen.NewGenerator(batchStore, logger, codegen.WithClock(now))

	creds := auth.NewCredentials(store.NewAdminStore(db), logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := creds.Seed(ctx, cfg.App.AdminDefaultPassword); err != nil {
		logger.Warn("failed to seed admin password", zap.Error(err))
	}

	invOpts := []inventory.Option{inventory.WithClock(now), inventory.WithRetryLimit(cfg.App.CodeRetryLimit)}
	saleOpts := []sales.Option{sales.WithClock(now), sales.WithVATRate(vat), sales.WithRetryLimit(cfg.App.CodeRetryLimit)}
	if rdb != nil {
		batchCache := cache.NewBatchCache(rdb, cfg.Redis.TTL, logger)
		invOpts = append(invOpts, inventory.WithCache(batchCache))
		saleOpts = append(saleOpts, sales.WithCache(batchCache))
	}

	inv := inventory.NewService(batchStore, codes, logger, invOpts...)
	reg := sales.NewService(batchStore, saleStore, codes, logger, saleOpts...)
	return handlers.New(inv, reg, creds, logger), nil
}

// Close releases connections and flushes the logger
func (a *App) Close() {
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	if a.dbClient != nil {
		a.dbClient.Close()
	}
	_ = a.Logger.Sync()
}
