package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/pkg/config"
)

// DBClient holds the PostgreSQL database connection
type DBClient struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresClient initializes and returns a new PostgreSQL client
func NewPostgresClient(cfg config.DBConfig, logger *zap.Logger) (*DBClient, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// A single register terminal per function instance; keep the pool small
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("connected to PostgreSQL", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return &DBClient{db: db, logger: logger}, nil
}

// NewDBClient wraps an already opened handle
func NewDBClient(db *sql.DB, logger *zap.Logger) *DBClient {
	return &DBClient{db: db, logger: logger}
}

// Close closes the database connection
func (c *DBClient) Close() {
	if c.db != nil {
		c.db.Close()
		c.logger.Info("PostgreSQL connection closed")
	}
}

// GetDB returns the underlying *sql.DB instance
func (c *DBClient) GetDB() *sql.DB {
	return c.db
}
