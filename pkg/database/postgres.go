package database

import (
	"fmt"
	"log"

	"github.com/tgrozenski/agent-email/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresConnection opens the shared connection pool. The pool keeps
// DBPoolSize idle connections and allows DBMaxOverflow more under load;
// callers bound their wait with a per-call context deadline.
func NewPostgresConnection(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBPoolSize)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns())

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	log.Printf("[Database] Connected (pool idle=%d max=%d, wait timeout=%s)", cfg.DBPoolSize, cfg.MaxOpenConns(), cfg.DBPoolTimeout)
	return db, nil
}
