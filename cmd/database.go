package cmd

import (
	"context"
	"fmt"
	"time"

	"orderflow/config"
	"orderflow/infrastructure/persistence/gormdb"
	"orderflow/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenDatabase connects with the configured driver and verifies the connection
func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	dbConfig := gormdb.FromAppConfig(cfg.Database)
	db, err := dbConfig.Connect()
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := gormdb.Ping(pingCtx, db); err != nil {
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Database.Driver, err)
	}

	if cfg.Database.AutoMigrate {
		logger.Info("Running auto migration", zap.String("driver", cfg.Database.Driver))
		if err := gormdb.AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// CloseDatabase releases the pool
func CloseDatabase(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}
}
