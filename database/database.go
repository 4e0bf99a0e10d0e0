// Package database opens the Postgres connection and migrates the schema.
package database

import (
	"context"
	"fmt"
	"time"

	"clinic-api/internal/domain/users"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects with duplicate-key errors translated to gorm.ErrDuplicatedKey,
// which the user repository relies on to detect a taken email.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("database.Open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database.Open: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database.Open: ping: %w", err)
	}

	log.Info().Msg("connected to database")
	return db, nil
}

// Migrate brings the users table up to date. AutoMigrate only adds; it never
// drops columns, so it is safe to run on every deploy.
func Migrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(&users.User{}); err != nil {
		return fmt.Errorf("database.Migrate: %w", err)
	}
	log.Info().Msg("schema migrated")
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
