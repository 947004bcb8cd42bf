package database

import (
	"fmt"
	"log/slog"

	"appraisal-backend/internal/config"
	"appraisal-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the configured database. TranslateError is on so unique violations
// surface as gorm.ErrDuplicatedKey on every driver.
func NewConnection(cfg config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.ConnectionString())
	case "sqlite":
		dialector = sqlite.Open(cfg.ConnectionString())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	slog.Info("Connected to database", slog.String("driver", cfg.Driver))
	return db, nil
}

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&model.Account{},
		&model.Dealership{},
		&model.DealerProfile{},
		&model.WholesalerProfile{},
		&model.FriendRequest{},
		&model.Appraisal{},
		&model.Damage{},
		&model.Comment{},
		&model.Photo{},
		&model.Offer{},
		&model.AuditLog{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return nil
}
