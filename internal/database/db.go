package database

import (
	"fmt"
	"time"

	"stok-takip/internal/config"
	"stok-takip/internal/logger"
	"stok-takip/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init opens the configured database, migrates it and stores it in DB.
func Init(cfg *config.Config) {
	db, err := Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Get().Fatal("could not connect to database", zap.Error(err))
	}
	if err := Migrate(db); err != nil {
		logger.Get().Fatal("auto migrate failed", zap.Error(err))
	}
	DB = db
	logger.Get().Info("database connected, migration complete", zap.String("driver", cfg.DatabaseDriver))
}

// Open connects with the given driver. Timestamps are stored in UTC.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// a single connection keeps in-memory databases shared and
		// serializes writers
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Session{},
		&models.Category{},
		&models.Product{},
		&models.StockMovement{},
		&models.AuditLog{},
	)
}

// Ping checks the connection of DB.
func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
