package repository

import (
	"fmt"
	"strings"

	"github.com/ruralsys/farm-telemetry/internal/config"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(SQLiteDSN(cfg.SQLitePath))
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("database.postgres_dsn is required for the postgres driver")
		}
		dialector = postgres.Open(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// sqliteOptions make every transaction take the write lock up front and wait
// for it, so concurrent read-then-write transactions queue instead of failing
// with SQLITE_BUSY.
var sqliteOptions = []string{"_txlock=immediate", "_journal_mode=WAL", "_busy_timeout=5000"}

// SQLiteDSN appends the locking options to path, leaving any option the path
// already sets untouched.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, opt := range sqliteOptions {
		key := opt[:strings.Index(opt, "=")+1]
		if strings.Contains(path, key) {
			continue
		}
		path += sep + opt
		sep = "&"
	}
	return path
}

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Property{},
		&models.Animal{},
		&models.LoRaDevice{},
		&models.Scale{},
		&models.WeatherStation{},
		&models.LocationHistory{},
		&models.WeightRecord{},
		&models.WeatherReading{},
		&models.WeatherAlert{},
	)
}
