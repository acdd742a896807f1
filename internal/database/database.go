package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trafficlens/internal/config"
	"trafficlens/internal/records"
)

// Config describes the SQLite database holding the record tables.
type Config struct {
	Path        string
	BusyTimeout int // milliseconds
	Logger      *slog.Logger
}

// DBManager owns the gorm connection to the record database.
type DBManager struct {
	cfg    Config
	db     *gorm.DB
	logger *slog.Logger
}

// NewDBManager creates a manager for the configured database file.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	return NewDBManagerWithConfig(Config{
		Path:        cfg.GetDatabasePath(),
		BusyTimeout: 5000,
		Logger:      logger,
	})
}

// NewDBManagerWithConfig creates a manager from an explicit Config.
func NewDBManagerWithConfig(cfg Config) *DBManager {
	l := cfg.Logger
	if l == nil {
		l = slog.Default()
	}
	return &DBManager{cfg: cfg, logger: l}
}

// Init opens the database connection.
func (dm *DBManager) Init() error {
	_, err := dm.Connect()
	return err
}

// Connect opens the connection once and returns it.
func (dm *DBManager) Connect() (*gorm.DB, error) {
	if dm.db != nil {
		return dm.db, nil
	}

	if dir := filepath.Dir(dm.cfg.Path); dir != "." && !isMemoryDSN(dm.cfg.Path) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	dsn := dm.cfg.Path
	if !isMemoryDSN(dsn) {
		dsn = fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", dsn, dm.cfg.BusyTimeout)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		dm.logger.Error("Failed to open database", slog.String("path", dm.cfg.Path), slog.Any("error", err))
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dm.db = db
	dm.logger.Debug("Database connection established", slog.String("path", dm.cfg.Path))
	return db, nil
}

// GetConnection returns the open connection, or nil before Init.
func (dm *DBManager) GetConnection() *gorm.DB {
	return dm.db
}

// MigrateDatabase creates the record tables.
func (dm *DBManager) MigrateDatabase() error {
	db := dm.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(AllModels()...)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}

// Close releases the connection.
func (dm *DBManager) Close() error {
	if dm.db == nil {
		return nil
	}
	sqlDB, err := dm.db.DB()
	if err != nil {
		return err
	}
	dm.db = nil
	return sqlDB.Close()
}

// AllModels returns every model managed by MigrateDatabase.
func AllModels() []any {
	return []any{
		&records.EventRecord{},
		&records.DeviceRecord{},
	}
}

func isMemoryDSN(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}
