package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mroshb/islands/internal/config"
	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the configured database. It returns a nil handle when the
// driver is "none", which puts the island service in offline mode.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverNone:
		logger.Warn("Database driver is none, island data will not be persisted")
		return nil, nil
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := Open(dialector, cfg.AppEnv == "development")
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.DBDriver == config.DriverSQLite {
		// A single connection avoids SQLITE_BUSY between writers.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(20)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	logger.Info("Database connected", "driver", cfg.DBDriver)
	return db, nil
}

// Open wraps gorm.Open with the settings every island database uses.
func Open(dialector gorm.Dialector, verbose bool) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(zapWriter{verbose: verbose}, verbose),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newGormLogger reports failed and slow queries, or every query when verbose.
// A lookup that finds nothing is an answer, not an error.
func newGormLogger(w gormlogger.Writer, verbose bool) gormlogger.Interface {
	logLevel := gormlogger.Error
	if verbose {
		logLevel = gormlogger.Info
	}
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
	})
}

// zapWriter sends gorm output through the application logger.
type zapWriter struct {
	verbose bool
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.verbose {
		logger.Debug("Database query", "query", msg)
		return
	}
	logger.Warn("Database query failed", "query", msg)
}

// OpenMemory opens a private in-memory SQLite database and migrates it.
func OpenMemory() (*gorm.DB, error) {
	db, err := Open(sqlite.Open(":memory:"), false)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// Every connection to :memory: gets its own database.
	sqlDB.SetMaxOpenConns(1)
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Island{},
		&models.PlayerMembership{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}
