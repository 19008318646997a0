package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"realestate/server/config"
)

// RetryPolicy bounds how often a transaction is re-run after a transient failure
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Delay: 50 * time.Millisecond}

type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
	retry  RetryPolicy
}

// NewDatabase opens the configured driver and tunes the connection pool
func NewDatabase(cfg config.DatabaseConfig, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  parseLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		}), gormConfig)
	case "sqlite":
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, err
		}
		db, err = OpenSQLite(sqliteDSN(cfg.DSN), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	logger.WithField("driver", cfg.Driver).Info("Database connected")

	return &Database{
		db:     db,
		logger: logger,
		retry:  RetryPolicy{MaxRetries: cfg.MaxRetries, Delay: cfg.RetryDelay},
	}, nil
}

// New wraps an already opened connection, mostly for tests
func New(db *gorm.DB, logger *logrus.Logger) *Database {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Database{db: db, logger: logger, retry: DefaultRetryPolicy}
}

// WithRetryPolicy returns a copy of d using p for transactional retries
func (d *Database) WithRetryPolicy(p RetryPolicy) *Database {
	clone := *d
	clone.retry = p
	return &clone
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) RunMigrations() error {
	if err := MigrateSchema(d.db); err != nil {
		return err
	}
	d.logger.Info("Database migrations completed")
	return nil
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// sqliteDSN enables foreign keys and a busy timeout unless the DSN sets its own options
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_foreign_keys=1&_busy_timeout=5000"
}

func ensureDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
