package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MySQLOptions configures the gorm-backed MySQL client.
type MySQLOptions struct {
	DSN             string
	LogLevel        string // silent, error, warn or info
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int
	RetryInterval   time.Duration
}

// DefaultMySQLOptions returns pool settings suitable for the ledger.
func DefaultMySQLOptions(dsn, logLevel string) MySQLOptions {
	return MySQLOptions{
		DSN:             dsn,
		LogLevel:        logLevel,
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectAttempts: 10,
		RetryInterval:   2 * time.Second,
	}
}

// NewMySQL opens a gorm connection, retrying while the server comes up.
// Driver errors are left untranslated so callers can read the MySQL error
// number and the violated constraint name.
func NewMySQL(ctx context.Context, opts MySQLOptions) (*gorm.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("mysql DSN cannot be empty")
	}
	if opts.ConnectAttempts < 1 {
		opts.ConnectAttempts = 1
	}

	gormConfig := &gorm.Config{
		// Every ledger write runs inside an explicit transaction already.
		SkipDefaultTransaction: true,
		Logger:                 newGormLogger(opts.LogLevel),
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; attempt <= opts.ConnectAttempts; attempt++ {
		db, err = gorm.Open(mysql.Open(opts.DSN), gormConfig)
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				err = dbErr
			} else if err = sqlDB.PingContext(ctx); err == nil {
				break
			}
		}

		if attempt < opts.ConnectAttempts {
			slog.WarnContext(ctx, "Failed to connect to MySQL, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", opts.ConnectAttempts),
				slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RetryInterval):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql after %d attempts: %w", opts.ConnectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	slog.InfoContext(ctx, "Connected to MySQL")
	return db, nil
}

// CloseMySQL closes the connection pool behind db.
func CloseMySQL(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Failed to get MySQL pool for closing", slog.String("error", err.Error()))
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("Failed to close MySQL pool", slog.String("error", err.Error()))
		return
	}
	slog.Info("MySQL connection pool closed")
}

func newGormLogger(level string) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "silent":
		logLevel = logger.Silent
	default:
		logLevel = logger.Error
	}
	return logger.Default.LogMode(logLevel)
}
